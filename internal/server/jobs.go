// Package server exposes the translation pipeline over HTTP: uploads,
// job status polling, result download, and plain text translation.
package server

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"amharic-translator/internal/logger"
	"amharic-translator/internal/pdf"
)

// Job tracks one uploaded document through the pipeline. The pipeline
// owns the live status; the job adds identity, file locations, and the
// final result.
type Job struct {
	ID        string
	FileName  string
	CreatedAt time.Time

	InputPath  string
	OutputPath string

	pipeline *pdf.Pipeline

	mu     sync.Mutex
	result *pdf.Result
	done   time.Time
}

// Status returns the job's current pipeline status.
func (j *Job) Status() pdf.Status {
	return j.pipeline.Status()
}

// Result returns the run result once the job is done, or nil.
func (j *Job) Result() *pdf.Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

func (j *Job) finish(result *pdf.Result) {
	j.mu.Lock()
	j.result = result
	j.done = time.Now()
	j.mu.Unlock()
}

// expired reports whether a finished job has outlived ttl.
func (j *Job) expired(ttl time.Duration, now time.Time) bool {
	if !j.Status().Phase.IsTerminal() {
		return false
	}
	j.mu.Lock()
	done := j.done
	j.mu.Unlock()
	if done.IsZero() {
		done = j.CreatedAt
	}
	return now.Sub(done) > ttl
}

// Store holds jobs in memory and reaps finished ones after a TTL,
// removing their files with them.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

// NewStore creates a Store whose finished jobs expire after ttl.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

// Create registers a new job for the uploaded file.
func (s *Store) Create(fileName, inputPath, outputPath string, pipeline *pdf.Pipeline) *Job {
	job := &Job{
		ID:         uuid.NewString(),
		FileName:   fileName,
		CreatedAt:  time.Now(),
		InputPath:  inputPath,
		OutputPath: outputPath,
		pipeline:   pipeline,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return job
}

// Get looks up a job by ID.
func (s *Store) Get(id string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	return job, ok
}

// Sweep removes expired jobs and deletes their files. Returns the
// number of jobs removed.
func (s *Store) Sweep() int {
	now := time.Now()

	s.mu.Lock()
	var expired []*Job
	for id, job := range s.jobs {
		if job.expired(s.ttl, now) {
			expired = append(expired, job)
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()

	for _, job := range expired {
		os.Remove(job.InputPath)
		os.Remove(job.OutputPath)
		logger.Info("expired job removed",
			logger.String("jobID", job.ID),
			logger.String("file", job.FileName))
	}
	return len(expired)
}

// StartSweeper runs Sweep periodically until stop is closed.
func (s *Store) StartSweeper(stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-stop:
				return
			}
		}
	}()
}
