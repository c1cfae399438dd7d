package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"amharic-translator/internal/config"
	"amharic-translator/internal/fonts"
	"amharic-translator/internal/logger"
	"amharic-translator/internal/pdf"
	"amharic-translator/internal/server"
	"amharic-translator/internal/types"
)

var (
	addrFlag    = flag.String("addr", "", "listen address for the web server (overrides config)")
	configFlag  = flag.String("config", "", "path to the configuration file")
	pdfFlag     = flag.String("pdf", "", "PDF file to translate from the command line")
	outputFlag  = flag.String("o", "", "output path for -pdf mode (default: <input>.am.pdf)")
	fontFlag    = flag.String("font", "", "path to an Ethiopic-capable TTF font (overrides config)")
	backendFlag = flag.String("backend", "", "translation backend: nllb or openai (overrides config)")
)

func printHelp() {
	fmt.Println("amharic-translator - translate English PDF documents to Amharic")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  amharic-translator [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --addr <ADDR>      Listen address for the web server (default :8080)")
	fmt.Println("  --config <PATH>    Configuration file path")
	fmt.Println("  --pdf <PATH>       Translate a single PDF and exit (no web server)")
	fmt.Println("  -o <PATH>          Output path for --pdf mode")
	fmt.Println("  --font <PATH>      Ethiopic-capable TTF font file")
	fmt.Println("  --backend <NAME>   Translation backend: nllb or openai")
	fmt.Println("  -h, --help         Show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  amharic-translator                       # start the web UI")
	fmt.Println("  amharic-translator --addr :9000")
	fmt.Println("  amharic-translator --pdf paper.pdf -o paper.am.pdf")
}

func main() {
	flag.Usage = printHelp
	flag.Parse()

	mgr, err := config.NewManager(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot initialize configuration: %v\n", err)
		os.Exit(1)
	}
	if err := mgr.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot load configuration: %v\n", err)
		os.Exit(1)
	}

	cfg := mgr.GetConfig()
	if *addrFlag != "" {
		cfg.ListenAddr = *addrFlag
	}
	if *fontFlag != "" {
		cfg.FontPath = *fontFlag
	}
	if *backendFlag != "" {
		cfg.Backend = *backendFlag
	}
	if err := mgr.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&logger.Config{
		LogFilePath:   cfg.LogFilePath,
		Level:         logger.ParseLevel(cfg.LogLevel),
		EnableConsole: *pdfFlag != "",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	if *pdfFlag != "" {
		runCLI(cfg)
		return
	}

	runServer(cfg)
}

// runServer starts the web UI and blocks until interrupted.
func runServer(cfg *types.Config) {
	// Warn early when no font is installed; uploads would otherwise
	// fail one by one with the same cause.
	if _, err := fonts.Resolve(cfg.FontPath); err != nil {
		logger.Warn("no Ethiopic-capable font found; document jobs will fail until one is installed",
			logger.Err(err))
	}

	srv := server.New(cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fmt.Printf("listening on %s\n", cfg.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", logger.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown failed", err)
		}
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: server failed: %v\n", err)
			os.Exit(1)
		}
	}
}

// runCLI translates a single document and exits.
func runCLI(cfg *types.Config) {
	inputPath := *pdfFlag
	if _, err := os.Stat(inputPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot read input: %v\n", err)
		os.Exit(1)
	}

	outputPath := *outputFlag
	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, ".pdf") + ".am.pdf"
	}

	fmt.Printf("input:   %s\n", inputPath)
	fmt.Printf("output:  %s\n", outputPath)
	fmt.Printf("backend: %s\n", cfg.Backend)

	ctx := context.Background()
	translator, err := server.BuildTranslator(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot build translation backend: %v\n", err)
		os.Exit(1)
	}

	pipeline := pdf.NewPipeline(translator, cfg.BatchCharBudget, cfg.MaxRetries, cfg.FontPath)
	pipeline.WorkDirectory = cfg.WorkDirectory

	// Report progress while the run is in flight.
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		lastProgress := -1
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				status := pipeline.Status()
				if status.Progress != lastProgress {
					fmt.Printf("  [%3d%%] %s: %s\n", status.Progress, status.Phase, status.Message)
					lastProgress = status.Progress
				}
			}
		}
	}()

	result, err := pipeline.Run(ctx, inputPath, outputPath)
	close(done)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nerror: translation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("translation complete")
	fmt.Printf("  pages:            %d\n", result.PageCount)
	fmt.Printf("  text blocks:      %d\n", result.TotalBlocks)
	fmt.Printf("  overflowed boxes: %d\n", result.OverflowBlocks)
	fmt.Printf("  output:           %s\n", result.OutputPath)
}
