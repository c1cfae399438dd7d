// Package fonts locates a TrueType font capable of rendering Ethiopic
// script, searching an explicit path, the bundled font directory, and
// well-known system font locations.
package fonts

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/image/font/sfnt"

	"amharic-translator/internal/logger"
)

// ErrUnavailable is returned when no Ethiopic-capable font can be found.
var ErrUnavailable = errors.New("no Ethiopic-capable font found")

// ethiopicProbe is the first syllable of the Ethiopic block (ሀ). A font
// whose cmap covers it is assumed usable for Amharic text.
const ethiopicProbe = 'ሀ'

// BundledDir is the directory searched for fonts shipped with the
// application, relative to the working directory.
const BundledDir = "assets/fonts"

// Font identifies a resolved font file.
type Font struct {
	// Family is the name the font is registered under on the PDF canvas.
	Family string
	// Path is the location of the TTF file on disk.
	Path string
}

// Families known to cover Ethiopic, matched against file names.
var knownFamilies = []string{
	"abyssinica",
	"notosansethiopic",
	"notoserifethiopic",
	"nyala",
	"kefa",
	"ebrima",
	"ethiopic",
}

// Resolve returns a font able to render Amharic text. An explicit path,
// when given, takes precedence; an unusable explicit path is logged and
// the search continues with the bundled and system locations.
func Resolve(explicitPath string) (Font, error) {
	if explicitPath != "" {
		if f, ok := validate(explicitPath); ok {
			return f, nil
		}
		logger.Warn("configured font is not usable for Ethiopic, falling back",
			logger.String("path", explicitPath))
	}

	for _, dir := range searchDirs() {
		if f, ok := searchDir(dir); ok {
			logger.Info("resolved Amharic font",
				logger.String("family", f.Family),
				logger.String("path", f.Path))
			return f, nil
		}
	}

	return Font{}, ErrUnavailable
}

// searchDirs returns candidate font directories in priority order.
func searchDirs() []string {
	dirs := []string{BundledDir}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Join(filepath.Dir(exe), BundledDir))
	}

	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		dirs = append(dirs, filepath.Join(os.Getenv("WINDIR"), "Fonts"))
	case "darwin":
		dirs = append(dirs,
			"/System/Library/Fonts",
			"/Library/Fonts",
			filepath.Join(home, "Library", "Fonts"))
	default:
		dirs = append(dirs,
			"/usr/share/fonts",
			"/usr/local/share/fonts",
			filepath.Join(home, ".fonts"),
			filepath.Join(home, ".local", "share", "fonts"))
	}
	return dirs
}

// searchDir walks dir looking for a TTF whose name matches a known
// Ethiopic family and whose cmap actually covers the script.
func searchDir(dir string) (Font, bool) {
	var found Font
	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || found.Path != "" {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".ttf") {
			return nil
		}
		if !matchesKnownFamily(filepath.Base(path)) {
			return nil
		}
		if f, ok := validate(path); ok {
			found = f
		}
		return nil
	})
	return found, found.Path != ""
}

func matchesKnownFamily(fileName string) bool {
	name := strings.ToLower(fileName)
	name = strings.ReplaceAll(name, " ", "")
	name = strings.ReplaceAll(name, "-", "")
	name = strings.ReplaceAll(name, "_", "")
	for _, fam := range knownFamilies {
		if strings.Contains(name, fam) {
			return true
		}
	}
	return false
}

// validate parses the font file and checks Ethiopic glyph coverage.
func validate(path string) (Font, bool) {
	ok, family, err := coversEthiopic(path)
	if err != nil || !ok {
		return Font{}, false
	}
	if family == "" {
		family = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return Font{Family: family, Path: path}, true
}

// CoversEthiopic reports whether the TTF at path has a glyph for the
// Ethiopic script.
func CoversEthiopic(path string) (bool, error) {
	ok, _, err := coversEthiopic(path)
	return ok, err
}

func coversEthiopic(path string) (bool, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, "", err
	}

	f, err := sfnt.Parse(data)
	if err != nil {
		return false, "", err
	}

	var buf sfnt.Buffer
	gi, err := f.GlyphIndex(&buf, ethiopicProbe)
	if err != nil || gi == 0 {
		return false, "", err
	}

	family, _ := f.Name(&buf, sfnt.NameIDFamily)
	return true, family, nil
}
