package uipack

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

// miniInfix marks a file as already minified.
const miniInfix = ".min."

// Logger defines the logging interface used by the Pipeline.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options controls pipeline behaviour.
type Options struct {
	// StoreMini writes the minified intermediate next to the original
	// source file in addition to the target outputs. Pre-minified
	// sources are never rewritten in place.
	StoreMini bool

	// Logger receives per-file progress. Nil means silent.
	Logger Logger
}

// Result describes one processed source file.
type Result struct {
	// Source is the input file path.
	Source string

	// MiniPath is the minified output written under the target directory.
	MiniPath string

	// GzipPath is the compressed sibling of MiniPath.
	GzipPath string

	// OriginalSize, MiniSize and GzipSize are byte counts at each stage.
	OriginalSize int
	MiniSize     int
	GzipSize     int
}

// Pipeline minifies and compresses UI sources into an embeddable layout.
type Pipeline struct {
	minifier *minify.M
	opts     Options
	logger   Logger
}

// New creates a pipeline with minifiers registered for the supported
// source types.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("application/javascript", js.Minify)

	return &Pipeline{minifier: m, opts: opts, logger: logger}
}

// ProcessDir walks sourceDir recursively and processes every supported
// source file into targetDir.
//
// Parameters:
//   - sourceDir: Directory tree containing .js, .css, .htm and .html sources
//   - targetDir: Directory receiving the .min.* and .gz outputs (created if absent)
//
// Returns:
//   - []Result: One entry per processed file, in walk order
//   - error: First filesystem or minification failure
func (p *Pipeline) ProcessDir(sourceDir, targetDir string) ([]Result, error) {
	var results []Result

	err := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !supportedSource(path) {
			return nil
		}

		// A pre-minified file whose plain original sits beside it would
		// be produced again from the original; skip the duplicate.
		if strings.Contains(filepath.Base(path), miniInfix) {
			if _, statErr := os.Stat(strings.Replace(path, miniInfix, ".", 1)); statErr == nil {
				p.logger.Debug("skipping pre-minified duplicate", "path", path)
				return nil
			}
		}

		res, err := p.ProcessFile(path, targetDir)
		if err != nil {
			return err
		}
		results = append(results, res)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("processing source directory %s: %w", sourceDir, err)
	}

	return results, nil
}

// ProcessFile minifies and compresses a single source file into targetDir.
// Sources already carrying the .min. infix are passed through unminified.
func (p *Pipeline) ProcessFile(source, targetDir string) (Result, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return Result{}, fmt.Errorf("reading source %s: %w", source, err)
	}

	base := filepath.Base(source)
	preMinified := strings.Contains(base, miniInfix)

	mini := data
	if !preMinified {
		mini, err = p.minifier.Bytes(mediaTypeFor(source), data)
		if err != nil {
			return Result{}, fmt.Errorf("minifying %s: %w", source, err)
		}
	} else {
		p.logger.Debug("source already minified, passing through", "path", source)
	}

	gz, err := compress(mini)
	if err != nil {
		return Result{}, fmt.Errorf("compressing %s: %w", source, err)
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating target directory: %w", err)
	}

	res := Result{
		Source:       source,
		MiniPath:     filepath.Join(targetDir, miniName(base)),
		OriginalSize: len(data),
		MiniSize:     len(mini),
		GzipSize:     len(gz),
	}
	res.GzipPath = res.MiniPath + ".gz"

	if p.opts.StoreMini && !preMinified {
		intermediate := filepath.Join(filepath.Dir(source), miniName(base))
		if err := os.WriteFile(intermediate, mini, 0o644); err != nil {
			return Result{}, fmt.Errorf("writing intermediate %s: %w", intermediate, err)
		}
		p.logger.Debug("wrote minified intermediate", "path", intermediate)
	}

	if err := os.WriteFile(res.MiniPath, mini, 0o644); err != nil {
		return Result{}, fmt.Errorf("writing %s: %w", res.MiniPath, err)
	}
	if err := os.WriteFile(res.GzipPath, gz, 0o644); err != nil {
		return Result{}, fmt.Errorf("writing %s: %w", res.GzipPath, err)
	}

	p.logger.Info("processed UI source",
		"source", source,
		"original_bytes", res.OriginalSize,
		"minified_bytes", res.MiniSize,
		"gzip_bytes", res.GzipSize)

	return res, nil
}

// miniName inserts the .min. infix before the extension, unless already
// present: slider.js becomes slider.min.js.
func miniName(base string) string {
	if strings.Contains(base, miniInfix) {
		return base
	}
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + ".min" + ext
}

// supportedSource reports whether path is a source type the pipeline
// knows how to minify.
func supportedSource(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".css", ".htm", ".html":
		return true
	}
	return false
}

// mediaTypeFor maps a source path to the minifier media type.
func mediaTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js":
		return "application/javascript"
	case ".css":
		return "text/css"
	default:
		return "text/html"
	}
}

// compress gzips data at best compression with a zeroed header so output
// is deterministic across runs.
func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
