// Ember UI asset pipeline.
//
// Minifies and gzip-compresses panel UI sources into the layout the
// server embeds: <name>.min.<ext> plus a <name>.min.<ext>.gz sibling.
// Run it after editing UI sources, then rebuild the server binary.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/nerrad567/ember-ui/internal/infrastructure/config"
	"github.com/nerrad567/ember-ui/internal/infrastructure/logging"
	"github.com/nerrad567/ember-ui/internal/uipack"
)

const (
	defaultSourceDir = "web"
	defaultTargetDir = "internal/assets/web"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("emberui-assets", flag.ExitOnError)
	sourceDir := fs.String("source", defaultSourceDir, "directory of UI sources, or a single source file")
	targetDir := fs.String("target", defaultTargetDir, "directory receiving .min.* and .gz outputs")
	noStoreMini := fs.Bool("no-store-mini", false, "do not write minified intermediates next to the originals")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logging.New(config.LoggingConfig{Level: *logLevel, Format: "text"}, "dev")

	pipeline := uipack.New(uipack.Options{
		StoreMini: !*noStoreMini,
		Logger:    log,
	})

	info, err := os.Stat(*sourceDir)
	if err != nil {
		return fmt.Errorf("source %s: %w", *sourceDir, err)
	}

	var results []uipack.Result
	if info.IsDir() {
		results, err = pipeline.ProcessDir(*sourceDir, *targetDir)
	} else {
		var res uipack.Result
		res, err = pipeline.ProcessFile(*sourceDir, *targetDir)
		results = append(results, res)
	}
	if err != nil {
		return err
	}

	if len(results) == 0 {
		log.Warn("no UI sources found", "source", *sourceDir)
		return nil
	}

	var plain, mini, gz int
	for _, r := range results {
		plain += r.OriginalSize
		mini += r.MiniSize
		gz += r.GzipSize
	}
	log.Info("asset pipeline complete",
		"files", len(results),
		"original_bytes", plain,
		"minified_bytes", mini,
		"gzip_bytes", gz,
		"target", *targetDir,
	)
	return nil
}
