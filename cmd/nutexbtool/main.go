// Package main provides a command-line tool for inspecting and converting
// NUTEXB texture files.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/EchoTools/nutexTools/internal/config"
	"github.com/EchoTools/nutexTools/internal/server"
	"github.com/EchoTools/nutexTools/pkg/cache"
	"github.com/EchoTools/nutexTools/pkg/catalog"
	"github.com/EchoTools/nutexTools/pkg/dds"
	"github.com/EchoTools/nutexTools/pkg/export"
	"github.com/EchoTools/nutexTools/pkg/nutexb"
)

var (
	mode       string
	configPath string
	verbose    bool
	flags      config.Flags
)

func init() {
	flag.StringVar(&mode, "mode", "", "Operation mode: info, export, batch, index, serve")
	flag.StringVar(&configPath, "config", "", "Path to a JSON config file")
	flag.StringVar(&flags.Input, "input", "", "Input .nutexb file (info, export) or directory (batch, index, serve)")
	flag.StringVar(&flags.OutputDir, "output", "", "Output file or directory")
	flag.StringVar(&flags.Format, "format", "", "Export format: png, webp, tga, dds (default png)")
	flag.IntVar(&flags.MaxSize, "size", 0, "Downscale exports so neither side exceeds this many pixels")
	flag.IntVar(&flags.Workers, "workers", 0, "Parallel workers for batch mode (default: number of CPUs)")
	flag.StringVar(&flags.Database, "db", "", "Catalog database path")
	flag.StringVar(&flags.CacheDir, "cache", "", "Decode cache directory")
	flag.StringVar(&flags.Listen, "listen", "", "Listen address for serve mode (default "+config.DefaultListen+")")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
}

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := validateFlags(cfg); err != nil {
		flag.Usage()
		return err
	}

	logger := newLogger(verbose)

	switch mode {
	case "info":
		return runInfo(cfg.Input)
	case "export":
		return runExport(cfg)
	case "batch":
		return runBatch(ctx, cfg, logger)
	case "index":
		return runIndex(cfg, logger)
	case "serve":
		return runServe(ctx, cfg, logger)
	default:
		return fmt.Errorf("unknown mode: %s", mode)
	}
}

func loadConfig() (config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	cfg.Resolve(flags)
	return cfg, nil
}

func validateFlags(cfg config.Config) error {
	if mode == "" {
		return fmt.Errorf("mode is required")
	}
	if cfg.Input == "" {
		return fmt.Errorf("%s mode requires -input", mode)
	}
	if _, err := cfg.Kind(); err != nil {
		return err
	}

	switch mode {
	case "info", "export", "index", "serve":
	case "batch":
		if cfg.OutputDir == "" {
			return fmt.Errorf("batch mode requires -output")
		}
	default:
		return fmt.Errorf("mode must be one of info, export, batch, index, serve")
	}

	return nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runInfo(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	footer, err := nutexb.ParseFooter(data)
	if err != nil {
		return fmt.Errorf("read footer: %w", err)
	}
	if footer == nil {
		fmt.Printf("%s: empty placeholder file\n", path)
		return nil
	}

	fmt.Printf("File:        %s (%d bytes)\n", path, len(data))
	fmt.Printf("Name:        %s\n", footer.Name)
	fmt.Printf("Dimensions:  %dx%dx%d\n", footer.Width, footer.Height, footer.Depth)
	fmt.Printf("Format:      %s (0x%02x)\n", footer.Format, uint8(footer.Format))
	if footer.Format.IsSRGB() {
		fmt.Printf("Color:       sRGB\n")
	} else {
		fmt.Printf("Color:       linear\n")
	}
	fmt.Printf("Mipmaps:     %d\n", footer.MipCount)
	fmt.Printf("Layers:      %d\n", footer.ArrayCount)
	fmt.Printf("Alignment:   0x%x\n", footer.Alignment)
	fmt.Printf("Image size:  %d\n", footer.ImageSize)
	fmt.Printf("Version:     %d.%d\n", footer.MajorVersion, footer.MinorVersion)
	for i := 0; i < int(footer.MipCount) && i < nutexb.MaxMipmaps; i++ {
		fmt.Printf("  mip %2d:    %d bytes (aligned %d)\n", i, footer.MipSizes[i], footer.AlignedMipSize(i))
	}

	if upload, err := footer.Format.UploadFormat(); err == nil {
		fmt.Printf("Upload:      %s", upload.InternalFormat)
		if upload.Extension != "" {
			fmt.Printf(" (requires %s)", upload.Extension)
		}
		fmt.Println()
	}
	if dxgi, err := dds.DXGIFormat(footer.Format); err == nil {
		fmt.Printf("DXGI:        %s\n", dds.FormatName(dxgi))
	}

	tex, err := nutexb.Decode(data)
	if err != nil {
		fmt.Printf("Decode:      failed: %v\n", err)
		return nil
	}
	fmt.Printf("Decode:      ok, mip 0 is %d bytes\n", len(tex.Mipmaps[0]))
	return nil
}

func runExport(cfg config.Config) error {
	kind, err := cfg.Kind()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(cfg.Input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	tex, err := nutexb.Decode(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", cfg.Input, err)
	}
	if len(tex.Mipmaps) == 0 {
		fmt.Printf("%s is an empty placeholder, nothing to export\n", cfg.Input)
		return nil
	}

	outPath := exportPath(cfg.Input, cfg.OutputDir, kind)
	if err := writeTexture(outPath, tex, kind, cfg.MaxSize); err != nil {
		return err
	}

	fmt.Printf("Exported %s to %s\n", tex.Name, outPath)
	return nil
}

// exportPath picks the output file for input. An output with an extension
// is used as-is; otherwise it names a directory. An empty output writes
// beside the input.
func exportPath(input, output string, kind export.Kind) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + kind.Ext()
	switch {
	case output == "":
		return filepath.Join(filepath.Dir(input), base)
	case filepath.Ext(output) != "":
		return output
	default:
		return filepath.Join(output, base)
	}
}

func writeTexture(path string, tex *nutexb.Texture, kind export.Kind, maxSize int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := export.Texture(f, tex, kind, export.WithMaxSize(maxSize)); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("export %s: %w", path, err)
	}
	return f.Close()
}

func openCache(cfg config.Config, logger *slog.Logger) (*cache.Cache, error) {
	return cache.New(cache.WithDir(cfg.CacheDir), cache.WithLogger(logger))
}

func runIndex(cfg config.Config, logger *slog.Logger) error {
	c, err := openCache(cfg, logger)
	if err != nil {
		return err
	}

	cat, err := catalog.Open(cfg.Database, catalog.WithLogger(logger))
	if err != nil {
		return err
	}
	defer cat.Close()

	return indexInto(cat, c, cfg.Input)
}

func indexInto(cat *catalog.Catalog, c *cache.Cache, dir string) error {
	fmt.Println("Scanning input directory...")
	stats, err := cat.Index(dir, c.DecodeDigest)
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}
	fmt.Printf("Indexed %d textures (%d placeholders skipped, %d failed)\n",
		stats.Indexed, stats.Skipped, stats.Failed)
	return nil
}

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	c, err := openCache(cfg, logger)
	if err != nil {
		return err
	}

	cat, err := catalog.Open(cfg.Database, catalog.WithLogger(logger))
	if err != nil {
		return err
	}
	defer cat.Close()

	if err := indexInto(cat, c, cfg.Input); err != nil {
		return err
	}

	fmt.Printf("Serving on http://%s/v1/textures\n", cfg.Listen)
	return server.New(cat, c, server.WithLogger(logger)).ListenAndServe(ctx, cfg.Listen)
}
