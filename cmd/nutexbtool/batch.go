package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/EchoTools/nutexTools/internal/config"
	"github.com/EchoTools/nutexTools/pkg/catalog"
	"github.com/EchoTools/nutexTools/pkg/export"
	"github.com/EchoTools/nutexTools/pkg/nutexb"
)

// batchStats counts the outcome of a batch export.
type batchStats struct {
	Exported int64
	Skipped  int64
	Failed   int64
}

func runBatch(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	kind, err := cfg.Kind()
	if err != nil {
		return err
	}

	fmt.Println("Exporting textures...")
	stats, err := exportDir(ctx, cfg.Input, cfg.OutputDir, kind, cfg.MaxSize, cfg.Workers, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Batch complete: %d exported, %d placeholders skipped, %d failed. Files written to %s\n",
		stats.Exported, stats.Skipped, stats.Failed, cfg.OutputDir)
	if stats.Failed > 0 {
		return fmt.Errorf("%d textures failed to export", stats.Failed)
	}
	return nil
}

// exportDir exports every NUTEXB file under inputDir into outputDir,
// mirroring the directory layout. Per-file failures are logged and counted;
// only scan and context errors abort the run.
func exportDir(ctx context.Context, inputDir, outputDir string, kind export.Kind, maxSize, workers int, logger *slog.Logger) (batchStats, error) {
	var (
		stats                     batchStats
		exported, skipped, failed atomic.Int64
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))

	err := catalog.Scan(inputDir, func(f catalog.ScannedFile) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			outPath := filepath.Join(outputDir, filepath.FromSlash(strings.TrimSuffix(f.Rel, filepath.Ext(f.Rel))+kind.Ext()))
			ok, err := exportFile(f.Path, outPath, kind, maxSize)
			switch {
			case err != nil:
				logger.Warn("export failed", slog.String("path", f.Rel), slog.Any("error", err))
				failed.Add(1)
			case !ok:
				logger.Debug("skip placeholder", slog.String("path", f.Rel))
				skipped.Add(1)
			default:
				logger.Debug("exported", slog.String("path", f.Rel), slog.String("output", outPath))
				exported.Add(1)
			}
			return nil
		})
		return nil
	})

	if waitErr := g.Wait(); err == nil {
		err = waitErr
	}

	stats.Exported = exported.Load()
	stats.Skipped = skipped.Load()
	stats.Failed = failed.Load()
	if err != nil {
		return stats, fmt.Errorf("batch export: %w", err)
	}
	return stats, nil
}

// exportFile converts one file. It reports false for placeholders.
func exportFile(inPath, outPath string, kind export.Kind, maxSize int) (bool, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return false, err
	}

	tex, err := nutexb.Decode(data)
	if err != nil {
		return false, err
	}
	if len(tex.Mipmaps) == 0 {
		return false, nil
	}

	return true, writeTexture(outPath, tex, kind, maxSize)
}
