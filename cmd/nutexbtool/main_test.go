package main

import (
	"context"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EchoTools/nutexTools/internal/config"
	"github.com/EchoTools/nutexTools/internal/testutil"
	"github.com/EchoTools/nutexTools/pkg/export"
	"github.com/EchoTools/nutexTools/pkg/nutexb"
)

func writeFixture(t *testing.T, path string, f testutil.File) {
	t.Helper()
	data, _ := testutil.BuildFile(t, f)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestExportPath(t *testing.T) {
	in := filepath.Join("tex", "body_col.nutexb")
	assert.Equal(t, filepath.Join("tex", "body_col.png"), exportPath(in, "", export.PNG))
	assert.Equal(t, filepath.Join("out", "body_col.webp"), exportPath(in, "out", export.WebP))
	assert.Equal(t, filepath.Join("out", "x.tga"), exportPath(in, filepath.Join("out", "x.tga"), export.TGA))
}

func TestValidateFlags(t *testing.T) {
	defer func(m string) { mode = m }(mode)

	tests := []struct {
		mode    string
		cfg     config.Config
		wantErr bool
	}{
		{"", config.Config{Input: "a", Format: "png"}, true},
		{"info", config.Config{Format: "png"}, true},
		{"info", config.Config{Input: "a", Format: "png"}, false},
		{"export", config.Config{Input: "a", Format: "bmp"}, true},
		{"batch", config.Config{Input: "a", Format: "png"}, true},
		{"batch", config.Config{Input: "a", OutputDir: "b", Format: "png"}, false},
		{"serve", config.Config{Input: "a", Format: "png"}, false},
		{"extract", config.Config{Input: "a", Format: "png"}, true},
	}

	for _, tt := range tests {
		mode = tt.mode
		err := validateFlags(tt.cfg)
		if tt.wantErr {
			assert.Error(t, err, "mode %q", tt.mode)
		} else {
			assert.NoError(t, err, "mode %q", tt.mode)
		}
	}
}

func TestExportDir(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()

	writeFixture(t, filepath.Join(in, "chr", "body.nutexb"), testutil.File{Name: "body", Width: 32, Height: 16, Format: nutexb.BC1_UNORM})
	writeFixture(t, filepath.Join(in, "eye.nutexb"), testutil.File{Name: "eye", Width: 8, Height: 8, Format: nutexb.R8G8B8A8_SRGB})
	writeFixture(t, filepath.Join(in, "fx.nutexb"), testutil.File{Name: "fx", Width: 16, Height: 16, Format: nutexb.BC7_UNORM})
	require.NoError(t, os.WriteFile(filepath.Join(in, "empty.nutexb"), nil, 0o644))

	logger := slog.New(slog.DiscardHandler)
	stats, err := exportDir(context.Background(), in, out, export.PNG, 0, 2, logger)
	require.NoError(t, err)
	assert.Equal(t, batchStats{Exported: 2, Skipped: 1, Failed: 1}, stats)

	f, err := os.Open(filepath.Join(out, "chr", "body.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())

	assert.FileExists(t, filepath.Join(out, "eye.png"))
	assert.NoFileExists(t, filepath.Join(out, "fx.png"))
	assert.NoFileExists(t, filepath.Join(out, "empty.png"))
}

func TestExportDirDDS(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeFixture(t, filepath.Join(in, "fx.nutexb"), testutil.File{Name: "fx", Width: 16, Height: 16, Format: nutexb.BC7_UNORM})

	stats, err := exportDir(context.Background(), in, out, export.DDS, 0, 1, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Exported)
	assert.FileExists(t, filepath.Join(out, "fx.dds"))
}

func TestExportDirCancelled(t *testing.T) {
	in := t.TempDir()
	writeFixture(t, filepath.Join(in, "a.nutexb"), testutil.File{Width: 8, Height: 8, Format: nutexb.R8G8B8A8_UNORM})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exportDir(ctx, in, t.TempDir(), export.PNG, 0, 1, slog.New(slog.DiscardHandler))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.nutexb")
	writeFixture(t, path, testutil.File{Name: "a", Width: 64, Height: 64, Format: nutexb.BC3_SRGB, Alignment: 0x200})
	assert.NoError(t, runInfo(path))

	empty := filepath.Join(dir, "empty.nutexb")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	assert.NoError(t, runInfo(empty))

	short := filepath.Join(dir, "short.nutexb")
	require.NoError(t, os.WriteFile(short, make([]byte, 100), 0o644))
	assert.Error(t, runInfo(short))
}
