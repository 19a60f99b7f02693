package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EchoTools/nutexTools/internal/testutil"
	"github.com/EchoTools/nutexTools/pkg/cache"
	"github.com/EchoTools/nutexTools/pkg/catalog"
	"github.com/EchoTools/nutexTools/pkg/nutexb"
)

type fixture struct {
	server *Server
	rgba   digest.Digest
	bc7    digest.Digest
	gone   digest.Digest
}

func setup(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()

	write := func(name string, f testutil.File) digest.Digest {
		data, _ := testutil.BuildFile(t, f)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
		return digest.FromBytes(data)
	}

	fx := fixture{
		rgba: write("rgba.nutexb", testutil.File{Name: "rgba", Width: 64, Height: 32, Format: nutexb.R8G8B8A8_UNORM}),
		bc7:  write("bc7.nutexb", testutil.File{Name: "bc7", Width: 16, Height: 16, Format: nutexb.BC7_UNORM}),
		gone: write("gone.nutexb", testutil.File{Name: "gone", Width: 8, Height: 8, Format: nutexb.BC1_UNORM}),
	}

	cat, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	_, err = cat.Index(dir, nil)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "gone.nutexb")))

	c, err := cache.New()
	require.NoError(t, err)

	fx.server = New(cat, c)
	return fx
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestListTextures(t *testing.T) {
	fx := setup(t)

	rec := get(t, fx.server, "/v1/textures")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []catalog.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "bc7", entries[0].Name)
	assert.Equal(t, "gone", entries[1].Name)
	assert.Equal(t, "rgba", entries[2].Name)
}

func TestGetTexture(t *testing.T) {
	fx := setup(t)

	rec := get(t, fx.server, "/v1/textures/"+fx.rgba.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var entry catalog.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, fx.rgba, entry.Digest)
	assert.Equal(t, uint32(64), entry.Width)
	assert.Equal(t, nutexb.R8G8B8A8_UNORM, entry.Format)
}

func TestGetTextureNotFound(t *testing.T) {
	fx := setup(t)

	for _, url := range []string{
		"/v1/textures/" + digest.FromString("nope").String(),
		"/v1/textures/not-a-digest",
		"/v1/textures/not-a-digest/image",
	} {
		rec := get(t, fx.server, url)
		assert.Equal(t, http.StatusNotFound, rec.Code, url)
		assert.NotEmpty(t, errorBody(t, rec), url)
	}
}

func TestGetImage(t *testing.T) {
	fx := setup(t)

	rec := get(t, fx.server, "/v1/textures/"+fx.rgba.String()+"/image")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())
}

func TestGetImageThumbnail(t *testing.T) {
	fx := setup(t)

	rec := get(t, fx.server, "/v1/textures/"+fx.rgba.String()+"/image?size=16")
	require.Equal(t, http.StatusOK, rec.Code)

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
}

func TestGetImageFormats(t *testing.T) {
	fx := setup(t)

	tests := []struct {
		name        string
		url         string
		status      int
		contentType string
	}{
		{"WebP", "/v1/textures/" + fx.rgba.String() + "/image?format=webp", http.StatusOK, "image/webp"},
		{"TGA", "/v1/textures/" + fx.rgba.String() + "/image?format=tga", http.StatusOK, "image/x-tga"},
		{"DDS_BC7", "/v1/textures/" + fx.bc7.String() + "/image?format=dds", http.StatusOK, "application/octet-stream"},
		{"PNG_BC7", "/v1/textures/" + fx.bc7.String() + "/image", http.StatusUnsupportedMediaType, "application/json"},
		{"UnknownFormat", "/v1/textures/" + fx.rgba.String() + "/image?format=bmp", http.StatusUnsupportedMediaType, "application/json"},
		{"BadSize", "/v1/textures/" + fx.rgba.String() + "/image?size=-1", http.StatusBadRequest, "application/json"},
		{"FileRemoved", "/v1/textures/" + fx.gone.String() + "/image", http.StatusNotFound, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, fx.server, tt.url)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.NotZero(t, rec.Body.Len())
		})
	}
}
