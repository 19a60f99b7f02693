// Package server serves indexed textures and their decoded previews over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/opencontainers/go-digest"

	"github.com/EchoTools/nutexTools/pkg/bcdec"
	"github.com/EchoTools/nutexTools/pkg/cache"
	"github.com/EchoTools/nutexTools/pkg/catalog"
	"github.com/EchoTools/nutexTools/pkg/export"
	"github.com/EchoTools/nutexTools/pkg/nutexb"
)

// Catalog is the subset of the texture index the server reads.
type Catalog interface {
	List() ([]catalog.Entry, error)
	Get(dgst digest.Digest) (*catalog.Entry, error)
}

// Server routes texture requests.
type Server struct {
	catalog Catalog
	cache   *cache.Cache
	logger  *slog.Logger
	router  *httprouter.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. A nil logger discards.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server over cat, decoding through c.
func New(cat Catalog, c *cache.Cache, opts ...Option) *Server {
	s := &Server{
		catalog: cat,
		cache:   c,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	s.router = httprouter.New()
	s.router.GET("/v1/textures", s.listTextures)
	s.router.GET("/v1/textures/:digest", s.getTexture)
	s.router.GET("/v1/textures/:digest/image", s.getImage)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("request", slog.String("method", r.Method), slog.String("url", r.URL.String()))
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.logger.Info("listening", slog.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) listTextures(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	entries, err := s.catalog.List()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) getTexture(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	entry, ok := s.lookup(w, ps)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) getImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	entry, ok := s.lookup(w, ps)
	if !ok {
		return
	}

	query := r.URL.Query()
	kind := export.PNG
	if f := query.Get("format"); f != "" {
		k, err := export.ParseKind(f)
		if err != nil {
			s.writeError(w, http.StatusUnsupportedMediaType, err)
			return
		}
		kind = k
	}

	var opts []export.Option
	if sz := query.Get("size"); sz != "" {
		n, err := strconv.Atoi(sz)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid size %q", sz))
			return
		}
		opts = append(opts, export.WithMaxSize(n))
	}

	data, err := os.ReadFile(entry.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.writeError(w, http.StatusNotFound, fmt.Errorf("file for %s is gone", entry.Digest))
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	tex, err := s.cache.Decode(data)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	var buf bytes.Buffer
	if err := export.Texture(&buf, tex, kind, opts...); err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", kind.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// lookup resolves the :digest parameter, writing a 404 when it is unknown.
func (s *Server) lookup(w http.ResponseWriter, ps httprouter.Params) (*catalog.Entry, bool) {
	dgst, err := digest.Parse(ps.ByName("digest"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("invalid digest: %w", err))
		return nil, false
	}

	entry, err := s.catalog.Get(dgst)
	if errors.Is(err, catalog.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return nil, false
	} else if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return entry, true
}

// statusFor maps decode and export errors to a response status.
func statusFor(err error) int {
	var unsupported *nutexb.UnsupportedFormatError
	if errors.As(err, &unsupported) || errors.Is(err, bcdec.ErrUnsupported) {
		return http.StatusUnsupportedMediaType
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.Int("status", status), slog.Any("error", err))
	}
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{
		Error: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
