package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"picdepot/internal/blobstore"
	"picdepot/internal/store"
)

const (
	allowRemoteEnvKey = "PICDEPOT_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second
)

// Options configures a Server beyond its required dependencies.
type Options struct {
	// MaxUploadBytes caps a single upload; <= 0 selects the default.
	MaxUploadBytes int64
	// Eviction tunes the cache eviction engine.
	Eviction EvictionConfig
	// AdminTokenHash is the bcrypt hash guarding the admin endpoints.
	// Empty disables them.
	AdminTokenHash string
	// Transform derives variant artifacts. Nil disables the variant
	// endpoint.
	Transform VariantTransform
	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Server wraps HTTP handlers for the picdepot API.
type Server struct {
	addr           string
	objects        *ObjectService
	cache          *CacheService
	eviction       *EvictionEngine
	quotas         store.QuotaStore
	adminTokenHash string
	transform      VariantTransform
	logger         *slog.Logger
}

// New creates a new server instance.
func New(addr string, st *store.Store, blobs blobstore.Store, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cacheService := NewCacheService(st, st, st, blobs, opts.Eviction, logger)
	objectService := NewObjectService(st, st, blobs, cacheService, opts.MaxUploadBytes, logger)

	return &Server{
		addr:           addr,
		objects:        objectService,
		cache:          cacheService,
		eviction:       NewEvictionEngine(cacheService, opts.Eviction),
		quotas:         st,
		adminTokenHash: strings.TrimSpace(opts.AdminTokenHash),
		transform:      opts.Transform,
		logger:         logger,
	}
}

// Objects exposes the catalog service.
func (s *Server) Objects() *ObjectService { return s.objects }

// Cache exposes the derived-artifact cache service.
func (s *Server) Cache() *CacheService { return s.cache }

// Eviction exposes the eviction engine.
func (s *Server) Eviction() *EvictionEngine { return s.eviction }

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return server.ListenAndServe()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
