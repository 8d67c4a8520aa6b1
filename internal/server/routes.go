package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Objects.
	mux.HandleFunc("POST /v1/objects", s.handleUploadObject)
	mux.HandleFunc("GET /v1/objects", s.handleListObjects)
	mux.HandleFunc("GET /v1/objects/{hash}", s.handleGetObject)
	mux.HandleFunc("GET /v1/objects/{hash}/content", s.handleGetObjectContent)
	mux.HandleFunc("GET /v1/objects/{hash}/variant", s.handleGetObjectVariant)
	mux.HandleFunc("DELETE /v1/objects/{hash}", s.handleDeleteObject)

	// Usage stats.
	mux.HandleFunc("GET /v1/stats", s.handleStats)

	// Cache administration.
	mux.HandleFunc("GET /v1/admin/cache/stats", s.requireAdmin(s.handleCacheStats))
	mux.HandleFunc("POST /v1/admin/cache/decay", s.requireAdmin(s.handleCacheDecay))
	mux.HandleFunc("POST /v1/admin/cache/cleanup", s.requireAdmin(s.handleCacheCleanup))
	mux.HandleFunc("POST /v1/admin/cache/clear", s.requireAdmin(s.handleCacheClear))

	// Quota administration.
	mux.HandleFunc("GET /v1/admin/quotas", s.requireAdmin(s.handleListQuotas))
	mux.HandleFunc("GET /v1/admin/quotas/{tenant}", s.requireAdmin(s.handleGetQuota))
	mux.HandleFunc("PUT /v1/admin/quotas/{tenant}", s.requireAdmin(s.handleSetQuota))
	mux.HandleFunc("DELETE /v1/admin/quotas/{tenant}", s.requireAdmin(s.handleDeleteQuota))

	return s.withRequestLogging(mux)
}
