package server

import (
	"net/http"

	"picdepot/internal/api"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.InfoResponse{Name: "picdepot", Version: Version})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	owner, err := queryInt64(r, "owner")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	objectStats, err := s.objects.Stats(r.Context(), owner)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	cacheStats, err := s.cache.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.StatsResponse{
		ObjectCount: objectStats.Count,
		ObjectBytes: objectStats.TotalBytes,
		CacheCount:  cacheStats.EntryCount,
		CacheBytes:  cacheStats.TotalBytes,
	})
}
