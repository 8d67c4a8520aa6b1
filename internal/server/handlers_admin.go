package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"picdepot/internal/api"
	"picdepot/internal/models"
	"picdepot/internal/store"
)

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cache.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CacheStatsResponse{
		EntryCount: stats.EntryCount,
		TotalBytes: stats.TotalBytes,
	})
}

func (s *Server) handleCacheDecay(w http.ResponseWriter, r *http.Request) {
	req := api.DecayRequest{}
	if r.ContentLength > 0 {
		if !s.decodeJSONReq(w, r, &req) {
			return
		}
	}

	factor := req.Factor
	if factor == 0 {
		factor = s.eviction.cfg.DecayFactor
	}
	touched, err := s.eviction.Decay(r.Context(), factor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.DecayResponse{EntriesTouched: touched, Factor: factor})
}

func (s *Server) handleCacheCleanup(w http.ResponseWriter, r *http.Request) {
	req := api.CleanupRequest{}
	if r.ContentLength > 0 {
		if !s.decodeJSONReq(w, r, &req) {
			return
		}
	}

	var result *models.CleanupResult
	var err error
	if req.MaxAgeSeconds == nil && req.MaxSize == nil {
		result, err = s.eviction.AutoCleanup(r.Context())
	} else {
		var maxAge *time.Duration
		if req.MaxAgeSeconds != nil {
			age := time.Duration(*req.MaxAgeSeconds) * time.Second
			maxAge = &age
		}
		result, err = s.eviction.Cleanup(r.Context(), maxAge, req.MaxSize)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cleanupResponse(result))
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	result, err := s.eviction.ClearAll(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cleanupResponse(result))
}

func (s *Server) handleListQuotas(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.quotas.ListQuotaAccounts(r.Context())
	if err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
		return
	}

	resp := make([]api.QuotaResponse, 0, len(accounts))
	for i := range accounts {
		resp = append(resp, quotaResponse(&accounts[i]))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetQuota(w http.ResponseWriter, r *http.Request) {
	tenant, ok := s.pathTenantOrBadRequest(w, r)
	if !ok {
		return
	}

	account, err := s.quotas.GetQuotaAccount(r.Context(), tenant)
	if err != nil {
		if errors.Is(err, store.ErrQuotaAccountNotFound) {
			s.writeErrorReq(w, r, http.StatusNotFound,
				notFoundCode(fmt.Errorf("no quota account for tenant %d", tenant), ErrCodeQuotaNotFound))
			return
		}
		s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
		return
	}
	s.writeJSON(w, http.StatusOK, quotaResponse(account))
}

func (s *Server) handleSetQuota(w http.ResponseWriter, r *http.Request) {
	tenant, ok := s.pathTenantOrBadRequest(w, r)
	if !ok {
		return
	}

	var req api.QuotaSetRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	if req.QuotaLimit != nil && *req.QuotaLimit < 0 {
		s.writeErrorReq(w, r, http.StatusBadRequest,
			badRequest(fmt.Errorf("quota_limit must be >= 0")))
		return
	}

	if err := s.quotas.SetQuotaLimit(r.Context(), tenant, req.QuotaLimit); err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
		return
	}

	account, err := s.quotas.GetQuotaAccount(r.Context(), tenant)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
		return
	}
	s.writeJSON(w, http.StatusOK, quotaResponse(account))
}

// handleDeleteQuota retires a tenant: removes its objects, derived cache
// artifacts, and blobs, then drops the ledger row.
func (s *Server) handleDeleteQuota(w http.ResponseWriter, r *http.Request) {
	tenant, ok := s.pathTenantOrBadRequest(w, r)
	if !ok {
		return
	}

	deleted, err := s.objects.DeleteObjectsByOwner(r.Context(), tenant)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	removed, err := s.quotas.DeleteQuotaAccount(r.Context(), tenant)
	if err != nil {
		if errors.Is(err, store.ErrQuotaInUse) {
			s.writeErrorReq(w, r, http.StatusConflict,
				conflictCode(fmt.Errorf("tenant %d still has bytes in use", tenant), ErrCodeQuotaInUse))
			return
		}
		s.writeErrorReq(w, r, http.StatusInternalServerError, storeFailure(err))
		return
	}

	s.writeJSON(w, http.StatusOK, api.QuotaDeleteResponse{
		Removed:        removed,
		ObjectsDeleted: deleted,
	})
}

func cleanupResponse(result *models.CleanupResult) api.CleanupResponse {
	return api.CleanupResponse{
		RemovedCount:   result.RemovedCount,
		FreedBytes:     result.FreedBytes,
		RemainingCount: result.RemainingCount,
		RemainingBytes: result.RemainingBytes,
	}
}

func quotaResponse(account *models.QuotaAccount) api.QuotaResponse {
	return api.QuotaResponse{
		TenantID:   account.TenantID,
		QuotaLimit: account.QuotaLimit,
		UsedBytes:  account.UsedBytes,
		Remaining:  account.Remaining(),
	}
}
