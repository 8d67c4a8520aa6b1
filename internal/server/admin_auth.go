package server

import (
	"fmt"
	"net/http"
	"strings"

	"picdepot/internal/auth"
)

const adminTokenHeader = "X-Admin-Token"

// requireAdmin guards a handler behind the configured admin token. With
// no hash configured every admin request is rejected.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminTokenHash == "" {
			s.writeErrorReq(w, r, http.StatusForbidden,
				makeAPIError(http.StatusForbidden, "forbidden", ErrCodeForbidden,
					fmt.Errorf("admin endpoints are not configured")))
			return
		}

		token := strings.TrimSpace(r.Header.Get(adminTokenHeader))
		if token == "" || !auth.VerifyAdminToken(s.adminTokenHash, token) {
			s.writeErrorReq(w, r, http.StatusUnauthorized,
				unauthorized(fmt.Errorf("invalid admin token")))
			return
		}

		next(w, r)
	}
}
