package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"picdepot/internal/api"
	"picdepot/internal/models"
)

const multipartMaxMemory = 8 << 20 // 8 MiB before spilling to disk

func (s *Server) handleUploadObject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.objects.maxSize+multipartMaxMemory)

	if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeErrorReq(w, r, http.StatusBadRequest,
				badRequestCode(fmt.Errorf("upload too large"), ErrCodeRequestTooLarge))
			return
		}
		s.writeErrorReq(w, r, http.StatusBadRequest,
			badRequest(fmt.Errorf("invalid multipart form")))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("content")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest,
			badRequestCode(fmt.Errorf("content file is required"), ErrCodeMissingRequired))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.objects.maxSize+1))
	if err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, internalError(err))
		return
	}

	ownerID := models.AnonymousOwnerID
	if raw := strings.TrimSpace(r.FormValue("owner")); raw != "" {
		ownerID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || ownerID < 0 {
			s.writeErrorReq(w, r, http.StatusBadRequest,
				badRequestCode(fmt.Errorf("invalid owner"), ErrCodeInvalidTenant))
			return
		}
	}

	filename := filepath.Base(strings.TrimSpace(header.Filename))
	if filename == "." || filename == string(filepath.Separator) {
		filename = ""
	}

	record, created, err := s.objects.SaveObject(r.Context(), data, ownerID, filename)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, api.UploadResponse{Object: objectResponse(record), Created: created})
}

func (s *Server) handleListObjects(w http.ResponseWriter, r *http.Request) {
	query := models.ObjectQuery{}

	owner, err := queryInt64(r, "owner")
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	query.OwnerID = owner

	order, err := models.ParseObjectOrder(r.URL.Query().Get("order"))
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(err, ErrCodeInvalidQuery))
		return
	}
	query.Order = order

	switch dir := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("dir"))); dir {
	case "", "asc":
	case "desc":
		query.Descending = true
	default:
		s.writeErrorReq(w, r, http.StatusBadRequest,
			badRequestCode(fmt.Errorf("invalid dir: %s", dir), ErrCodeInvalidQuery))
		return
	}

	if query.Limit, err = queryInt(r, "limit"); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	if query.Offset, err = queryInt(r, "offset"); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}

	records, total, err := s.objects.QueryObjects(r.Context(), query)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := api.ObjectListResponse{
		Objects: make([]api.ObjectResponse, 0, len(records)),
		Total:   total,
		Limit:   query.Limit,
		Offset:  query.Offset,
	}
	for i := range records {
		resp.Objects = append(resp.Objects, objectResponse(&records[i]))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	hash, ok := s.pathHashOrBadRequest(w, r)
	if !ok {
		return
	}

	record, err := s.objects.GetObject(r.Context(), hash)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, objectResponse(record))
}

func (s *Server) handleGetObjectContent(w http.ResponseWriter, r *http.Request) {
	hash, ok := s.pathHashOrBadRequest(w, r)
	if !ok {
		return
	}

	record, data, err := s.objects.ReadObjectBytes(r.Context(), hash)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", record.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.log().Debug("write object content", "hash", hash, "error", err)
	}
}

func (s *Server) handleGetObjectVariant(w http.ResponseWriter, r *http.Request) {
	hash, ok := s.pathHashOrBadRequest(w, r)
	if !ok {
		return
	}
	if s.transform == nil {
		s.writeErrorReq(w, r, http.StatusNotImplemented,
			makeAPIError(http.StatusNotImplemented, "not_implemented", ErrCodeInternal,
				fmt.Errorf("no transform configured")))
		return
	}

	transformKey := strings.TrimSpace(r.URL.Query().Get("t"))
	compute := func(ctx context.Context, original []byte) ([]byte, error) {
		return s.transform(ctx, transformKey, original)
	}
	data, entry, err := s.cache.GetOrCreate(r.Context(), hash, transformKey, compute)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	record, err := s.objects.GetObject(r.Context(), hash)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", record.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if entry == nil {
		w.Header().Set("X-Cache", "BYPASS")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.log().Debug("write variant content", "hash", hash, "error", err)
	}
}

func (s *Server) handleDeleteObject(w http.ResponseWriter, r *http.Request) {
	hash, ok := s.pathHashOrBadRequest(w, r)
	if !ok {
		return
	}

	if err := s.objects.DeleteObject(r.Context(), hash); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func objectResponse(record *models.ObjectRecord) api.ObjectResponse {
	return api.ObjectResponse{
		Hash:             record.Hash,
		Size:             record.Size,
		MIME:             record.MIME,
		OwnerID:          record.OwnerID,
		CreatedAt:        record.CreatedAt,
		LastAccessed:     record.LastAccessed,
		AccessCount:      record.AccessCount,
		OriginalFilename: record.OriginalFilename,
		Extension:        record.Extension,
	}
}
