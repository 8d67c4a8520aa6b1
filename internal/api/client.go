package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "PICDEPOT_HTTP_TIMEOUT"
	adminTokenEnvKey   = "PICDEPOT_ADMIN_TOKEN"
	adminTokenHeader   = "X-Admin-Token"
)

// Client is a simple HTTP client for the picdepot API.
type Client struct {
	baseURL    string
	http       *http.Client
	adminToken string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: httpTimeoutFromEnv()},
		adminToken: strings.TrimSpace(os.Getenv(adminTokenEnvKey)),
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) GetInfo(ctx context.Context) (InfoResponse, error) {
	var resp InfoResponse
	err := c.do(ctx, http.MethodGet, "/v1/info", nil, nil, &resp)
	return resp, err
}

// Upload sends one file as a multipart upload.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader, owner int64) (UploadResponse, error) {
	var resp UploadResponse

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("content", filename)
	if err != nil {
		return resp, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return resp, err
	}
	if owner > 0 {
		if err := mw.WriteField("owner", strconv.FormatInt(owner, 10)); err != nil {
			return resp, err
		}
	}
	if err := mw.Close(); err != nil {
		return resp, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/objects", &buf)
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	httpResp, err := c.http.Do(req)
	if err != nil {
		return resp, err
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 400 {
		return resp, decodeError(httpResp)
	}
	err = json.NewDecoder(httpResp.Body).Decode(&resp)
	return resp, err
}

func (c *Client) GetObject(ctx context.Context, hash string) (ObjectResponse, error) {
	var resp ObjectResponse
	err := c.do(ctx, http.MethodGet, "/v1/objects/"+url.PathEscape(hash), nil, nil, &resp)
	return resp, err
}

func (c *Client) ListObjects(ctx context.Context, query url.Values) (ObjectListResponse, error) {
	var resp ObjectListResponse
	err := c.do(ctx, http.MethodGet, "/v1/objects", query, nil, &resp)
	return resp, err
}

func (c *Client) DeleteObject(ctx context.Context, hash string) error {
	return c.do(ctx, http.MethodDelete, "/v1/objects/"+url.PathEscape(hash), nil, nil, nil)
}

// DownloadContent streams an object's bytes to a writer.
func (c *Client) DownloadContent(ctx context.Context, hash string, w io.Writer) error {
	return c.download(ctx, "/v1/objects/"+url.PathEscape(hash)+"/content", nil, w)
}

// DownloadVariant streams a derived artifact to a writer.
func (c *Client) DownloadVariant(ctx context.Context, hash, transform string, w io.Writer) error {
	query := url.Values{}
	query.Set("t", transform)
	return c.download(ctx, "/v1/objects/"+url.PathEscape(hash)+"/variant", query, w)
}

func (c *Client) Stats(ctx context.Context, query url.Values) (StatsResponse, error) {
	var resp StatsResponse
	err := c.do(ctx, http.MethodGet, "/v1/stats", query, nil, &resp)
	return resp, err
}

func (c *Client) CacheStats(ctx context.Context) (CacheStatsResponse, error) {
	var resp CacheStatsResponse
	err := c.do(ctx, http.MethodGet, "/v1/admin/cache/stats", nil, nil, &resp)
	return resp, err
}

func (c *Client) CacheDecay(ctx context.Context, req DecayRequest) (DecayResponse, error) {
	var resp DecayResponse
	err := c.do(ctx, http.MethodPost, "/v1/admin/cache/decay", nil, req, &resp)
	return resp, err
}

func (c *Client) CacheCleanup(ctx context.Context, req CleanupRequest) (CleanupResponse, error) {
	var resp CleanupResponse
	err := c.do(ctx, http.MethodPost, "/v1/admin/cache/cleanup", nil, req, &resp)
	return resp, err
}

func (c *Client) CacheClear(ctx context.Context) (CleanupResponse, error) {
	var resp CleanupResponse
	err := c.do(ctx, http.MethodPost, "/v1/admin/cache/clear", nil, nil, &resp)
	return resp, err
}

func (c *Client) ListQuotas(ctx context.Context) ([]QuotaResponse, error) {
	var resp []QuotaResponse
	err := c.do(ctx, http.MethodGet, "/v1/admin/quotas", nil, nil, &resp)
	return resp, err
}

func (c *Client) GetQuota(ctx context.Context, tenant int64) (QuotaResponse, error) {
	var resp QuotaResponse
	err := c.do(ctx, http.MethodGet, "/v1/admin/quotas/"+strconv.FormatInt(tenant, 10), nil, nil, &resp)
	return resp, err
}

func (c *Client) SetQuota(ctx context.Context, tenant int64, req QuotaSetRequest) (QuotaResponse, error) {
	var resp QuotaResponse
	err := c.do(ctx, http.MethodPut, "/v1/admin/quotas/"+strconv.FormatInt(tenant, 10), nil, req, &resp)
	return resp, err
}

func (c *Client) DeleteQuota(ctx context.Context, tenant int64) (QuotaDeleteResponse, error) {
	var resp QuotaDeleteResponse
	err := c.do(ctx, http.MethodDelete, "/v1/admin/quotas/"+strconv.FormatInt(tenant, 10), nil, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAdminHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) download(ctx context.Context, path string, query url.Values, w io.Writer) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return &APIError{
			Status:    resp.StatusCode,
			Code:      errResp.Code,
			ErrorCode: errResp.ErrorCode,
			Message:   errResp.Error,
		}
	}
	return &APIError{Status: resp.StatusCode, Message: resp.Status}
}

func (c *Client) setAdminHeader(req *http.Request) {
	if c.adminToken == "" || req == nil {
		return
	}
	req.Header.Set(adminTokenHeader, c.adminToken)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
