package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	tabletypes "github.com/molprop/platform/pkg/types/table"
)

// TablesClient calls the table upload and preview endpoints.
type TablesClient struct {
	client *Client
}

// UploadResponse describes a stored table.
type UploadResponse struct {
	Path    string             `json:"path"`
	Info    tabletypes.Info    `json:"info"`
	Preview tabletypes.Preview `json:"preview"`
}

// PreviewResponse carries a table's schema and leading rows.
type PreviewResponse struct {
	Info    tabletypes.Info    `json:"info"`
	Preview tabletypes.Preview `json:"preview"`
}

// Upload sends a results table to the server.  The file name decides the
// format, so keep the original extension.
func (t *TablesClient) Upload(ctx context.Context, path string) (*UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return t.UploadReader(ctx, filepath.Base(path), f)
}

// UploadReader sends table content under the given file name.
func (t *TablesClient) UploadReader(ctx context.Context, filename string, content io.Reader) (*UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.client.baseURL+"/api/v1/tables", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.client.userAgent)

	resp, err := t.client.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: env.RequestID}
		if env.Error != nil {
			apiErr.Code = string(env.Error.Code)
			apiErr.Message = env.Error.Message
			apiErr.Detail = env.Error.Detail
		} else {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return nil, apiErr
	}

	var result UploadResponse
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response data: %w", err)
	}
	return &result, nil
}

// Preview reads the schema and first rows of a table already on the server.
func (t *TablesClient) Preview(ctx context.Context, path string, rows int) (*PreviewResponse, error) {
	q := url.Values{"path": {path}}
	if rows > 0 {
		q.Set("rows", fmt.Sprint(rows))
	}
	var result PreviewResponse
	if err := t.client.get(ctx, "/api/v1/tables/preview?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
