package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"ocrplane/pkg/api"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// OCRClient handles API calls to the ocrplane server.
type OCRClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	// UploadClient carries a longer timeout so large documents are not
	// cut off mid-transfer.
	UploadClient *http.Client
}

// NewOCRClient creates a new client with the given base URL and token.
func NewOCRClient(baseURL, token string) *OCRClient {
	return &OCRClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		UploadClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// newAPIError prefers the server's structured error message and falls back
// to the raw body.
func newAPIError(statusCode int, body []byte) *APIError {
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		msg := errResp.Error
		if errResp.Details != "" {
			msg = fmt.Sprintf("%s (%s)", msg, errResp.Details)
		}
		return &APIError{StatusCode: statusCode, Message: msg}
	}
	return &APIError{StatusCode: statusCode, Message: strings.TrimSpace(string(body))}
}

// Login sends POST /token with form credentials and returns the bearer token.
func (c *OCRClient) Login(username, password string) (*api.TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	httpReq, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/token", c.BaseURL), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	var result api.TokenResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

// UploadFile streams the named file as multipart form data to
// POST /ocr/upload and returns the queued job.
func (c *OCRClient) UploadFile(path string) (*api.JobStatusResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	httpReq, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/ocr/upload", c.BaseURL), pr)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	httpReq.Header.Add("Content-Type", writer.FormDataContentType())

	resp, err := c.UploadClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	var result api.JobStatusResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

// GetStatus sends GET /ocr/status/{id} to retrieve job progress.
func (c *OCRClient) GetStatus(jobID string) (*api.JobStatusResponse, error) {
	httpReq, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/ocr/status/%s", c.BaseURL, jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	var result api.JobStatusResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}

// GetResult sends GET /ocr/result/{id} to retrieve the extracted text.
func (c *OCRClient) GetResult(jobID string) (*api.JobResultResponse, error) {
	httpReq, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/ocr/result/%s", c.BaseURL, jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	var result api.JobResultResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &result, nil
}
