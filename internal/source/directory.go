package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/org/credvault/pkg/models"
)

// DirectoryClient talks to the directory backend, which validates users
// and returns credential lists already filtered for the requester.
type DirectoryClient struct {
	baseURL string
	http    *http.Client
}

// NewDirectoryClient creates a client for the given backend base URL
// (e.g. "https://dir.internal/api").
func NewDirectoryClient(baseURL string) *DirectoryClient {
	return &DirectoryClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchCredentials asks the backend for the requester's authorized subset.
func (d *DirectoryClient) FetchCredentials(ctx context.Context, req models.Requester) ([]models.CredentialRecord, error) {
	q := url.Values{}
	q.Set("userId", req.UserID)
	q.Set("role", string(req.Role))
	q.Set("fullName", req.FullName)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/credentials?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrUnavailable, err)
	}
	resp, err := d.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body struct {
		Success     bool                      `json:"success"`
		Credentials []models.CredentialRecord `json:"credentials"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	if !body.Success {
		return nil, fmt.Errorf("%w: backend reported failure", ErrUnavailable)
	}
	return body.Credentials, nil
}

// Validate checks a user id and password against the backend.
// Returns nil on a 401 (invalid credentials).
func (d *DirectoryClient) Validate(ctx context.Context, userID, password string) (*models.Identity, error) {
	payload, err := json.Marshal(map[string]string{"userId": userID, "password": password})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %v", ErrUnavailable, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/validate-user", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body struct {
		Success bool            `json:"success"`
		User    models.Identity `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	if !body.Success {
		return nil, nil
	}
	return &body.User, nil
}
