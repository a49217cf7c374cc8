package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/org/credvault/internal/access"
	"github.com/org/credvault/pkg/models"
	"github.com/rs/zerolog/log"
)

// SheetsValues is a RowSource over a spreadsheet values API (ranges are
// addressed "Tab!A2:D"). Authentication is by API key.
type SheetsValues struct {
	baseURL       string
	spreadsheetID string
	apiKey        string
	http          *http.Client
}

// NewSheetsValues creates a values-API row source. baseURL may be empty to
// use the public endpoint.
func NewSheetsValues(baseURL, spreadsheetID, apiKey string) *SheetsValues {
	if baseURL == "" {
		baseURL = "https://sheets.googleapis.com/v4/spreadsheets"
	}
	return &SheetsValues{
		baseURL:       baseURL,
		spreadsheetID: spreadsheetID,
		apiKey:        apiKey,
		http:          &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchRows fetches one range. A 400 means the range or tab does not
// exist; a 403 means the sheet is not shared with the key.
func (s *SheetsValues) FetchRows(ctx context.Context, rng string) ([][]string, error) {
	u := fmt.Sprintf("%s/%s/values/%s?key=%s",
		s.baseURL, url.PathEscape(s.spreadsheetID), url.PathEscape(rng), url.QueryEscape(s.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", ErrUnavailable, err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrRangeNotFound, rng)
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: sheet not shared or key lacks access", ErrAccessDenied)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body struct {
		Values [][]string `json:"values"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	log.Debug().Str("range", rng).Int("rows", len(body.Values)).Msg("fetched sheet range")
	return body.Values, nil
}

// SheetsSource is a full credential source over a values API. The
// directory rows are unfiltered, so access resolution runs locally.
type SheetsSource struct {
	client *Client
}

// NewSheetsSource builds a SheetsSource from a RowSource.
func NewSheetsSource(rows RowSource) *SheetsSource {
	return &SheetsSource{client: NewClient(rows)}
}

// FetchCredentials returns the requester's authorized subset, resolved
// locally against the grantee lists and the permissions tab.
func (s *SheetsSource) FetchCredentials(ctx context.Context, req models.Requester) ([]models.CredentialRecord, error) {
	creds, err := s.client.FetchCredentials(ctx)
	if err != nil {
		return nil, err
	}
	grants, err := s.client.FetchPermissions(ctx)
	if err != nil {
		return nil, err
	}
	return access.Resolve(creds, grants, req), nil
}

// Validate checks credentials against the user directory tab.
func (s *SheetsSource) Validate(ctx context.Context, userID, password string) (*models.Identity, error) {
	return s.client.ValidateUser(ctx, userID, password)
}
