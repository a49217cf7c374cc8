// Package source adapts external credential directories to the vault.
package source

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/org/credvault/pkg/models"
)

// ErrRangeNotFound is returned when a named range or tab does not exist.
// The client falls back to a secondary range on this error only.
var ErrRangeNotFound = errors.New("range not found")

// ErrAccessDenied is returned when the directory refuses access.
var ErrAccessDenied = errors.New("access denied")

// ErrUnavailable is returned for any other upstream failure.
var ErrUnavailable = errors.New("source unavailable")

// RowSource fetches raw ordered rows from a named range.
type RowSource interface {
	FetchRows(ctx context.Context, rng string) ([][]string, error)
}

// Named ranges tried in order. The primary tab name is preferred; the
// legacy default tab is the fallback.
var (
	credentialRanges = []string{"Credentials!A2:D", "Sheet1!A2:D"}
	userRanges       = []string{"Users!A2:E", "Sheet2!A2:E"}
	permissionRange  = "Permissions!A2:B"
)

// fetchWithFallback tries each range in order, moving on only when the
// range itself is missing. Other failures surface immediately.
func fetchWithFallback(ctx context.Context, rs RowSource, ranges []string) ([][]string, error) {
	var lastErr error
	for _, rng := range ranges {
		rows, err := rs.FetchRows(ctx, rng)
		if err == nil {
			return rows, nil
		}
		if !errors.Is(err, ErrRangeNotFound) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// Client reads credential, user, and permission rows through a RowSource.
type Client struct {
	rows RowSource
}

// NewClient wraps a RowSource.
func NewClient(rows RowSource) *Client {
	return &Client{rows: rows}
}

// FetchCredentials returns all credential rows in source order. Rows
// missing a URL, username, or password are dropped. IDs are positional:
// the row number in the source, with data starting at row 2.
func (c *Client) FetchCredentials(ctx context.Context) ([]models.CredentialRecord, error) {
	rows, err := fetchWithFallback(ctx, c.rows, credentialRanges)
	if err != nil {
		return nil, fmt.Errorf("fetching credentials: %w", err)
	}
	return ParseCredentialRows(rows), nil
}

// FetchUsers returns all user directory rows.
func (c *Client) FetchUsers(ctx context.Context) ([]models.UserRecord, error) {
	rows, err := fetchWithFallback(ctx, c.rows, userRanges)
	if err != nil {
		return nil, fmt.Errorf("fetching users: %w", err)
	}
	return ParseUserRows(rows), nil
}

// FetchPermissions returns explicit per-credential grants. A missing
// permissions tab is not an error: name-based grants still apply.
func (c *Client) FetchPermissions(ctx context.Context) ([]models.PermissionGrant, error) {
	rows, err := c.rows.FetchRows(ctx, permissionRange)
	if err != nil {
		if errors.Is(err, ErrRangeNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching permissions: %w", err)
	}
	return ParsePermissionRows(rows), nil
}

// ValidateUser checks a user id and password against the directory.
// The comparison is plaintext, matching the directory's stored value as-is.
// Returns nil when no row matches.
func (c *Client) ValidateUser(ctx context.Context, userID, password string) (*models.Identity, error) {
	users, err := c.FetchUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.UserID == userID && u.Password == password {
			id := u.Identity()
			return &id, nil
		}
	}
	return nil, nil
}

// ParseCredentialRows maps raw rows to credential records.
func ParseCredentialRows(rows [][]string) []models.CredentialRecord {
	out := make([]models.CredentialRecord, 0, len(rows))
	for i, row := range rows {
		c := models.CredentialRecord{
			ID:         i + 2, // row number in the source
			WebsiteURL: cell(row, 0),
			Username:   cell(row, 1),
			Password:   cell(row, 2),
			Grantees:   strings.TrimSpace(cell(row, 3)),
		}
		if c.WebsiteURL == "" || c.Username == "" || c.Password == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ParseUserRows maps raw rows to user records, dropping rows without a
// user id or password. Role defaults to staff.
func ParseUserRows(rows [][]string) []models.UserRecord {
	out := make([]models.UserRecord, 0, len(rows))
	for _, row := range rows {
		u := models.UserRecord{
			UserID:   cell(row, 0),
			Password: cell(row, 1),
			FullName: cell(row, 2),
			Email:    cell(row, 3),
			Role:     models.ParseRole(cell(row, 4)),
		}
		if u.UserID == "" || u.Password == "" {
			continue
		}
		out = append(out, u)
	}
	return out
}

// ParsePermissionRows maps raw rows to permission grants. The first cell
// is a credential id, the second a comma-separated user id list.
func ParsePermissionRows(rows [][]string) []models.PermissionGrant {
	out := make([]models.PermissionGrant, 0, len(rows))
	for _, row := range rows {
		id, err := strconv.Atoi(strings.TrimSpace(cell(row, 0)))
		if err != nil || id == 0 {
			continue
		}
		var allowed []string
		for _, uid := range strings.Split(cell(row, 1), ",") {
			if uid = strings.TrimSpace(uid); uid != "" {
				allowed = append(allowed, uid)
			}
		}
		out = append(out, models.PermissionGrant{CredentialID: id, AllowedUserIDs: allowed})
	}
	return out
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
