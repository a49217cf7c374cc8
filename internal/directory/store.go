// Package directory implements the credential directory backend: the
// authoritative store of users, credential rows, and permission grants
// that vault agents fetch from.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/org/credvault/pkg/models"
)

// ErrNotFound is returned when a directory lookup matches nothing.
var ErrNotFound = errors.New("directory: not found")

// Store is the persistence boundary of the directory server.
type Store interface {
	// Users returns every directory user row.
	Users(ctx context.Context) ([]models.UserRecord, error)
	// Credentials returns every credential row in source order. The
	// returned IDs are stable row positions, not database surrogates.
	Credentials(ctx context.Context) ([]models.CredentialRecord, error)
	// Permissions returns per-credential user-id grants.
	Permissions(ctx context.Context) ([]models.PermissionGrant, error)
	Close()
}

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pgxpool connection and returns a ready store.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}

func (p *PostgresStore) Users(ctx context.Context) ([]models.UserRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT user_id, password, full_name, email, role FROM users ORDER BY row_position`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.UserRecord
	for rows.Next() {
		var u models.UserRecord
		var role string
		if err := rows.Scan(&u.UserID, &u.Password, &u.FullName, &u.Email, &role); err != nil {
			return nil, err
		}
		u.Role = models.ParseRole(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (p *PostgresStore) Credentials(ctx context.Context) ([]models.CredentialRecord, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT row_position, website_url, username, password, grantees
		 FROM credentials ORDER BY row_position`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []models.CredentialRecord
	for rows.Next() {
		var c models.CredentialRecord
		if err := rows.Scan(&c.ID, &c.WebsiteURL, &c.Username, &c.Password, &c.Grantees); err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

func (p *PostgresStore) Permissions(ctx context.Context) ([]models.PermissionGrant, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT credential_id, allowed_user_ids FROM permissions ORDER BY credential_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []models.PermissionGrant
	for rows.Next() {
		var g models.PermissionGrant
		var allowed string
		if err := rows.Scan(&g.CredentialID, &allowed); err != nil {
			return nil, err
		}
		// Stored in the source's own format: a comma-separated id list.
		for _, uid := range strings.Split(allowed, ",") {
			if uid = strings.TrimSpace(uid); uid != "" {
				g.AllowedUserIDs = append(g.AllowedUserIDs, uid)
			}
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
