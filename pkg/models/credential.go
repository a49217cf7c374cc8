package models

// CredentialRecord is the source-of-truth shape of one directory row.
// The core never mutates records, only filters and transforms them.
type CredentialRecord struct {
	// ID is the row position in the source (data starts at row 2).
	// IDs are stable within one cache generation only.
	ID         int    `json:"id"`
	WebsiteURL string `json:"websiteUrl"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	// Grantees is a free-text, comma-separated list of display names
	// allowed to use this credential.
	Grantees string `json:"granteeNames,omitempty"`
}

// PermissionGrant is an explicit user-id allow-list for one credential,
// independent of the grantee name list. Absence of a grant means
// "no explicit grant", not "deny".
type PermissionGrant struct {
	CredentialID   int      `json:"credentialId"`
	AllowedUserIDs []string `json:"allowedUserIds"`
}

// Allows reports whether the grant lists the given user id (exact match).
func (g PermissionGrant) Allows(userID string) bool {
	for _, id := range g.AllowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// CachedCredential is the at-rest cache shape. The secret exists only as
// an AES-GCM envelope; plaintext is never stored here.
type CachedCredential struct {
	ID         int
	WebsiteURL string
	Username   string
	Nonce      []byte
	Ciphertext []byte
}

// Safe returns the password-free projection exposed to display surfaces.
func (c CachedCredential) Safe() SafeCredential {
	return SafeCredential{ID: c.ID, WebsiteURL: c.WebsiteURL, Username: c.Username}
}

// SafeCredential is the only credential shape shown to the UI or the page
// context before an explicit user selection.
type SafeCredential struct {
	ID         int    `json:"id"`
	WebsiteURL string `json:"website_url"`
	Username   string `json:"username"`
}
