// Package access computes which credentials an identity may use.
package access

import (
	"strings"

	"github.com/org/credvault/pkg/models"
)

// Resolve filters the full credential set down to what the requester may
// see. It is a pure function of its inputs: identical inputs produce an
// identical, source-ordered result.
//
// Admins (case-insensitive role check) see everything. Any other role sees
// a credential iff its grantee name list contains the requester's full name
// (comma-split, trimmed, case-insensitive), or an explicit grant for the
// credential id lists the requester's user id (exact match). A credential
// with neither a grantee list nor a grant is invisible to non-admins.
func Resolve(creds []models.CredentialRecord, grants []models.PermissionGrant, req models.Requester) []models.CredentialRecord {
	if strings.EqualFold(string(req.Role), string(models.RoleAdmin)) {
		out := make([]models.CredentialRecord, len(creds))
		copy(out, creds)
		return out
	}

	byID := make(map[int]models.PermissionGrant, len(grants))
	for _, g := range grants {
		byID[g.CredentialID] = g
	}

	out := make([]models.CredentialRecord, 0, len(creds))
	for _, c := range creds {
		if granteeListed(c.Grantees, req.FullName) || byID[c.ID].Allows(req.UserID) {
			out = append(out, c)
		}
	}
	return out
}

// granteeListed reports whether the comma-separated grantee list contains
// the given display name, ignoring case and surrounding whitespace.
func granteeListed(grantees, fullName string) bool {
	if grantees == "" || fullName == "" {
		return false
	}
	want := strings.ToLower(strings.TrimSpace(fullName))
	for _, name := range strings.Split(grantees, ",") {
		if strings.ToLower(strings.TrimSpace(name)) == want {
			return true
		}
	}
	return false
}
