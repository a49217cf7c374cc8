package access

import (
	"reflect"
	"testing"

	"github.com/org/credvault/pkg/models"
)

func testCreds() []models.CredentialRecord {
	return []models.CredentialRecord{
		{ID: 2, WebsiteURL: "example.com", Username: "root", Grantees: "Jane Doe, Bob Roe"},
		{ID: 3, WebsiteURL: "app.example.com", Username: "ops", Grantees: ""},
		{ID: 4, WebsiteURL: "other.org", Username: "svc", Grantees: "Alice Poe"},
	}
}

func testGrants() []models.PermissionGrant {
	return []models.PermissionGrant{
		{CredentialID: 3, AllowedUserIDs: []string{"u1", "u7"}},
	}
}

func ids(creds []models.CredentialRecord) []int {
	out := make([]int, len(creds))
	for i, c := range creds {
		out[i] = c.ID
	}
	return out
}

func TestAdminSeesEverything(t *testing.T) {
	got := Resolve(testCreds(), testGrants(), models.Requester{UserID: "boss", Role: "Admin"})
	if !reflect.DeepEqual(ids(got), []int{2, 3, 4}) {
		t.Errorf("admin should see all credentials in source order, got %v", ids(got))
	}
}

func TestStaffNameAndGrantMatch(t *testing.T) {
	req := models.Requester{UserID: "u1", Role: models.RoleStaff, FullName: "Jane Doe"}
	got := Resolve(testCreds(), testGrants(), req)
	// ID 2 via grantee name, ID 3 via explicit grant, ID 4 neither.
	if !reflect.DeepEqual(ids(got), []int{2, 3}) {
		t.Errorf("expected [2 3], got %v", ids(got))
	}
}

func TestGranteeNameCaseInsensitive(t *testing.T) {
	req := models.Requester{UserID: "u9", Role: models.RoleStaff, FullName: "jane doe"}
	got := Resolve(testCreds(), nil, req)
	if !reflect.DeepEqual(ids(got), []int{2}) {
		t.Errorf("grantee match should ignore case, got %v", ids(got))
	}
}

func TestGrantUserIDCaseSensitive(t *testing.T) {
	req := models.Requester{UserID: "U1", Role: models.RoleStaff, FullName: "Nobody"}
	got := Resolve(testCreds(), testGrants(), req)
	if len(got) != 0 {
		t.Errorf("user id grant match is exact; expected nothing, got %v", ids(got))
	}
}

func TestFailClosedByDefault(t *testing.T) {
	creds := []models.CredentialRecord{{ID: 2, WebsiteURL: "x.com", Username: "a"}}
	req := models.Requester{UserID: "u1", Role: models.RoleStaff, FullName: "Jane Doe"}
	if got := Resolve(creds, nil, req); len(got) != 0 {
		t.Errorf("credential with no grantees and no grant must be invisible, got %v", ids(got))
	}
}

func TestUnknownRoleTreatedAsStaff(t *testing.T) {
	req := models.Requester{UserID: "u1", Role: "auditor", FullName: "Jane Doe"}
	got := Resolve(testCreds(), testGrants(), req)
	if !reflect.DeepEqual(ids(got), []int{2, 3}) {
		t.Errorf("non-admin roles filter like staff, got %v", ids(got))
	}
}

func TestResolveDeterministic(t *testing.T) {
	req := models.Requester{UserID: "u1", Role: models.RoleStaff, FullName: "Jane Doe"}
	a := Resolve(testCreds(), testGrants(), req)
	b := Resolve(testCreds(), testGrants(), req)
	if !reflect.DeepEqual(a, b) {
		t.Error("identical inputs must produce identical output")
	}
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	creds := testCreds()
	Resolve(creds, testGrants(), models.Requester{UserID: "u1", Role: models.RoleStaff, FullName: "Jane Doe"})
	if !reflect.DeepEqual(creds, testCreds()) {
		t.Error("resolver must not mutate its inputs")
	}
}
