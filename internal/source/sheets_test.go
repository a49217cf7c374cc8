package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/org/credvault/pkg/models"
)

func reqJane() models.Requester {
	return models.Requester{UserID: "u1", Role: models.RoleStaff, FullName: "Jane Doe"}
}

func TestSheetsValuesFetchRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		switch {
		case r.URL.Path == "/sheet-1/values/Credentials!A2:D":
			w.Write([]byte(`{"values":[["example.com","admin","pw","Jane Doe"]]}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	s := NewSheetsValues(srv.URL, "sheet-1", "test-key")
	rows, err := s.FetchRows(context.Background(), "Credentials!A2:D")
	if err != nil {
		t.Fatalf("FetchRows failed: %v", err)
	}
	if len(rows) != 1 || rows[0][1] != "admin" {
		t.Errorf("unexpected rows: %+v", rows)
	}

	_, err = s.FetchRows(context.Background(), "Nope!A2:D")
	if !errors.Is(err, ErrRangeNotFound) {
		t.Errorf("400 should map to ErrRangeNotFound, got %v", err)
	}
}

func TestSheetsValuesAccessDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := NewSheetsValues(srv.URL, "sheet-1", "bad-key")
	_, err := s.FetchRows(context.Background(), "Credentials!A2:D")
	if !errors.Is(err, ErrAccessDenied) {
		t.Errorf("403 should map to ErrAccessDenied, got %v", err)
	}
}

func TestSheetsSourceResolvesLocally(t *testing.T) {
	rs := &fakeRows{ranges: map[string][][]string{
		"Credentials!A2:D": {
			{"example.com", "admin", "pw1", "Jane Doe"},
			{"granted.org", "ops", "pw2"},
			{"hidden.net", "svc", "pw3"},
		},
		"Permissions!A2:B": {
			{"3", "u1"},
		},
	}}
	src := NewSheetsSource(rs)

	creds, err := src.FetchCredentials(context.Background(), reqJane())
	if err != nil {
		t.Fatalf("FetchCredentials failed: %v", err)
	}
	if len(creds) != 2 || creds[0].ID != 2 || creds[1].ID != 3 {
		t.Errorf("expected rows 2 and 3 in order, got %+v", creds)
	}
}
