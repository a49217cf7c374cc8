package api

import (
	"net/http"

	"github.com/org/credvault/internal/page"
	"github.com/org/credvault/pkg/models"
)

// fillStep is one operation the page agent performs against the live
// document: set a field's value, then fire the listed events.
type fillStep struct {
	Field  int      `json:"field"`
	Value  string   `json:"value"`
	Events []string `json:"events"`
}

// planApplier builds the ordered fill plan returned to the page agent.
type planApplier struct {
	steps []fillStep
}

func (p *planApplier) SetValue(field int, value string) error {
	p.steps = append(p.steps, fillStep{Field: field, Value: value})
	return nil
}

func (p *planApplier) DispatchEvent(field int, event string) error {
	last := &p.steps[len(p.steps)-1]
	last.Events = append(last.Events, event)
	return nil
}

// PageFillHandler handles POST /v1/page/fill: the "inject these literal
// values" command. The page agent sends its document snapshot and the
// selected credential id; the agent answers with the fill plan. A page
// with no detectable login form fails distinctly from retrieval errors.
func (s *Server) PageFillHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL          string        `json:"url"`
		CredentialID int           `json:"credential_id"`
		Document     page.Document `json:"document"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" || req.CredentialID == 0 {
		writeError(w, http.StatusBadRequest, "url and credential_id are required")
		return
	}

	// Double-fill guard: a fill moments ago on the same page wins.
	if recent, err := s.vault.RecentlyInjected(r.Context(), req.URL); err != nil {
		writeFailure(w, err)
		return
	} else if recent {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "skipped": "recently filled"})
		return
	}

	// The credential must actually match the page it is injected into.
	matches, err := s.vault.ListForPage(r.Context(), req.URL)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if !containsID(matches, req.CredentialID) {
		writeError(w, http.StatusForbidden, "credential does not match this page")
		return
	}

	target, err := page.FindLoginFields(&req.Document)
	if err != nil {
		writeFailure(w, err)
		return
	}

	values, err := s.vault.Reveal(r.Context(), req.CredentialID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	revealsTotal.Inc()

	plan := &planApplier{}
	if err := page.Inject(target, values.Username, values.Secret, plan); err != nil {
		writeFailure(w, err)
		return
	}
	if err := s.vault.RecordInjection(r.Context(), req.URL); err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"target":  target,
		"steps":   plan.steps,
	})
}

func containsID(creds []models.SafeCredential, id int) bool {
	for _, c := range creds {
		if c.ID == id {
			return true
		}
	}
	return false
}
