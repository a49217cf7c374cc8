package page

import (
	"errors"
	"strings"
)

// ErrNoLoginForm is returned when no usable password field exists on the
// page. It is reported distinctly from credential-retrieval failures so
// the UI can say "found credential but no form on this page".
var ErrNoLoginForm = errors.New("no login form on page")

// Target is a detected username/password field pair. Username is -1 when
// only a password field was found.
type Target struct {
	Username int `json:"username_field"`
	Password int `json:"password_field"`
}

// usernameStrategy proposes a username field within a scope of candidate
// field indexes. Returns -1 when it cannot. Strategies are data: new
// heuristics slot into the list without touching control flow.
type usernameStrategy struct {
	name string
	find func(doc *Document, scope []int, password int) int
}

var usernameStrategies = []usernameStrategy{
	{"email-type", func(doc *Document, scope []int, _ int) int {
		for _, i := range scope {
			if f := doc.Fields[i]; f.Type == "email" && f.usable() {
				return i
			}
		}
		return -1
	}},
	{"attribute-hint", func(doc *Document, scope []int, _ int) int {
		for _, i := range scope {
			f := doc.Fields[i]
			if f.usable() && f.textLike() && hasIdentityHint(f) {
				return i
			}
		}
		return -1
	}},
	{"visible-text", func(doc *Document, scope []int, _ int) int {
		for _, i := range scope {
			if f := doc.Fields[i]; f.Type == "text" && f.usable() {
				return i
			}
		}
		return -1
	}},
	{"preceding-input", func(doc *Document, scope []int, password int) int {
		// Nearest text/email input before the password, document order.
		best := -1
		for _, i := range scope {
			if i < password && doc.Fields[i].textLike() && doc.Fields[i].usable() {
				best = i
			}
		}
		return best
	}},
}

// identityHints are the attribute substrings that mark a username field.
var identityHints = []string{"email", "user", "login"}

func hasIdentityHint(f Field) bool {
	for _, hint := range identityHints {
		if strings.Contains(strings.ToLower(f.Name), hint) ||
			strings.Contains(strings.ToLower(f.ID), hint) ||
			strings.Contains(strings.ToLower(f.Autocomplete), hint) {
			return true
		}
	}
	// autocomplete="username" carries no "user" substring ambiguity but
	// is covered by the hint list above; keep explicit values too.
	ac := strings.ToLower(f.Autocomplete)
	return ac == "username" || ac == "email"
}

// FindLoginFields locates the injection target: the first visible,
// non-disabled password input, then a companion identity field found by
// trying the ordered strategies within the password's form (or the whole
// document when the password sits outside any form).
func FindLoginFields(doc *Document) (Target, error) {
	password := -1
	for i, f := range doc.Fields {
		if f.Type == "password" && f.usable() {
			password = i
			break
		}
	}
	if password < 0 {
		return Target{}, ErrNoLoginForm
	}

	scope := scopeOf(doc, password)
	for _, strat := range usernameStrategies {
		if i := strat.find(doc, scope, password); i >= 0 {
			return Target{Username: i, Password: password}, nil
		}
	}
	// A lone password field is still fillable.
	return Target{Username: -1, Password: password}, nil
}

// scopeOf returns the indexes of non-password fields sharing the password
// field's form, or all non-password fields when it has no form.
func scopeOf(doc *Document, password int) []int {
	form := doc.Fields[password].Form
	var scope []int
	for i, f := range doc.Fields {
		if i == password || f.Type == "password" {
			continue
		}
		if form >= 0 && f.Form != form {
			continue
		}
		scope = append(scope, i)
	}
	return scope
}
