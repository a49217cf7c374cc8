package page

// Field is one input element from the page's document snapshot, in
// document order.
type Field struct {
	// Type is the input type attribute: "text", "email", "password", etc.
	Type string `json:"type"`
	Name string `json:"name"`
	ID   string `json:"id"`
	// Autocomplete is the autocomplete attribute, e.g. "username".
	Autocomplete string `json:"autocomplete"`
	Disabled     bool   `json:"disabled"`
	// Visible means the element has non-null layout; display:none
	// ancestry makes it false.
	Visible bool `json:"visible"`
	// Form is the index of the enclosing form, or -1 when the field sits
	// outside any form.
	Form int `json:"form"`
}

// Document is the page agent's snapshot of the page's inputs.
type Document struct {
	Fields []Field `json:"fields"`
}

// usable reports whether the field can receive an injected value.
func (f Field) usable() bool {
	return f.Visible && !f.Disabled
}

// textLike reports whether the field can hold an identity value.
func (f Field) textLike() bool {
	return f.Type == "text" || f.Type == "email"
}
