package page

import (
	"fmt"

	"github.com/org/credvault/internal/crypto"
)

// fillEvents are dispatched after setting each field's value so host-page
// scripts observe the change as if typed. Many login forms validate on
// these events; skipping them breaks submission.
var fillEvents = []string{"input", "change", "blur"}

// Applier applies value and event operations to page fields. The page
// agent implements it against the live document; tests implement it
// in memory.
type Applier interface {
	SetValue(field int, value string) error
	DispatchEvent(field int, event string) error
}

// Inject fills the target fields with the credential values and notifies
// the page. The secret bytes are wiped before returning, whatever the
// outcome; nothing is retained across invocations.
func Inject(target Target, username string, secret []byte, a Applier) error {
	defer crypto.Wipe(secret)

	if target.Username >= 0 {
		if err := fill(a, target.Username, username); err != nil {
			return fmt.Errorf("filling username field: %w", err)
		}
	}
	if err := fill(a, target.Password, string(secret)); err != nil {
		return fmt.Errorf("filling password field: %w", err)
	}
	return nil
}

func fill(a Applier, field int, value string) error {
	if err := a.SetValue(field, value); err != nil {
		return err
	}
	for _, ev := range fillEvents {
		if err := a.DispatchEvent(field, ev); err != nil {
			return err
		}
	}
	return nil
}
