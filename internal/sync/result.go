// ABOUTME: Sync outcomes, skip reasons, and user-facing status messages.
// ABOUTME: Silent skips are routine states and produce no status text.
package sync

import (
	"errors"
	"fmt"

	"github.com/harperreed/healthsync/internal/models"
)

// Reasons a sync run was skipped without touching the store.
const (
	SkipDisabled     = "sync disabled"
	SkipUnauthorized = "not authorized"
	SkipSuppressed   = "suppressed"
)

var (
	// ErrDuplicate is returned when a manual entry collides with an existing one.
	ErrDuplicate = errors.New("entry already recorded")
	// ErrEntryNotFound is returned when an entry ID does not resolve.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrPlatform wraps write-through and external delete failures. The local
	// change has already been applied when it is returned.
	ErrPlatform = errors.New("health store update failed")
)

// Result reports what one sync run did.
type Result struct {
	Strategy models.SyncStrategy `json:"strategy"`
	Added    int                 `json:"added"`
	Removed  int                 `json:"removed"`
	Fetched  int                 `json:"fetched"`
	Skipped  string              `json:"skipped,omitempty"`
}

// Changed reports whether history was modified.
func (r Result) Changed() bool {
	return r.Added > 0 || r.Removed > 0
}

// Notifier is invoked after a sync run that added entries.
type Notifier func(d models.Domain, r Result)

// StatusMessage renders a result for the user. Skipped runs yield "".
func StatusMessage(r Result, err error) string {
	if err != nil {
		return err.Error()
	}
	if r.Skipped != "" {
		return ""
	}
	n := r.Added + r.Removed
	switch n {
	case 0:
		return "up to date"
	case 1:
		return "1 entry synced"
	default:
		return fmt.Sprintf("%d entries synced", n)
	}
}
