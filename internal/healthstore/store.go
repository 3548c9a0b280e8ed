// ABOUTME: Contract for the platform health data store the sync engine reconciles against.
// ABOUTME: Defines items, opaque anchors, date ranges, authorization status, and observer subscriptions.
package healthstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/healthsync/internal/models"
)

var (
	// ErrNotAuthorized is returned when the user has not granted access to a domain.
	ErrNotAuthorized = errors.New("health store access not authorized")
	// ErrNotFound is returned when deleting an identifier the store does not hold.
	ErrNotFound = errors.New("health store item not found")
	// ErrInvalidAnchor is returned when an anchor cannot be decoded.
	ErrInvalidAnchor = errors.New("invalid anchor")
)

// AuthStatus is the authorization state for one domain.
type AuthStatus int

const (
	AuthNotDetermined AuthStatus = iota
	AuthDenied
	AuthAuthorized
)

// String returns the status name.
func (s AuthStatus) String() string {
	switch s {
	case AuthNotDetermined:
		return "not_determined"
	case AuthDenied:
		return "denied"
	case AuthAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s AuthStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *AuthStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "not_determined":
		*s = AuthNotDetermined
	case "denied":
		*s = AuthDenied
	case "authorized":
		*s = AuthAuthorized
	default:
		return fmt.Errorf("unknown auth status: %q", string(b))
	}
	return nil
}

// Item is a sample as the platform store represents it. Point samples
// (weight, hydration, mood) leave End zero; interval samples set both.
type Item struct {
	Identifier string        `json:"identifier"`
	Domain     models.Domain `json:"domain"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end,omitzero"`
	Value      float64       `json:"value"`
	Secondary  float64       `json:"secondary,omitempty"`
	SourceName string        `json:"source_name,omitempty"`
}

// Anchor is an opaque fetch cursor. A nil Anchor requests a full range scan.
type Anchor []byte

// DateRange bounds a fetch by item start time. A zero End means open-ended.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range, inclusive.
func (r DateRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// FetchResult is the answer to an anchored fetch.
type FetchResult struct {
	Added   []Item
	Deleted []Item
	Anchor  Anchor
}

// Subscription identifies a registered observer.
type Subscription uint64

// Store is the platform health store as seen by one device.
type Store interface {
	AuthorizationStatus(d models.Domain) AuthStatus
	RequestAuthorization(ctx context.Context, d models.Domain) error

	// FetchIncremental returns items added and deleted since anchor within r.
	// With a nil anchor it returns every live item in r and no deletions.
	FetchIncremental(ctx context.Context, d models.Domain, anchor Anchor, r DateRange) (*FetchResult, error)

	// Write stores item and returns the identifier the store assigned.
	Write(ctx context.Context, item Item) (string, error)
	DeleteByIdentifier(ctx context.Context, d models.Domain, id string) error
	// FindMatchingIdentifier returns "" when no live item matches.
	FindMatchingIdentifier(ctx context.Context, d models.Domain, at time.Time, value float64) (string, error)

	RegisterObserver(d models.Domain, onChange func()) (Subscription, error)
	Unregister(sub Subscription) error
}
