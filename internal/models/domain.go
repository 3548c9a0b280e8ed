// ABOUTME: Domain and provenance enums plus the Record fields shared by every history entry.
// ABOUTME: Entry is the contract the generic sync engine and history store operate on.
package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Domain identifies one independently synchronized category of health data.
type Domain string

const (
	DomainFasting   Domain = "fasting"
	DomainWeight    Domain = "weight"
	DomainHydration Domain = "hydration"
	DomainSleep     Domain = "sleep"
	DomainMood      Domain = "mood"
)

// AllDomains lists every supported domain in display order.
var AllDomains = []Domain{DomainFasting, DomainWeight, DomainHydration, DomainSleep, DomainMood}

// IsValidDomain checks if a string names a supported domain.
func IsValidDomain(s string) bool {
	for _, d := range AllDomains {
		if string(d) == s {
			return true
		}
	}
	return false
}

// ParseDomain converts s to a Domain, accepting "water" as an alias for hydration.
func ParseDomain(s string) (Domain, error) {
	if s == "water" {
		return DomainHydration, nil
	}
	if !IsValidDomain(s) {
		return "", fmt.Errorf("unknown domain: %s (valid: fasting, weight, hydration, sleep, mood)", s)
	}
	return Domain(s), nil
}

// Source records where an entry came from.
type Source string

const (
	// SourceManual entries are user-authored and eligible for write-through.
	SourceManual Source = "manual"
	// SourceExternal entries were imported from the platform health store.
	SourceExternal Source = "external"
)

// ErrInvalidEntry is wrapped by every Validate failure.
var ErrInvalidEntry = errors.New("invalid entry")

// Record holds the fields every history entry carries.
type Record struct {
	ID         uuid.UUID `json:"id" yaml:"id"`
	Source     Source    `json:"source" yaml:"source"`
	ExternalID string    `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// NewRecord creates a Record with a fresh UUID.
func NewRecord(source Source) Record {
	return Record{
		ID:        uuid.New(),
		Source:    source,
		CreatedAt: time.Now(),
	}
}

// Base returns the shared record fields.
func (r *Record) Base() *Record {
	return r
}

// IsManual reports whether the entry was user-authored.
func (r *Record) IsManual() bool {
	return r.Source == SourceManual
}

// Entry is implemented by the pointer form of each domain entry type.
type Entry interface {
	Base() *Record
	// Timestamp is the primary time used for ordering and range filtering.
	Timestamp() time.Time
	Validate() error
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidEntry, fmt.Sprintf(format, args...))
}
