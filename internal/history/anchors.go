// ABOUTME: Anchor Store and Preference Store over the storage records.
// ABOUTME: Anchors are opaque bytes; preferences are a small JSON document.
package history

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harperreed/healthsync/internal/healthstore"
	"github.com/harperreed/healthsync/internal/models"
	"github.com/harperreed/healthsync/internal/storage"
)

// AnchorStore persists the last-seen fetch cursor per domain.
type AnchorStore struct {
	repo storage.Repository
}

// NewAnchorStore returns an anchor store over repo.
func NewAnchorStore(repo storage.Repository) *AnchorStore {
	return &AnchorStore{repo: repo}
}

// Load returns the stored anchor, or nil when none exists.
func (a *AnchorStore) Load(d models.Domain) (healthstore.Anchor, error) {
	data, err := a.repo.Get(storage.KindAnchor, d)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s anchor: %w", d, err)
	}
	return healthstore.Anchor(data), nil
}

// Save stores anchor for d.
func (a *AnchorStore) Save(d models.Domain, anchor healthstore.Anchor) error {
	if err := a.repo.Put(storage.KindAnchor, d, anchor); err != nil {
		return fmt.Errorf("save %s anchor: %w", d, err)
	}
	return nil
}

// Reset discards the anchor so the next fetch is a full range scan.
func (a *AnchorStore) Reset(d models.Domain) error {
	if err := a.repo.Delete(storage.KindAnchor, d); err != nil {
		return fmt.Errorf("reset %s anchor: %w", d, err)
	}
	return nil
}

// PreferenceStore persists sync preferences per domain.
type PreferenceStore struct {
	repo storage.Repository
}

// NewPreferenceStore returns a preference store over repo.
func NewPreferenceStore(repo storage.Repository) *PreferenceStore {
	return &PreferenceStore{repo: repo}
}

// Load returns the stored preference; a missing record is sync disabled.
func (p *PreferenceStore) Load(d models.Domain) (models.SyncPreference, error) {
	var pref models.SyncPreference
	data, err := p.repo.Get(storage.KindPreferences, d)
	if errors.Is(err, storage.ErrNotFound) {
		return pref, nil
	}
	if err != nil {
		return pref, fmt.Errorf("load %s preferences: %w", d, err)
	}
	if err := json.Unmarshal(data, &pref); err != nil {
		return pref, fmt.Errorf("decode %s preferences: %w", d, err)
	}
	return pref, nil
}

// Save stores pref for d.
func (p *PreferenceStore) Save(d models.Domain, pref models.SyncPreference) error {
	data, err := json.Marshal(pref)
	if err != nil {
		return fmt.Errorf("encode %s preferences: %w", d, err)
	}
	if err := p.repo.Put(storage.KindPreferences, d, data); err != nil {
		return fmt.Errorf("save %s preferences: %w", d, err)
	}
	return nil
}
