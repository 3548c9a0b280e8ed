// ABOUTME: Domain adapter contract the generic engine is parameterized by.
// ABOUTME: Converts between history entries, platform items, and dedup samples.
package sync

import (
	"time"

	"github.com/harperreed/healthsync/internal/aggregate"
	"github.com/harperreed/healthsync/internal/dedup"
	"github.com/harperreed/healthsync/internal/healthstore"
	"github.com/harperreed/healthsync/internal/models"
)

// Adapter supplies everything domain-specific about one entry type.
type Adapter[T models.Entry] interface {
	Domain() models.Domain

	// ToEntry builds a history entry from a platform item. The engine sets
	// provenance and the external identifier afterwards.
	ToEntry(item healthstore.Item) (T, error)

	// ToItem builds the platform item for a write-through. ok is false for
	// entries that must not be written yet, such as an open fast.
	ToItem(entry T) (item healthstore.Item, ok bool)

	Sample(entry T) dedup.Sample

	// Aggregate recomputes the domain snapshot from the full history.
	Aggregate(entries []T, now time.Time) aggregate.Snapshot
}
