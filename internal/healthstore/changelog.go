// ABOUTME: Sequence-numbered change log shared by the platform store implementations.
// ABOUTME: Answers anchored fetches with added/deleted sets and full scans when no anchor is given.
package healthstore

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
)

type changeOp string

const (
	opWrite  changeOp = "write"
	opDelete changeOp = "delete"
)

// matchWindow and matchEpsilon bound FindMatchingIdentifier.
const (
	matchWindow  = time.Minute
	matchEpsilon = 0.1
)

type change struct {
	Seq  uint64   `json:"seq"`
	Op   changeOp `json:"op"`
	Item Item     `json:"item"`
}

type changeLog struct {
	changes []change
	lastSeq uint64
}

func newIdentifier() string {
	return ulid.Make().String()
}

func (l *changeLog) add(c change) {
	l.changes = append(l.changes, c)
	if c.Seq > l.lastSeq {
		l.lastSeq = c.Seq
	}
}

func (l *changeLog) record(op changeOp, item Item) change {
	c := change{Seq: l.lastSeq + 1, Op: op, Item: item}
	l.add(c)
	return c
}

// live replays the log into the current item set.
func (l *changeLog) live() map[string]Item {
	items := make(map[string]Item)
	for _, c := range l.changes {
		switch c.Op {
		case opWrite:
			items[c.Item.Identifier] = c.Item
		case opDelete:
			delete(items, c.Item.Identifier)
		}
	}
	return items
}

func (l *changeLog) lookup(id string) (Item, bool) {
	item, ok := l.live()[id]
	return item, ok
}

func (l *changeLog) fetch(anchor Anchor, r DateRange) (*FetchResult, error) {
	result := &FetchResult{Anchor: encodeAnchor(l.lastSeq)}

	if anchor == nil {
		for _, item := range l.live() {
			if r.Contains(item.Start) {
				result.Added = append(result.Added, item)
			}
		}
		sortItems(result.Added)
		return result, nil
	}

	since, err := decodeAnchor(anchor)
	if err != nil {
		return nil, err
	}

	// Last change per identifier after the anchor decides whether it is
	// reported as added or deleted.
	final := make(map[string]change)
	for _, c := range l.changes {
		if c.Seq > since {
			final[c.Item.Identifier] = c
		}
	}
	for _, c := range final {
		if !r.Contains(c.Item.Start) {
			continue
		}
		switch c.Op {
		case opWrite:
			result.Added = append(result.Added, c.Item)
		case opDelete:
			result.Deleted = append(result.Deleted, c.Item)
		}
	}
	sortItems(result.Added)
	sortItems(result.Deleted)
	return result, nil
}

func (l *changeLog) findMatching(at time.Time, value float64) string {
	best := ""
	var bestDelta time.Duration = math.MaxInt64
	for id, item := range l.live() {
		delta := item.Start.Sub(at)
		if delta < 0 {
			delta = -delta
		}
		if delta > matchWindow || math.Abs(item.Value-value) >= matchEpsilon {
			continue
		}
		if delta < bestDelta {
			best, bestDelta = id, delta
		}
	}
	return best
}

func sortItems(items []Item) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].Start.Before(items[j].Start)
	})
}

func encodeAnchor(seq uint64) Anchor {
	return Anchor("v1:" + strconv.FormatUint(seq, 10))
}

func decodeAnchor(a Anchor) (uint64, error) {
	s := string(a)
	if len(s) < 4 || s[:3] != "v1:" {
		return 0, ErrInvalidAnchor
	}
	seq, err := strconv.ParseUint(s[3:], 10, 64)
	if err != nil {
		return 0, ErrInvalidAnchor
	}
	return seq, nil
}
