// Package model defines the value objects shared by the conflict-detection
// engine: merge request summaries, detected conflicts, and the label
// convention used to persist analysis state on the platform.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// ConflictsLabelName marks an MR that has at least one active conflict
	ConflictsLabelName = "conflicts"
	// ConflictLabelPrefix prefixes a label naming a specific conflicting peer
	ConflictLabelPrefix = "conflict:MR"
)

// Reason classifies why two merge requests conflict
type Reason string

const (
	// DirectConflict means both merge requests target the same branch
	DirectConflict Reason = "DirectConflict"
	// CrossBranchConflict means the merge requests target different branches
	CrossBranchConflict Reason = "CrossBranchConflict"
)

// MergeRequestSummary is an immutable snapshot of one merge request used by
// the detection engine. It is produced once per run and never mutated.
type MergeRequestSummary struct {
	ID            int64
	Title         string
	SourceBranch  string
	TargetBranch  string
	ChangedFiles  map[string]struct{}
	Labels        map[string]struct{}
	Draft         bool
}

// DisplayTitle renders the title, falling back to "Untitled" when empty.
func (m *MergeRequestSummary) DisplayTitle() string {
	if m.Title == "" {
		return "Untitled"
	}
	return m.Title
}

// HasLabel reports whether the MR currently carries the given label.
func (m *MergeRequestSummary) HasLabel(label string) bool {
	_, ok := m.Labels[label]
	return ok
}

// Conflict is derived from exactly two distinct merge requests. First and
// Second are held in canonical order (First.ID < Second.ID) so that equality
// and deduplication depend only on the unordered pair of ids.
type Conflict struct {
	First  *MergeRequestSummary
	Second *MergeRequestSummary
	Files  map[string]struct{}
	Reason Reason
}

// NewConflict builds a Conflict, placing the two summaries into canonical
// (ascending id) order regardless of the order they are passed in.
func NewConflict(a, b *MergeRequestSummary, files map[string]struct{}, reason Reason) *Conflict {
	if a.ID > b.ID {
		a, b = b, a
	}
	return &Conflict{First: a, Second: b, Files: files, Reason: reason}
}

// Key returns the canonical pair key used for dedup and sorting.
func (c *Conflict) Key() (int64, int64) {
	return c.First.ID, c.Second.ID
}

// PeerID returns the id of the merge request on the opposite side of mrID.
// It panics if mrID is not one of the two participants — callers are
// expected to have obtained the Conflict via a lookup keyed by mrID.
func (c *Conflict) PeerID(mrID int64) int64 {
	switch mrID {
	case c.First.ID:
		return c.Second.ID
	case c.Second.ID:
		return c.First.ID
	default:
		panic(fmt.Sprintf("model: merge request %d is not a participant in this conflict", mrID))
	}
}

// PeerLabel renders the conflict:MR<N> label naming peerID as a conflicting
// counterpart.
func PeerLabel(peerID int64) string {
	return fmt.Sprintf("%s%d", ConflictLabelPrefix, peerID)
}

// ParsePeerID extracts the peer id from a conflict:MR<N> label. ok is false
// if label does not carry the expected prefix or the suffix is not a valid
// positive integer.
func ParsePeerID(label string) (id int64, ok bool) {
	if !strings.HasPrefix(label, ConflictLabelPrefix) {
		return 0, false
	}
	suffix := strings.TrimPrefix(label, ConflictLabelPrefix)
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// IsPeerLabel reports whether label matches the conflict:MR* convention.
func IsPeerLabel(label string) bool {
	_, ok := ParsePeerID(label)
	return ok
}
