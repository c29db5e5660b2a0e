package conflict

import (
	"sort"

	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/matcher"
	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/model"
)

// Logger is the minimal structured-logging surface the detector needs; it is
// satisfied by *internal/logger.Logger without importing it directly.
type Logger interface {
	Warnf(format string, args ...interface{})
}

type pairKey struct {
	first  int64
	second int64
}

// DetectConflicts drives every registered strategy across every unordered
// pair of merge requests exactly once, deduplicating emitted conflicts by
// their canonical pair key and returning them sorted by (first.id,
// second.id) ascending. A strategy that panics on a given pair is treated
// as "no conflict" for that pair; the run continues (§4.3 failure model).
func DetectConflicts(mrs []*model.MergeRequestSummary, ignore *matcher.Matcher, strategies []Strategy, log Logger) []*model.Conflict {
	if len(strategies) == 0 {
		strategies = []Strategy{DefaultStrategy}
	}

	seen := make(map[pairKey]*model.Conflict)

	for i := 0; i < len(mrs); i++ {
		for j := i + 1; j < len(mrs); j++ {
			a, b := mrs[i], mrs[j]
			for _, strategy := range strategies {
				conflict := invokeStrategy(strategy, a, b, ignore, log)
				if conflict == nil {
					continue
				}
				first, second := conflict.Key()
				key := pairKey{first: first, second: second}
				if _, exists := seen[key]; !exists {
					seen[key] = conflict
				}
			}
		}
	}

	out := make([]*model.Conflict, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		ki1, ki2 := out[i].Key()
		kj1, kj2 := out[j].Key()
		if ki1 != kj1 {
			return ki1 < kj1
		}
		return ki2 < kj2
	})

	return out
}

func invokeStrategy(strategy Strategy, a, b *model.MergeRequestSummary, ignore *matcher.Matcher, log Logger) (result *model.Conflict) {
	defer func() {
		if r := recover(); r != nil {
			if log != nil {
				log.Warnf("detection strategy panicked for pair (%d, %d), treating as no conflict: %v", a.ID, b.ID, r)
			}
			result = nil
		}
	}()
	return strategy(a, b, ignore)
}

// ConflictingIDs returns the union of merge request ids appearing in any of
// the given conflicts.
func ConflictingIDs(conflicts []*model.Conflict) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, c := range conflicts {
		ids[c.First.ID] = struct{}{}
		ids[c.Second.ID] = struct{}{}
	}
	return ids
}

// ConflictsForMR returns every conflict from conflicts that involves mrID.
func ConflictsForMR(conflicts []*model.Conflict, mrID int64) []*model.Conflict {
	var out []*model.Conflict
	for _, c := range conflicts {
		if c.First.ID == mrID || c.Second.ID == mrID {
			out = append(out, c)
		}
	}
	return out
}

// FilterDrafts removes draft merge requests unless includeDrafts is set, per
// the resolved Open Question on draft handling (spec.md §9).
func FilterDrafts(mrs []*model.MergeRequestSummary, includeDrafts bool) []*model.MergeRequestSummary {
	if includeDrafts {
		return mrs
	}
	out := make([]*model.MergeRequestSummary, 0, len(mrs))
	for _, mr := range mrs {
		if !mr.Draft {
			out = append(out, mr)
		}
	}
	return out
}
