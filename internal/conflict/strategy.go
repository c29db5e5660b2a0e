// Package conflict implements the pairwise conflict-detection strategy and
// the multi-merge-request detector that drives it across every open pair.
package conflict

import (
	"strings"

	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/matcher"
	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/model"
)

// Strategy decides whether two merge requests conflict, given the current
// ignore-pattern matcher. It returns a nil Conflict when none is detected.
// Strategies must be side-effect-free and deterministic.
type Strategy func(a, b *model.MergeRequestSummary, ignore *matcher.Matcher) *model.Conflict

// DefaultStrategy implements the seven-step decision procedure: dependency
// suppression, empty-change-set short-circuit, a top-level-directory
// disjointness heuristic, file-set intersection, ignore filtering, and
// finally same-target vs cross-branch reason classification.
func DefaultStrategy(a, b *model.MergeRequestSummary, ignore *matcher.Matcher) *model.Conflict {
	if a.TargetBranch == b.SourceBranch || b.TargetBranch == a.SourceBranch {
		return nil
	}

	if len(a.ChangedFiles) == 0 || len(b.ChangedFiles) == 0 {
		return nil
	}

	if !shareTopLevelDirectory(a.ChangedFiles, b.ChangedFiles) {
		return nil
	}

	common := intersect(a.ChangedFiles, b.ChangedFiles)
	if len(common) == 0 {
		return nil
	}

	if ignore != nil {
		common = ignore.Filter(common)
		if len(common) == 0 {
			return nil
		}
	}

	reason := model.CrossBranchConflict
	if a.TargetBranch == b.TargetBranch {
		reason = model.DirectConflict
	}

	return model.NewConflict(a, b, common, reason)
}

// topLevelDir returns the segment of path before its first separator, or the
// whole path if it contains none.
func topLevelDir(path string) string {
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		return path[:idx]
	}
	return path
}

func shareTopLevelDirectory(a, b map[string]struct{}) bool {
	dirs := make(map[string]struct{}, len(a))
	for path := range a {
		dirs[topLevelDir(path)] = struct{}{}
	}
	for path := range b {
		if _, ok := dirs[topLevelDir(path)]; ok {
			return true
		}
	}
	return false
}

// intersect iterates over the smaller set, per the specification's
// performance note.
func intersect(a, b map[string]struct{}) map[string]struct{} {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}

	out := make(map[string]struct{})
	for path := range small {
		if _, ok := large[path]; ok {
			out[path] = struct{}{}
		}
	}
	return out
}
