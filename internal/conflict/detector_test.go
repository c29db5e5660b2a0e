package conflict

import (
	"testing"

	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/matcher"
	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/model"
)

func TestDetectConflicts_DeterministicOrder(t *testing.T) {
	mrs := []*model.MergeRequestSummary{
		mr(1, "a", "main", "src/x.js"),
		mr(2, "b", "main", "src/x.js"),
		mr(3, "c", "main", "src/x.js"),
	}

	got := DetectConflicts(mrs, matcher.New(nil), nil, nil)

	if len(got) != 3 {
		t.Fatalf("len(got) = %d, want 3", len(got))
	}

	wantOrder := [][2]int64{{1, 2}, {1, 3}, {2, 3}}
	for i, c := range got {
		f, s := c.Key()
		if f != wantOrder[i][0] || s != wantOrder[i][1] {
			t.Errorf("conflict[%d] key = (%d,%d), want (%d,%d)", i, f, s, wantOrder[i][0], wantOrder[i][1])
		}
	}
}

func TestDetectConflicts_Dedup(t *testing.T) {
	mrs := []*model.MergeRequestSummary{
		mr(1, "a", "main", "src/x.js"),
		mr(2, "b", "main", "src/x.js"),
	}

	twice := []Strategy{DefaultStrategy, DefaultStrategy}
	got := DetectConflicts(mrs, matcher.New(nil), twice, nil)

	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1 (deduplicated)", len(got))
	}
}

type recordingLogger struct {
	warnings []string
}

func (r *recordingLogger) Warnf(format string, args ...interface{}) {
	r.warnings = append(r.warnings, format)
}

func TestDetectConflicts_PanicRecovery(t *testing.T) {
	panicking := func(a, b *model.MergeRequestSummary, ignore *matcher.Matcher) *model.Conflict {
		panic("boom")
	}
	mrs := []*model.MergeRequestSummary{
		mr(1, "a", "main", "src/x.js"),
		mr(2, "b", "main", "src/x.js"),
	}
	log := &recordingLogger{}

	got := DetectConflicts(mrs, matcher.New(nil), []Strategy{panicking}, log)

	if len(got) != 0 {
		t.Errorf("expected no conflicts from a panicking strategy, got %d", len(got))
	}
	if len(log.warnings) != 1 {
		t.Errorf("expected exactly one logged warning, got %d", len(log.warnings))
	}
}

func TestConflictingIDs(t *testing.T) {
	mrs := []*model.MergeRequestSummary{
		mr(1, "a", "main", "src/x.js"),
		mr(2, "b", "main", "src/x.js"),
		mr(3, "c", "main", "docs/y.js"),
	}

	conflicts := DetectConflicts(mrs, matcher.New(nil), nil, nil)
	ids := ConflictingIDs(conflicts)

	if _, ok := ids[1]; !ok {
		t.Error("expected id 1 in conflicting set")
	}
	if _, ok := ids[2]; !ok {
		t.Error("expected id 2 in conflicting set")
	}
	if _, ok := ids[3]; ok {
		t.Error("did not expect id 3 in conflicting set")
	}
}

func TestConflictsForMR(t *testing.T) {
	mrs := []*model.MergeRequestSummary{
		mr(1, "a", "main", "src/x.js"),
		mr(2, "b", "main", "src/x.js"),
		mr(3, "c", "main", "src/x.js"),
	}
	conflicts := DetectConflicts(mrs, matcher.New(nil), nil, nil)

	got := ConflictsForMR(conflicts, 1)
	if len(got) != 2 {
		t.Errorf("len(ConflictsForMR(_, 1)) = %d, want 2", len(got))
	}
}

func TestFilterDrafts(t *testing.T) {
	draft := mr(1, "a", "main", "x.js")
	draft.Draft = true
	nonDraft := mr(2, "b", "main", "y.js")
	mrs := []*model.MergeRequestSummary{draft, nonDraft}

	excluded := FilterDrafts(mrs, false)
	if len(excluded) != 1 || excluded[0].ID != 2 {
		t.Errorf("FilterDrafts(_, false) = %+v, want only non-draft MR 2", excluded)
	}

	included := FilterDrafts(mrs, true)
	if len(included) != 2 {
		t.Errorf("FilterDrafts(_, true) = %+v, want both MRs", included)
	}
}
