package gitlab

import (
	"context"
	"fmt"
	"sort"

	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/conflict"
	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/format"
	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/model"
)

// Platform merge request states, as used by RawMergeRequest.State and the
// reconciliation engine's peer-resolution lookup (§4.4).
const (
	StateOpened = "opened"
	StateMerged = "merged"
	StateClosed = "closed"
)

// Logger is the minimal logging surface the reconciler needs; *logger.Logger
// satisfies it.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Reconciler applies detected conflicts to the platform: it updates each
// merge request's label set to match its current conflict membership and,
// when configured, posts a note summarizing both current conflicts and any
// that have since resolved (§4.4/C6).
type Reconciler struct {
	adapter       PlatformAdapter
	projectID     int
	createNotes   bool
	updateStatus  bool
	dryRun        bool
	includeDrafts bool
	log           Logger
}

// NewReconciler builds a Reconciler. createNotes and updateStatus gate the
// two side effects independently, per the --create-gitlab-note and
// --update-mr-status flags; dryRun suppresses both regardless.
func NewReconciler(adapter PlatformAdapter, projectID int, createNotes, updateStatus, dryRun, includeDrafts bool, log Logger) *Reconciler {
	return &Reconciler{
		adapter:       adapter,
		projectID:     projectID,
		createNotes:   createNotes,
		updateStatus:  updateStatus,
		dryRun:        dryRun,
		includeDrafts: includeDrafts,
		log:           log,
	}
}

// Reconcile runs the label/note update for every merge request in mrs
// against the full conflict set. A failure reconciling one merge request is
// logged and does not prevent the others from being processed (§7: partial
// failures are reported, not fatal).
func (r *Reconciler) Reconcile(ctx context.Context, conflicts []*model.Conflict, mrs []*model.MergeRequestSummary) error {
	for _, mr := range mrs {
		if mr.Draft && !r.includeDrafts {
			continue
		}
		if err := r.reconcileOne(ctx, mr, conflicts); err != nil {
			if r.log != nil {
				r.log.Errorf("reconciliation failed for merge request !%d: %v", mr.ID, err)
			}
		}
	}
	return nil
}

func (r *Reconciler) reconcileOne(ctx context.Context, mr *model.MergeRequestSummary, conflicts []*model.Conflict) error {
	relevant := conflict.ConflictsForMR(conflicts, mr.ID)
	desired := desiredLabels(mr.Labels, relevant, mr.ID)
	resolvedLabels := resolvedPeerLabels(mr.Labels, desired)

	if labelSetsEqual(mr.Labels, desired) {
		// Nothing changed: no platform mutation, matching the idempotence
		// invariant that a stable run produces no further writes.
		return nil
	}

	if r.updateStatus && !r.dryRun {
		if err := r.adapter.UpdateMergeRequestLabels(ctx, r.projectID, mr.ID, sortedKeys(desired)); err != nil {
			return fmt.Errorf("updating labels: %w", err)
		}
	}

	if r.createNotes && !r.dryRun {
		resolvedPeers := r.resolvePeers(ctx, resolvedLabels)
		body := format.NoteBody(mr.ID, relevant, resolvedPeers)
		if err := r.adapter.CreateMergeRequestNote(ctx, r.projectID, mr.ID, body); err != nil {
			return fmt.Errorf("posting note: %w", err)
		}
	}

	return nil
}

// desiredLabels computes the label set mr should carry given its currently
// active conflicts: the shared "conflicts" marker plus one conflict:MR<N>
// label per peer when relevant is non-empty, and neither when it is empty.
// Non-conflict labels already on the merge request are preserved untouched.
func desiredLabels(current map[string]struct{}, relevant []*model.Conflict, mrID int64) map[string]struct{} {
	desired := make(map[string]struct{}, len(current))
	for l := range current {
		if !model.IsPeerLabel(l) && l != model.ConflictsLabelName {
			desired[l] = struct{}{}
		}
	}

	if len(relevant) == 0 {
		return desired
	}

	desired[model.ConflictsLabelName] = struct{}{}
	for _, c := range relevant {
		desired[model.PeerLabel(c.PeerID(mrID))] = struct{}{}
	}
	return desired
}

// resolvedPeerLabels returns the conflict:MR* labels present in current but
// absent from desired, sorted for deterministic note rendering: these name
// the peers whose conflict with this merge request has gone away since the
// last run.
func resolvedPeerLabels(current, desired map[string]struct{}) []string {
	var out []string
	for l := range current {
		if !model.IsPeerLabel(l) {
			continue
		}
		if _, stillDesired := desired[l]; !stillDesired {
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}

func (r *Reconciler) resolvePeers(ctx context.Context, labels []string) []format.ResolvedPeer {
	out := make([]format.ResolvedPeer, 0, len(labels))
	for _, l := range labels {
		peerID, ok := model.ParsePeerID(l)
		if !ok {
			continue
		}
		raw, err := r.adapter.GetMergeRequest(ctx, r.projectID, peerID)
		if err != nil {
			if r.log != nil {
				r.log.Warnf("failed to resolve state for peer merge request !%d: %v", peerID, err)
			}
			continue
		}
		out = append(out, format.ResolvedPeer{ID: peerID, Title: raw.Title, State: raw.State})
	}
	return out
}

func labelSetsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for l := range a {
		if _, ok := b[l]; !ok {
			return false
		}
	}
	return true
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
