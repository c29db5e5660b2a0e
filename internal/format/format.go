// Package format renders conflict-analysis results for human consumption:
// a plain-text summary list and a Markdown note body targeted at one
// specific merge request.
package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/model"
)

const (
	// MaxTitleLength is the rendered title length before truncation.
	MaxTitleLength = 50
	// TruncatedTitleLength is the length kept before appending "...".
	TruncatedTitleLength = 47
	// NoConflictsMessage is printed verbatim when there is nothing to report.
	NoConflictsMessage = "No conflicts detected."
	// MaxNoteListedFiles bounds how many files a note body lists explicitly.
	MaxNoteListedFiles = 10
)

func truncateTitle(title string) string {
	if title == "" {
		title = "Untitled"
	}
	if len(title) <= MaxTitleLength {
		return title
	}
	return title[:TruncatedTitleLength] + "..."
}

// PlainList renders the summary block used for CLI/log output.
func PlainList(conflicts []*model.Conflict) string {
	if len(conflicts) == 0 {
		return NoConflictsMessage
	}

	blocks := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		blocks = append(blocks, plainBlock(c))
	}
	return strings.Join(blocks, "\n")
}

func plainBlock(c *model.Conflict) string {
	firstTitle := truncateTitle(c.First.DisplayTitle())
	secondTitle := truncateTitle(c.Second.DisplayTitle())
	files := sortedFiles(c.Files)

	header := fmt.Sprintf("%q vs %q", firstTitle, secondTitle)

	if len(files) == 1 {
		return fmt.Sprintf("%s\n- Issue: conflict in modification of `%s`", header, files[0])
	}

	quoted := make([]string, len(files))
	for i, f := range files {
		quoted[i] = fmt.Sprintf("`%s`", f)
	}
	return fmt.Sprintf("%s\n- Issue: conflicts in modification of %d files: %s", header, len(files), strings.Join(quoted, ", "))
}

func sortedFiles(files map[string]struct{}) []string {
	out := make([]string, 0, len(files))
	for f := range files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// ResolvedPeer describes a peer merge request whose prior conflict with the
// target MR has been resolved, and the platform state that explains why.
type ResolvedPeer struct {
	ID    int64
	Title string
	State string // "merged", "closed", or "opened"
}

func (p ResolvedPeer) line() string {
	title := truncateTitle(p.Title)
	switch p.State {
	case "merged":
		return fmt.Sprintf("- **Conflict with MR !%d (%s)** due to merge. Please check merge request to verify changes.", p.ID, title)
	case "closed":
		return fmt.Sprintf("- **Conflict with MR !%d (%s)** due to close. Changes were declined.", p.ID, title)
	default: // "opened"
		return fmt.Sprintf("- **Conflict with MR !%d (%s)** due to open. No more conflicts detected.", p.ID, title)
	}
}

// NoteBody renders the Markdown note body targeted at merge request mrID.
// current is the set of conflicts from this run involving mrID; resolved
// describes peers whose prior conflict has gone away.
func NoteBody(mrID int64, current []*model.Conflict, resolved []ResolvedPeer) string {
	var b strings.Builder

	b.WriteString("## Merge Request Conflict Analysis\n\n")

	if len(resolved) > 0 {
		b.WriteString("#### Resolved conflicts\n\n")
		for _, p := range resolved {
			b.WriteString(p.line())
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(current) == 0 {
		b.WriteString("\nNo more conflicts detected. All conflicts are resolved!")
		return b.String()
	}

	for _, c := range current {
		writeConflictSection(&b, mrID, c)
	}
	b.WriteString("Please resolve these conflicts before merging.")

	return b.String()
}

func writeConflictSection(b *strings.Builder, mrID int64, c *model.Conflict) {
	peer := c.First
	if peer.ID == mrID {
		peer = c.Second
	}

	fmt.Fprintf(b, "### Conflict with MR !%d (%s)\n\n", peer.ID, truncateTitle(peer.DisplayTitle()))
	fmt.Fprintf(b, "- Source branch: `%s`\n", peer.SourceBranch)
	fmt.Fprintf(b, "- Target branch: `%s`\n", peer.TargetBranch)
	fmt.Fprintf(b, "- Reason: %s\n", c.Reason)

	files := sortedFiles(c.Files)
	limit := len(files)
	if limit > MaxNoteListedFiles {
		limit = MaxNoteListedFiles
	}
	for _, f := range files[:limit] {
		fmt.Fprintf(b, "- `%s`\n", f)
	}
	if remaining := len(files) - limit; remaining > 0 {
		fmt.Fprintf(b, "... and %d more files\n", remaining)
	}
	b.WriteString("\n")
}
