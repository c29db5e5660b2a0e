package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/conflict"
	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/config"
	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/format"
	gitlabplatform "github.com/galushkoart/gitlab-mr-conflict-detector/internal/gitlab"
	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/logger"
	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/matcher"
	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/model"
	"github.com/galushkoart/gitlab-mr-conflict-detector/internal/version"
	"github.com/galushkoart/gitlab-mr-conflict-detector/pkg/errors"
)

const (
	// AppName is the name of the application.
	AppName = "gitlab-mr-conflict-detector"
	// AppDescription provides a brief description of the application.
	AppDescription = "Detects file-overlap conflicts between open GitLab merge requests " +
		"and reconciles labels/notes accordingly"
)

var (
	showVersion bool
	configFile  string

	rootCmd = &cobra.Command{
		Use:   AppName,
		Short: AppDescription,
		Long: `gitlab-mr-conflict-detector scans the open merge requests of a GitLab project,
detects which ones modify overlapping files, and reconciles that state onto the
platform via conflict labels and, optionally, explanatory notes.

Configuration is resolved from a YAML file, CLI flags, and environment
variables, in ascending order of precedence.`,
		RunE: runCommand,
		// The application owns its own exit-code/error presentation (§7); a
		// conflicts-detected run returns a non-nil error through the normal
		// exit-1 path and must not trigger Cobra's own usage dump.
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.Flags().String("gitlab-url", "", "Platform base URL")
	rootCmd.Flags().String("gitlab-token", "", "Personal access token")
	rootCmd.Flags().String("project-id", "", "Numeric project id or group/subgroup/project path")
	rootCmd.Flags().String("mr-iids", "", "Comma-separated list of specific MR IIDs (optional)")
	rootCmd.Flags().Bool("create-gitlab-note", false, "Enable note posting")
	rootCmd.Flags().Bool("update-mr-status", false, "Enable label updates")
	rootCmd.Flags().Bool("dry-run", false, "Perform no mutations")
	rootCmd.Flags().Bool("verbose", false, "Elevate logging to debug")
	rootCmd.Flags().Bool("include-draft-mrs", false, "Consider draft MRs")
	rootCmd.Flags().String("ignore-patterns", "", "Comma-separated ignore globs")
	rootCmd.Flags().StringVarP(&configFile, "config-file", "c", "", "Path to YAML configuration")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Show version information")
}

// runCommand implements the full pipeline: resolve configuration, fetch the
// merge-request snapshot, detect conflicts, reconcile platform state, report.
// Its return value drives main.go's exit-code translation (§7): a nil error
// with zero conflicts exits 0, a *conflictsDetectedError exits 1, anything
// else exits 2.
func runCommand(cmd *cobra.Command, _ []string) error {
	if showVersion {
		fmt.Println(version.GetFullVersionInfo())
		return nil
	}

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	log := logger.New(cfg.Verbose)

	if cfg.Verbose {
		if dump, dumpErr := config.Dump(cfg); dumpErr == nil {
			log.Debugf("resolved configuration:\n%s", dump)
		}
	}

	ctx := context.Background()

	client, err := gitlabplatform.NewClient(cfg.GitLabToken, cfg.GitLabURL)
	if err != nil {
		return errors.NewAuthError(fmt.Sprintf("failed to initialize GitLab client: %v", err))
	}

	projectID, err := client.ResolveProjectID(cfg.ProjectID)
	if err != nil {
		return errors.NewConfigErrorWithCause(fmt.Sprintf("failed to resolve project %q", cfg.ProjectID), err)
	}

	cache := gitlabplatform.NewCache(gitlabplatform.DefaultCacheTTL)
	adapter := gitlabplatform.NewPlatformAdapter(client, cache)

	hasAccess, err := adapter.HasProjectAccess(ctx, projectID)
	if err != nil {
		return errors.NewAuthError(fmt.Sprintf("failed to verify access to project %d: %v", projectID, err))
	}
	if !hasAccess {
		return errors.NewAuthError(fmt.Sprintf("access to project %d denied", projectID))
	}

	mrs, err := loadMergeRequests(ctx, adapter, projectID, cfg)
	if err != nil {
		return err
	}
	mrs = conflict.FilterDrafts(mrs, cfg.IncludeDraftMrs)

	ignore := matcher.New(cfg.IgnorePatterns)

	conflicts := conflict.DetectConflicts(mrs, ignore, []conflict.Strategy{conflict.DefaultStrategy}, log)

	if cfg.UpdateMrStatus || cfg.CreateGitlabNote {
		reconciler := gitlabplatform.NewReconciler(adapter, projectID, cfg.CreateGitlabNote, cfg.UpdateMrStatus, cfg.DryRun, cfg.IncludeDraftMrs, log)
		if err := reconciler.Reconcile(ctx, conflicts, mrs); err != nil {
			log.Errorf("reconciliation encountered errors: %v", err)
		}
	}

	fmt.Println(format.PlainList(conflicts))

	if len(conflicts) == 0 {
		return nil
	}
	return &conflictsDetectedError{count: len(conflicts)}
}

// loadMergeRequests fetches either the full open-MR snapshot or the
// specific set named by --mr-iids, per §6's "used for specific IIDs" note.
func loadMergeRequests(ctx context.Context, adapter gitlabplatform.PlatformAdapter, projectID int, cfg *config.Config) ([]*model.MergeRequestSummary, error) {
	if len(cfg.MergeRequestIIDs) == 0 {
		mrs, err := adapter.ListOpenMergeRequests(ctx, projectID)
		if err != nil {
			return nil, errors.NewNetworkErrorWithCause("failed to list open merge requests", err)
		}
		return mrs, nil
	}

	out := make([]*model.MergeRequestSummary, 0, len(cfg.MergeRequestIIDs))
	for _, iid := range cfg.MergeRequestIIDs {
		raw, err := adapter.GetMergeRequest(ctx, projectID, iid)
		if err != nil {
			return nil, errors.NewNetworkErrorWithCause(fmt.Sprintf("failed to fetch merge request !%d", iid), err)
		}
		files, err := adapter.GetMergeRequestChanges(ctx, projectID, iid)
		if err != nil {
			return nil, errors.NewNetworkErrorWithCause(fmt.Sprintf("failed to fetch changes for merge request !%d", iid), err)
		}
		labels := make(map[string]struct{}, len(raw.Labels))
		for _, l := range raw.Labels {
			labels[l] = struct{}{}
		}
		out = append(out, &model.MergeRequestSummary{
			ID:           raw.IID,
			Title:        raw.Title,
			SourceBranch: raw.SourceBranch,
			TargetBranch: raw.TargetBranch,
			ChangedFiles: files,
			Labels:       labels,
			Draft:        raw.Draft,
		})
	}
	return out, nil
}

// conflictsDetectedError signals the §6 "conflicts detected" exit path
// (code 1), distinct from a genuine failure (code 2).
type conflictsDetectedError struct {
	count int
}

func (e *conflictsDetectedError) Error() string {
	return fmt.Sprintf("%d conflict(s) detected", e.count)
}
