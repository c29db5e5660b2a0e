// Package gitlab implements the PlatformAdapter against the GitLab REST API.
package gitlab

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/galushkoart/gitlab-mr-conflict-detector/pkg/errors"
)

const (
	// MaxProjectNameLength and MinProjectIDValue bound the values
	// ResolveProjectIdentifier will accept before ever calling the platform.
	MaxProjectNameLength = 255
	MinProjectIDValue    = 1
)

// ProjectManager resolves the `--project-id` CLI value (numeric ID or
// `group/subgroup/project` path, per the "Project-path resolution"
// supplement) to the numeric project ID the rest of the pipeline needs.
type ProjectManager struct {
	client *gitlab.Client
}

// NewProjectManager creates a new project manager.
func NewProjectManager(client *gitlab.Client) *ProjectManager {
	return &ProjectManager{
		client: client,
	}
}

// ResolveProjectIdentifier resolves a numeric ID or a path to a numeric ID.
func (pm *ProjectManager) ResolveProjectIdentifier(ctx context.Context, identifier string) (int, error) {
	if identifier == "" {
		return 0, errors.NewValidationError("project identifier cannot be empty")
	}

	if projectID, err := strconv.Atoi(identifier); err == nil {
		if projectID < MinProjectIDValue {
			return 0, errors.NewValidationError(fmt.Sprintf("project ID must be >= %d", MinProjectIDValue))
		}

		exists, err := pm.ValidateProjectExists(ctx, projectID)
		if err != nil {
			return 0, fmt.Errorf("failed to validate project ID %d: %w", projectID, err)
		}
		if !exists {
			return 0, errors.NewProjectNotFoundError(fmt.Sprintf("project with ID %d does not exist", projectID))
		}

		return projectID, nil
	}

	return pm.ResolveProjectPath(ctx, identifier)
}

// ResolveProjectPath resolves a human-readable project path, such as
// "group/subgroup/project", to its numeric ID.
func (pm *ProjectManager) ResolveProjectPath(ctx context.Context, projectPath string) (int, error) {
	if projectPath == "" {
		return 0, errors.NewValidationError("project path cannot be empty")
	}

	if err := validateProjectPath(projectPath); err != nil {
		return 0, err
	}

	encodedPath := url.PathEscape(projectPath)

	project, _, err := pm.client.Projects.GetProject(encodedPath, nil)
	if err != nil {
		if strings.Contains(err.Error(), "404") || strings.Contains(err.Error(), "not found") {
			return 0, errors.NewProjectNotFoundError(fmt.Sprintf("project '%s' not found", projectPath))
		}
		return 0, errors.NewAPIError(fmt.Sprintf("failed to resolve project path '%s': %v", projectPath, err))
	}

	return project.ID, nil
}

// ValidateProjectExists checks if a project exists and is accessible.
func (pm *ProjectManager) ValidateProjectExists(ctx context.Context, projectID int) (bool, error) {
	if projectID < MinProjectIDValue {
		return false, errors.NewValidationError(fmt.Sprintf("project ID must be >= %d", MinProjectIDValue))
	}

	_, _, err := pm.client.Projects.GetProject(projectID, nil)
	if err != nil {
		if strings.Contains(err.Error(), "404") || strings.Contains(err.Error(), "not found") {
			return false, nil
		}
		return false, errors.NewAPIError(fmt.Sprintf("failed to validate project %d: %v", projectID, err))
	}

	return true, nil
}

// validateProjectPath validates the format of a project path.
func validateProjectPath(path string) error {
	if path == "" {
		return errors.NewValidationError("project path cannot be empty")
	}

	if len(path) > MaxProjectNameLength {
		return errors.NewValidationError(fmt.Sprintf("project path too long: %d characters (max %d)", len(path), MaxProjectNameLength))
	}

	if !strings.Contains(path, "/") {
		return errors.NewValidationError("project path must be in format 'group/project' or 'group/subgroup/project'")
	}

	invalidChars := []string{" ", "\t", "\n", "\r", "\\", "?", "*", "<", ">", "|", "\""}
	for _, char := range invalidChars {
		if strings.Contains(path, char) {
			return errors.NewValidationError(fmt.Sprintf("project path contains invalid character: %s", char))
		}
	}

	if strings.Contains(path, "//") {
		return errors.NewValidationError("project path cannot contain double slashes")
	}

	if strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return errors.NewValidationError("project path cannot start or end with slash")
	}

	segments := strings.Split(path, "/")
	if len(segments) < 2 {
		return errors.NewValidationError("project path must have at least 2 segments (group/project)")
	}

	for i, segment := range segments {
		if segment == "" {
			return errors.NewValidationError(fmt.Sprintf("empty segment at position %d in project path", i))
		}
		if len(segment) > 100 {
			return errors.NewValidationError(fmt.Sprintf("path segment too long: %s", segment))
		}
	}

	return nil
}
