package config

import (
	"fmt"
	"net/url"
	"regexp"

	apperrors "github.com/galushkoart/gitlab-mr-conflict-detector/pkg/errors"
)

// tokenPattern is the §4.6 validation rule for gitlabToken.
var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{20,}$`)

// Validate enforces §4.6's field-level rules. It runs before any platform
// call is issued (§7 configuration error kind).
func Validate(cfg *Config) error {
	if cfg.GitLabURL == "" {
		return apperrors.NewConfigError("gitlabUrl is required")
	}
	parsed, err := url.Parse(cfg.GitLabURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return apperrors.NewConfigError(fmt.Sprintf("gitlabUrl must be a valid http(s) URL, got %q", cfg.GitLabURL))
	}

	if cfg.GitLabToken == "" {
		return apperrors.NewConfigError("gitlabToken is required")
	}
	if len(cfg.GitLabToken) < MinGitLabTokenLength {
		return apperrors.NewConfigError("gitlabToken is too short")
	}
	if !tokenPattern.MatchString(cfg.GitLabToken) {
		return apperrors.NewConfigError("gitlabToken must match ^[A-Za-z0-9_-]{20,}$")
	}

	if cfg.ProjectID == "" {
		return apperrors.NewConfigError("projectId is required")
	}

	for _, iid := range cfg.MergeRequestIIDs {
		if iid <= 0 {
			return apperrors.NewConfigError(fmt.Sprintf("mergeRequestIids entries must be positive, got %d", iid))
		}
	}

	return nil
}
