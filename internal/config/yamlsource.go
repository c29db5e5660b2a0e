package config

import (
	"gopkg.in/yaml.v3"
)

// dumpView is the YAML shape rendered by Dump: every field of Config except
// ConfigFile, with GitLabToken masked. Field order matches the YAML config file's
// documented key set (§6).
type dumpView struct {
	GitLabURL        string   `yaml:"gitlabUrl"`
	GitLabToken      string   `yaml:"gitlabToken"`
	ProjectID        string   `yaml:"projectId"`
	MergeRequestIIDs []int64  `yaml:"mergeRequestIids,omitempty"`
	CreateGitlabNote bool     `yaml:"createGitlabNote"`
	UpdateMrStatus   bool     `yaml:"updateMrStatus"`
	DryRun           bool     `yaml:"dryRun"`
	Verbose          bool     `yaml:"verbose"`
	IncludeDraftMrs  bool     `yaml:"includeDraftMrs"`
	IgnorePatterns   []string `yaml:"ignorePatterns,omitempty"`
}

// Dump renders cfg as YAML with the token masked, for the --verbose
// diagnostic dump (SPEC_FULL.md supplement 2): operators can see exactly
// what the three-source merge in §4.6 produced without a token leaking into
// logs.
func Dump(cfg *Config) (string, error) {
	view := dumpView{
		GitLabURL:        cfg.GitLabURL,
		GitLabToken:      MaskToken(cfg.GitLabToken),
		ProjectID:        cfg.ProjectID,
		MergeRequestIIDs: cfg.MergeRequestIIDs,
		CreateGitlabNote: cfg.CreateGitlabNote,
		UpdateMrStatus:   cfg.UpdateMrStatus,
		DryRun:           cfg.DryRun,
		Verbose:          cfg.Verbose,
		IncludeDraftMrs:  cfg.IncludeDraftMrs,
		IgnorePatterns:   cfg.IgnorePatterns,
	}
	out, err := yaml.Marshal(view)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
