package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

const (
	TestValidToken     = "abcdefghijklmnopqrst1234"
	TestValidURL       = "https://gitlab.example.com"
	TestValidProjectID = "123"
)

func writeYAMLConfig(t *testing.T, dir string, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config file: %v", err)
	}
	return path
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("gitlab-url", "", "")
	fs.String("gitlab-token", "", "")
	fs.String("project-id", "", "")
	fs.String("mr-iids", "", "")
	fs.Bool("create-gitlab-note", false, "")
	fs.Bool("update-mr-status", false, "")
	fs.Bool("dry-run", false, "")
	fs.Bool("verbose", false, "")
	fs.Bool("include-draft-mrs", false, "")
	fs.String("ignore-patterns", "", "")
	return fs
}

func TestLoad_FileOnly(t *testing.T) {
	dir := t.TempDir()
	path := writeYAMLConfig(t, dir, `
gitlabUrl: `+TestValidURL+`
gitlabToken: `+TestValidToken+`
projectId: "`+TestValidProjectID+`"
`)

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.GitLabURL != TestValidURL {
		t.Errorf("GitLabURL = %q, want %q", cfg.GitLabURL, TestValidURL)
	}
	if cfg.GitLabToken != TestValidToken {
		t.Errorf("GitLabToken = %q, want %q", cfg.GitLabToken, TestValidToken)
	}
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := writeYAMLConfig(t, dir, `
gitlabUrl: https://file.example.com
gitlabToken: `+TestValidToken+`
projectId: "1"
`)

	fs := newFlagSet()
	if err := fs.Parse([]string{"--gitlab-url=" + TestValidURL, "--project-id=" + TestValidProjectID}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	cfg, err := Load(path, fs)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.GitLabURL != TestValidURL {
		t.Errorf("GitLabURL = %q, want flag value %q", cfg.GitLabURL, TestValidURL)
	}
	if cfg.ProjectID != TestValidProjectID {
		t.Errorf("ProjectID = %q, want flag value %q", cfg.ProjectID, TestValidProjectID)
	}
}

func TestLoad_UnsetFlagsDoNotOverwriteFile(t *testing.T) {
	dir := t.TempDir()
	path := writeYAMLConfig(t, dir, `
gitlabUrl: `+TestValidURL+`
gitlabToken: `+TestValidToken+`
projectId: "`+TestValidProjectID+`"
dryRun: true
`)

	fs := newFlagSet() // --dry-run never set; default false must not win

	cfg, err := Load(path, fs)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if !cfg.DryRun {
		t.Error("DryRun = false, want true carried over from file since the flag was never set")
	}
}

func TestLoad_EnvOverridesFlagsAndFile(t *testing.T) {
	dir := t.TempDir()
	path := writeYAMLConfig(t, dir, `
gitlabUrl: https://file.example.com
gitlabToken: `+TestValidToken+`
projectId: "1"
`)

	fs := newFlagSet()
	if err := fs.Parse([]string{"--gitlab-url=https://flag.example.com"}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	t.Setenv("GITLAB_MR_GITLAB_URL", TestValidURL)
	t.Setenv("GITLAB_MR_PROJECT_ID", TestValidProjectID)

	cfg, err := Load(path, fs)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.GitLabURL != TestValidURL {
		t.Errorf("GitLabURL = %q, want env value %q to win over flag and file", cfg.GitLabURL, TestValidURL)
	}
	if cfg.ProjectID != TestValidProjectID {
		t.Errorf("ProjectID = %q, want env value %q", cfg.ProjectID, TestValidProjectID)
	}
}

func TestLoad_MergeRequestIIDsFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeYAMLConfig(t, dir, `
gitlabUrl: `+TestValidURL+`
gitlabToken: `+TestValidToken+`
projectId: "`+TestValidProjectID+`"
`)

	t.Setenv("GITLAB_MR_MR_IIDS", "3,7,12")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	want := []int64{3, 7, 12}
	if len(cfg.MergeRequestIIDs) != len(want) {
		t.Fatalf("MergeRequestIIDs = %v, want %v", cfg.MergeRequestIIDs, want)
	}
	for i, v := range want {
		if cfg.MergeRequestIIDs[i] != v {
			t.Errorf("MergeRequestIIDs[%d] = %d, want %d", i, cfg.MergeRequestIIDs[i], v)
		}
	}
}

func TestLoad_InvalidMergeRequestIID(t *testing.T) {
	dir := t.TempDir()
	path := writeYAMLConfig(t, dir, `
gitlabUrl: `+TestValidURL+`
gitlabToken: `+TestValidToken+`
projectId: "`+TestValidProjectID+`"
mergeRequestIids:
  - 0
`)

	if _, err := Load(path, nil); err == nil {
		t.Error("Load() expected error for non-positive merge request IID, got nil")
	}
}

func TestValidate_MissingToken(t *testing.T) {
	cfg := &Config{GitLabURL: TestValidURL, ProjectID: TestValidProjectID}
	if err := Validate(cfg); err == nil {
		t.Error("Validate() expected error for missing token, got nil")
	}
}

func TestValidate_ShortToken(t *testing.T) {
	cfg := &Config{GitLabURL: TestValidURL, GitLabToken: "short", ProjectID: TestValidProjectID}
	if err := Validate(cfg); err == nil {
		t.Error("Validate() expected error for too-short token, got nil")
	}
}

func TestValidate_InvalidURL(t *testing.T) {
	cfg := &Config{GitLabURL: "not-a-url", GitLabToken: TestValidToken, ProjectID: TestValidProjectID}
	if err := Validate(cfg); err == nil {
		t.Error("Validate() expected error for invalid URL, got nil")
	}
}

func TestValidate_MissingProjectID(t *testing.T) {
	cfg := &Config{GitLabURL: TestValidURL, GitLabToken: TestValidToken}
	if err := Validate(cfg); err == nil {
		t.Error("Validate() expected error for missing projectId, got nil")
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := &Config{GitLabURL: TestValidURL, GitLabToken: TestValidToken, ProjectID: TestValidProjectID}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestMaskToken(t *testing.T) {
	long := TestValidToken
	masked := MaskToken(long)
	if masked == long {
		t.Error("MaskToken() should not return the token unmasked")
	}
	if len(masked) >= len(long) {
		t.Error("MaskToken() should shorten the token")
	}

	short := "abc"
	if got := MaskToken(short); got != "****" {
		t.Errorf("MaskToken(%q) = %q, want fully masked", short, got)
	}
}
