package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	apperrors "github.com/galushkoart/gitlab-mr-conflict-detector/pkg/errors"
)

// upperSnakeByCamelKey names the environment variable
// suffix (after EnvPrefix, upper-snake) for each camelCase config key.
var upperSnakeByCamelKey = map[string]string{
	"gitlabUrl":        "GITLAB_URL",
	"gitlabToken":      "GITLAB_TOKEN",
	"projectId":        "PROJECT_ID",
	"mergeRequestIids": "MR_IIDS",
	"createGitlabNote": "CREATE_GITLAB_NOTE",
	"updateMrStatus":   "UPDATE_MR_STATUS",
	"dryRun":           "DRY_RUN",
	"verbose":          "VERBOSE",
	"includeDraftMrs":  "INCLUDE_DRAFT_MRS",
	"ignorePatterns":   "IGNORE_PATTERNS",
}

// listKeys names the camelCase keys whose environment-variable value is a
// comma-separated list rather than a scalar.
var listKeys = map[string]bool{
	"mergeRequestIids": true,
	"ignorePatterns":   true,
}

// Load resolves a Config from, in ascending precedence, configFile (YAML,
// may be empty), flags (may be nil), and the process environment. Each
// source is parsed into its own koanf instance so that differing naming
// conventions per source never collide on read; precedence is then applied
// field by field via firstNonEmpty, matching §4.6's "highest-precedence
// non-empty value; absent values do not overwrite" rule exactly.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	fileK := koanf.New(".")
	if configFile != "" {
		if err := fileK.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, apperrors.NewConfigErrorWithCause(fmt.Sprintf("failed to load config file %s", configFile), err)
		}
	}

	flagK := koanf.New(".")
	if flags != nil {
		if err := flagK.Load(posflag.Provider(flags, ".", nil), nil); err != nil {
			return nil, apperrors.NewConfigErrorWithCause("failed to load CLI flags", err)
		}
	}

	envK := koanf.New(".")
	if err := envK.Load(env.ProviderWithValue(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, apperrors.NewConfigErrorWithCause("failed to load environment variables", err)
	}

	cfg := &Config{
		GitLabURL:        firstNonEmptyString(fileK.String("gitlabUrl"), flagString(flags, flagK, "gitlab-url"), envK.String("gitlabUrl")),
		GitLabToken:      firstNonEmptyString(fileK.String("gitlabToken"), flagString(flags, flagK, "gitlab-token"), envK.String("gitlabToken")),
		ProjectID:        firstNonEmptyString(fileK.String("projectId"), flagString(flags, flagK, "project-id"), envK.String("projectId")),
		CreateGitlabNote: resolveBool(flags, flagK, "create-gitlab-note", fileK.Bool("createGitlabNote"), envK, "createGitlabNote"),
		UpdateMrStatus:   resolveBool(flags, flagK, "update-mr-status", fileK.Bool("updateMrStatus"), envK, "updateMrStatus"),
		DryRun:           resolveBool(flags, flagK, "dry-run", fileK.Bool("dryRun"), envK, "dryRun"),
		Verbose:          resolveBool(flags, flagK, "verbose", fileK.Bool("verbose"), envK, "verbose"),
		IncludeDraftMrs:  resolveBool(flags, flagK, "include-draft-mrs", fileK.Bool("includeDraftMrs"), envK, "includeDraftMrs"),
		IgnorePatterns:   firstNonEmptyStrings(stringList(fileK.Get("ignorePatterns")), flagStrings(flags, flagK, "ignore-patterns"), stringList(envK.Get("ignorePatterns"))),
		ConfigFile:       configFile,
	}

	rawIIDs := firstNonEmptyStrings(stringList(fileK.Get("mergeRequestIids")), flagStrings(flags, flagK, "mr-iids"), stringList(envK.Get("mergeRequestIids")))
	iids, err := parseIIDs(rawIIDs)
	if err != nil {
		return nil, err
	}
	cfg.MergeRequestIIDs = iids

	if cfg.GitLabURL == "" {
		cfg.GitLabURL = DefaultGitLabURL
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform maps a GITLAB_MR_-prefixed environment variable to its
// camelCase config key and, for list-valued keys, splits the value on
// commas. Variables that don't match a known key are dropped.
func envTransform(key, value string) (string, interface{}) {
	suffix := strings.TrimPrefix(key, EnvPrefix)
	camelKey := ""
	for camel, upper := range upperSnakeByCamelKey {
		if upper == suffix {
			camelKey = camel
			break
		}
	}
	if camelKey == "" {
		return "", nil
	}
	if listKeys[camelKey] {
		return camelKey, splitList(value)
	}
	return camelKey, value
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// flagString returns a flag's value via the posflag-loaded koanf instance,
// but only when the user actually set it (pflag.Flag.Changed) — posflag
// loads every flag's value, including untouched defaults, so the Changed
// check is what implements "absent values do not overwrite" for flags.
func flagString(flags *pflag.FlagSet, flagK *koanf.Koanf, name string) string {
	if flags == nil {
		return ""
	}
	f := flags.Lookup(name)
	if f == nil || !f.Changed {
		return ""
	}
	return flagK.String(name)
}

func flagStrings(flags *pflag.FlagSet, flagK *koanf.Koanf, name string) []string {
	if flags == nil {
		return nil
	}
	f := flags.Lookup(name)
	if f == nil || !f.Changed {
		return nil
	}
	return splitList(flagK.String(name))
}

// resolveBool applies the env > flags > file precedence for a boolean field.
// Booleans cannot use "non-empty" as their absence test, so flag presence is
// determined via pflag.Flag.Changed and env presence via koanf.Exists.
func resolveBool(flags *pflag.FlagSet, flagK *koanf.Koanf, flagName string, fileVal bool, envK *koanf.Koanf, envKey string) bool {
	if envK.Exists(envKey) {
		return envK.Bool(envKey)
	}
	if flags != nil {
		if f := flags.Lookup(flagName); f != nil && f.Changed {
			return flagK.Bool(flagName)
		}
	}
	return fileVal
}

func firstNonEmptyString(values ...string) string {
	for i := len(values) - 1; i >= 0; i-- {
		if values[i] != "" {
			return values[i]
		}
	}
	return ""
}

func firstNonEmptyStrings(values ...[]string) []string {
	for i := len(values) - 1; i >= 0; i-- {
		if len(values[i]) > 0 {
			return values[i]
		}
	}
	return nil
}

// stringList coerces a koanf.Get result (typically []interface{} from YAML,
// or nil) into a []string.
func stringList(raw interface{}) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case string:
		return splitList(v)
	default:
		return nil
	}
}

// parseIIDs converts raw string MR IIDs to positive int64s, per §4.6's
// "every element > 0" validation rule.
func parseIIDs(raw []string) ([]int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]int64, 0, len(raw))
	for _, s := range raw {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil || n <= 0 {
			return nil, apperrors.NewConfigError(fmt.Sprintf("invalid merge request IID %q: must be a positive integer", s))
		}
		out = append(out, n)
	}
	return out, nil
}
