// Package config is Ambient Component A1 (SPEC_FULL.md §2): the
// engine's typed view of `did_change_configuration` settings plus an
// optional on-disk workspace config file, merged the way the
// teacher's layered Config (base + project, project wins) is merged,
// grounded on internal/config/config.go and config_merge_test.go.
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// BuildStrategy is the recognised value space for gradleBuildStrategy
// (spec §6): how the host resolves a classpath, informational to the
// engine core since classpath resolution itself is an external
// collaborator (C7).
type BuildStrategy string

const (
	BuildStrategyAuto   BuildStrategy = "auto"
	BuildStrategyGradle BuildStrategy = "gradle"
	BuildStrategyMaven  BuildStrategy = "maven"
	BuildStrategyNone   BuildStrategy = "none"
)

// ParserEngine selects which grammar engine the Parser Facade should
// prefer, recognised per spec §6's `parserEngine` key. The engine
// currently only ships one (internal/groovy); the field exists so a
// future engine swap is a config change, not an API break.
type ParserEngine string

const (
	ParserEngineDefault ParserEngine = "default"
)

// Settings is the engine's view of recognised `did_change_configuration`
// keys (spec §6). Unknown keys are ignored by whoever decodes JSON or
// TOML into this struct, since encoding/json and go-toml/v2 both
// silently skip struct fields absent from the payload and vice versa.
type Settings struct {
	CodeNarcEnabled      bool          `toml:"codeNarcEnabled" json:"codeNarcEnabled"`
	GroovyLanguageVersion string       `toml:"groovyLanguageVersion" json:"groovyLanguageVersion"`
	JavaHome             string        `toml:"javaHome" json:"javaHome"`
	GradleBuildStrategy  BuildStrategy `toml:"gradleBuildStrategy" json:"gradleBuildStrategy"`
	JenkinsPluginsFile   string        `toml:"jenkinsPluginsFile" json:"jenkinsPluginsFile"`
	LogLevel             string        `toml:"logLevel" json:"logLevel"`
	ParserEngine         ParserEngine  `toml:"parserEngine" json:"parserEngine"`

	// Include/Exclude extend the Workspace Indexer's default scan
	// patterns (SPEC_FULL.md domain-stack extension over spec §4.8),
	// grounded on the teacher's Config.Include/Exclude fields.
	Include []string `toml:"include" json:"include"`
	Exclude []string `toml:"exclude" json:"exclude"`
}

// Default returns the engine's built-in defaults, applied before any
// workspace config file or did_change_configuration payload is
// merged in.
func Default() Settings {
	return Settings{
		CodeNarcEnabled:     true,
		GradleBuildStrategy: BuildStrategyAuto,
		LogLevel:            "info",
		ParserEngine:        ParserEngineDefault,
	}
}

// Load reads an optional workspace config file (TOML) at path,
// merging it onto Default(). A missing file is not an error: the
// engine runs fine on defaults until did_change_configuration
// arrives, matching the spec's "unknown/absent keys are ignored"
// contract extended to an absent file.
func Load(path string) (Settings, error) {
	s := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, err
	}
	if err := toml.Unmarshal(b, &s); err != nil {
		return s, err
	}
	return s, nil
}

// Merge applies update onto base, field by field, treating update's
// zero values as "unset" the way `did_change_configuration`'s partial
// map semantics do (spec §6: "recognised keys ... unknown keys are
// ignored" implies the converse too — omitted keys leave prior
// settings alone). Slice fields (Include/Exclude) replace wholesale
// when non-nil, matching the teacher's project-overrides-base
// precedence in mergeConfigs rather than appending silently.
func Merge(base Settings, update Settings) Settings {
	merged := base
	if update.GroovyLanguageVersion != "" {
		merged.GroovyLanguageVersion = update.GroovyLanguageVersion
	}
	if update.JavaHome != "" {
		merged.JavaHome = update.JavaHome
	}
	if update.GradleBuildStrategy != "" {
		merged.GradleBuildStrategy = update.GradleBuildStrategy
	}
	if update.JenkinsPluginsFile != "" {
		merged.JenkinsPluginsFile = update.JenkinsPluginsFile
	}
	if update.LogLevel != "" {
		merged.LogLevel = update.LogLevel
	}
	if update.ParserEngine != "" {
		merged.ParserEngine = update.ParserEngine
	}
	if update.Include != nil {
		merged.Include = update.Include
	}
	if update.Exclude != nil {
		merged.Exclude = update.Exclude
	}
	// CodeNarcEnabled is a plain bool with no "unset" sentinel; callers
	// that decode a partial map (e.g. the boundary's did_change_configuration
	// handler) must read it from the raw map directly rather than through
	// this whole-struct Merge when only a subset of keys changed — see
	// ApplyRaw.
	merged.CodeNarcEnabled = update.CodeNarcEnabled
	return merged
}

// ApplyRaw merges only the keys actually present in raw onto base,
// matching spec §6's did_change_configuration contract precisely:
// "recognised keys are merged; unknown keys are ignored" — and,
// implicitly, absent recognised keys leave the current setting alone.
// This is the entry point the boundary should call for a
// did_change_configuration payload, rather than Merge, since a JSON-RPC
// map only contains the keys the client chose to send.
func ApplyRaw(base Settings, raw map[string]any) Settings {
	merged := base
	if v, ok := raw["codeNarcEnabled"].(bool); ok {
		merged.CodeNarcEnabled = v
	}
	if v, ok := raw["groovyLanguageVersion"].(string); ok {
		merged.GroovyLanguageVersion = v
	}
	if v, ok := raw["javaHome"].(string); ok {
		merged.JavaHome = v
	}
	if v, ok := raw["gradleBuildStrategy"].(string); ok {
		merged.GradleBuildStrategy = BuildStrategy(v)
	}
	if v, ok := raw["jenkinsPluginsFile"].(string); ok {
		merged.JenkinsPluginsFile = v
	}
	if v, ok := raw["logLevel"].(string); ok {
		merged.LogLevel = v
	}
	if v, ok := raw["parserEngine"].(string); ok {
		merged.ParserEngine = ParserEngine(v)
	}
	return merged
}
