package config

import "github.com/AndreyAkinshin/utrun/internal/suite"

// FileName is the configuration file looked up from the working directory.
const FileName = "utrun.yaml"

// Default configuration values.
const (
	DefaultBuildFlag      = "-DCMAKE_BUILD_FLAG=UnitTests"
	DefaultOutputDir      = "build"
	DefaultLogFile        = "gtest_result.log"
	DefaultXMLFile        = "gtest_result.xml"
	DefaultReportDir      = "gh_pages/coverage_report"
	DefaultPolicy         = "regression"
	DefaultMemcheckTool   = "valgrind"
	DefaultSuppressions   = "rialto.supp"
	DefaultReportName     = "valgrind_report"
	DefaultMinVersion     = "3.17.0"
	DefaultSocketPath     = "/tmp/rialto-0"
	EnvSocketPath         = "RIALTO_SOCKET_PATH"
	EnvConsoleLog         = "RIALTO_CONSOLE_LOG"
	DefaultConsoleLogFlag = "1"
)

// DefaultExcludes are the lcov --exclude patterns: system headers, build
// artifacts, test sources and generated wrappers.
var DefaultExcludes = []string{"/usr/*", "*build/*", "*tests/*", "*wrappers/*"}

// DefaultFilters are the lcov --filter values.
var DefaultFilters = []string{"brace", "trivial"}

// DefaultEnvironment returns the variables set for every spawned process.
func DefaultEnvironment() map[string]string {
	return map[string]string{
		EnvSocketPath: DefaultSocketPath,
		EnvConsoleLog: DefaultConsoleLogFlag,
	}
}

// applyDefaults fills in default values for unset configuration fields.
func applyDefaults(cfg *File) {
	applySuiteDefaults(cfg)
	applyBuildDefaults(cfg)
	applyEnvironmentDefaults(cfg)
	applyCoverageDefaults(cfg)
	applyMemcheckDefaults(cfg)
}

func applySuiteDefaults(cfg *File) {
	if len(cfg.Suites) > 0 {
		return
	}
	for _, d := range suite.DefaultDescriptors() {
		cfg.Suites = append(cfg.Suites, SuiteConfig{ID: d.ID, Name: d.Name, Path: d.Path})
	}
}

func applyBuildDefaults(cfg *File) {
	for _, d := range cfg.BuildDefines {
		if d == DefaultBuildFlag {
			return
		}
	}
	cfg.BuildDefines = append([]string{DefaultBuildFlag}, cfg.BuildDefines...)
}

func applyEnvironmentDefaults(cfg *File) {
	env := DefaultEnvironment()
	for k, v := range cfg.Environment {
		env[k] = v
	}
	cfg.Environment = env
}

func applyCoverageDefaults(cfg *File) {
	if cfg.Coverage == nil {
		cfg.Coverage = &CoverageConfig{}
	}
	if cfg.Coverage.Excludes == nil {
		cfg.Coverage.Excludes = append([]string(nil), DefaultExcludes...)
	}
	if cfg.Coverage.Filters == nil {
		cfg.Coverage.Filters = append([]string(nil), DefaultFilters...)
	}
	if cfg.Coverage.ReportDir == "" {
		cfg.Coverage.ReportDir = DefaultReportDir
	}
	if cfg.Coverage.Policy == "" {
		cfg.Coverage.Policy = DefaultPolicy
	}
}

func applyMemcheckDefaults(cfg *File) {
	if cfg.Memcheck == nil {
		cfg.Memcheck = &MemcheckConfig{}
	}
	if cfg.Memcheck.Tool == "" {
		cfg.Memcheck.Tool = DefaultMemcheckTool
	}
	if cfg.Memcheck.Suppressions == "" {
		cfg.Memcheck.Suppressions = DefaultSuppressions
	}
	if cfg.Memcheck.ReportName == "" {
		cfg.Memcheck.ReportName = DefaultReportName
	}
	if cfg.Memcheck.MinVersion == "" {
		cfg.Memcheck.MinVersion = DefaultMinVersion
	}
}
