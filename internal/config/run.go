package config

import (
	"fmt"
	"runtime"

	runerrors "github.com/AndreyAkinshin/utrun/internal/errors"
	"github.com/AndreyAkinshin/utrun/internal/process"
	"github.com/AndreyAkinshin/utrun/internal/suite"
)

// RunInput carries the command-line choices of one invocation.
type RunInput struct {
	OutputDir   string
	Suites      []string // nil selects every registered suite
	Clean       bool
	NoBuild     bool
	NoTest      bool
	ListTests   bool
	GTestFilter string
	Valgrind    bool
	Coverage    bool
	LogFile     string // empty disables the result log
	XMLFile     string // empty disables XML output
	EnvFile     string // overrides env_file from the config file
	Baseline    string // previous coverage statistics to compare against
	Policy      string // overrides coverage.policy
	MetricsFile string
	Verbose     bool
}

// Run is the resolved configuration of one invocation. It is built once
// by NewRun and passed by value; nothing modifies it afterwards.
type Run struct {
	Registry  *suite.Registry
	Requested []string

	OutputDir string
	Clean     bool
	Build     bool
	Test      bool
	List      bool
	Filter    string
	Memcheck  bool
	Coverage  bool
	LogFile   string
	XMLFile   string

	BuildDefines []string
	Jobs         int
	Environment  map[string]string

	CoverageExcludes []string
	CoverageFilters  []string
	ReportDir        string
	Baseline         string
	Policy           string

	MemcheckTool string
	Suppressions string
	ReportName   string
	MinVersion   string

	MetricsFile string
	Verbose     bool
}

// NewRun combines command-line input with the configuration file.
// Errors are configuration errors.
func NewRun(in RunInput, cfg *File) (Run, error) {
	if cfg == nil {
		cfg = Default()
	}

	registry, err := cfg.Registry()
	if err != nil {
		return Run{}, runerrors.Configf("invalid suite registry: %v", err)
	}

	if in.ListTests && in.GTestFilter != "" {
		return Run{}, runerrors.Config("--list-tests and --gtest-filter are mutually exclusive")
	}

	outputDir := in.OutputDir
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}

	env := make(map[string]string, len(cfg.Environment))
	for k, v := range cfg.Environment {
		env[k] = v
	}
	envFile := cfg.EnvFile
	if in.EnvFile != "" {
		envFile = in.EnvFile
	}
	if envFile != "" {
		vars, err := process.ReadEnvFile(envFile)
		if err != nil {
			return Run{}, configError(err)
		}
		for k, v := range vars {
			env[k] = v
		}
	}

	policy := cfg.Coverage.Policy
	if in.Policy != "" {
		policy = in.Policy
	}

	var requested []string
	if in.Suites != nil {
		requested = append([]string{}, in.Suites...)
	}

	return Run{
		Registry:  registry,
		Requested: requested,

		OutputDir: outputDir,
		Clean:     in.Clean,
		Build:     !in.NoBuild,
		Test:      !in.NoTest,
		List:      in.ListTests,
		Filter:    in.GTestFilter,
		Memcheck:  in.Valgrind,
		Coverage:  in.Coverage,
		LogFile:   in.LogFile,
		XMLFile:   in.XMLFile,

		BuildDefines: append([]string(nil), cfg.BuildDefines...),
		Jobs:         runtime.NumCPU(),
		Environment:  env,

		CoverageExcludes: append([]string(nil), cfg.Coverage.Excludes...),
		CoverageFilters:  append([]string(nil), cfg.Coverage.Filters...),
		ReportDir:        cfg.Coverage.ReportDir,
		Baseline:         in.Baseline,
		Policy:           policy,

		MemcheckTool: cfg.Memcheck.Tool,
		Suppressions: cfg.Memcheck.Suppressions,
		ReportName:   cfg.Memcheck.ReportName,
		MinVersion:   cfg.Memcheck.MinVersion,

		MetricsFile: in.MetricsFile,
		Verbose:     in.Verbose,
	}, nil
}

// String summarises the run for diagnostics.
func (r Run) String() string {
	return fmt.Sprintf("output=%s build=%t test=%t list=%t memcheck=%t coverage=%t",
		r.OutputDir, r.Build, r.Test, r.List, r.Memcheck, r.Coverage)
}
