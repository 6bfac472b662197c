package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/AndreyAkinshin/utrun/internal/config"
	"github.com/AndreyAkinshin/utrun/internal/coverage"
	runerrors "github.com/AndreyAkinshin/utrun/internal/errors"
	"github.com/AndreyAkinshin/utrun/internal/pipeline"
)

// runFlags are the flags of a full run.
type runFlags struct {
	outputDir   string
	logFile     string
	xmlFile     string
	suites      []string
	filter      string
	list        bool
	clean       bool
	noBuild     bool
	noTest      bool
	valgrind    bool
	coverage    bool
	baseline    string
	policy      string
	envFile     string
	metricsFile string
}

func (f *runFlags) register(fl *pflag.FlagSet) {
	fl.StringVarP(&f.outputDir, "output", "o", config.DefaultOutputDir, "build output directory")
	fl.StringVarP(&f.logFile, "file", "f", "", "write suite output to a log file (bare flag: "+config.DefaultLogFile+")")
	fl.Lookup("file").NoOptDefVal = config.DefaultLogFile
	fl.StringVar(&f.xmlFile, "xml", "", "write gtest XML results (bare flag: "+config.DefaultXMLFile+")")
	fl.Lookup("xml").NoOptDefVal = config.DefaultXMLFile
	fl.StringSliceVarP(&f.suites, "suites", "s", nil, "suite ids to build and run, comma separated or repeated (default: all)")
	fl.StringVarP(&f.filter, "gtest-filter", "g", "", "gtest filter passed to every suite")
	fl.BoolVarP(&f.list, "list-tests", "l", false, "list the tests of each suite instead of running them")
	fl.BoolVarP(&f.clean, "clean", "c", false, "remove the output directory and log file first")
	fl.BoolVar(&f.noBuild, "no-build", false, "skip configure and compile")
	fl.BoolVar(&f.noTest, "no-test", false, "skip running the suites")
	fl.BoolVar(&f.valgrind, "valgrind", false, "run suites under the memory checker")
	fl.BoolVar(&f.coverage, "coverage", false, "instrument the build and collect coverage")
	fl.StringVar(&f.baseline, "baseline", "", "previous coverage statistics file to compare against")
	fl.StringVar(&f.policy, "policy", "", "coverage comparison policy (default from "+config.FileName+")")
	fl.StringVar(&f.envFile, "env-file", "", "dotenv file with extra variables for spawned processes")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file")
}

func (f *runFlags) validate() error {
	if f.policy != "" {
		if _, err := coverage.ParsePolicy(f.policy); err != nil {
			return runerrors.Config(err.Error())
		}
	}
	if f.baseline != "" && !f.coverage {
		return runerrors.Config("--baseline requires --coverage")
	}
	return nil
}

func (f *runFlags) input(fl *pflag.FlagSet, verbose bool) config.RunInput {
	var suites []string
	if fl.Changed("suites") {
		suites = append([]string{}, f.suites...)
	}
	return config.RunInput{
		OutputDir:   f.outputDir,
		Suites:      suites,
		Clean:       f.clean,
		NoBuild:     f.noBuild,
		NoTest:      f.noTest,
		ListTests:   f.list,
		GTestFilter: f.filter,
		Valgrind:    f.valgrind,
		Coverage:    f.coverage,
		LogFile:     f.logFile,
		XMLFile:     f.xmlFile,
		EnvFile:     f.envFile,
		Baseline:    f.baseline,
		Policy:      f.policy,
		MetricsFile: f.metricsFile,
		Verbose:     verbose,
	}
}

// runPipeline performs a full run.
func (a *app) runPipeline(cmd *cobra.Command, f *runFlags) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	run, err := config.NewRun(f.input(cmd.Flags(), a.opts.Verbose), cfg)
	if err != nil {
		return err
	}

	p := pipeline.New(a.out)
	p.Runner = a.runner
	_, err = p.Execute(cmd.Context(), run)
	return err
}
