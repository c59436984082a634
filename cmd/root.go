package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/profile"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"

	"github.com/cube2222/octoplan/arrowexec/execution"
	"github.com/cube2222/octoplan/config"
	"github.com/cube2222/octoplan/graph"
	"github.com/cube2222/octoplan/logs"
	"github.com/cube2222/octoplan/outputs/formats"
)

var cfg *config.Config
var stopProfiling interface{ Stop() }

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "octoplan",
	Short: "Execute and inspect physical query plans.",
	Example: `octoplan explain plans.yml
octoplan explain --wire plan.bin plans.yml
octoplan run plan.bin`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Read(configPath)
		if err != nil {
			return fmt.Errorf("couldn't read config: %w", err)
		}
		if outputFormat != "" {
			cfg.Output.Format = outputFormat
		}
		if err := logs.InitializeFileLogger(config.OctoplanCacheDir, cfg.Logs.Level); err != nil {
			return fmt.Errorf("couldn't initialize logger: %w", err)
		}
		if profiling {
			stopProfiling = profile.Start(profile.CPUProfile, profile.ProfilePath("."))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopProfiling != nil {
			stopProfiling.Stop()
		}
		logs.CloseLogger()
	},
}

func Execute(ctx context.Context) {
	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}

var configPath string
var outputFormat string
var profiling bool
var displayFormat string
var graphLevel int

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the configuration file.")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "", "Output format: table, csv or json. Overrides the configuration file.")
	rootCmd.PersistentFlags().BoolVar(&profiling, "profile", false, "Write a CPU profile to the current directory.")
	rootCmd.PersistentFlags().StringVar(&displayFormat, "display", "", "Print the plan tree before running it: default or verbose.")
	rootCmd.PersistentFlags().IntVar(&graphLevel, "graph", 0, "Render the plan as a graph and open it instead of running it, 2 includes schemas.")
}

// runPlan prints, visualizes or executes the plan, depending on the flags.
func runPlan(ctx context.Context, node execution.Node) error {
	if displayFormat != "" {
		format, err := execution.ParseDisplayFormat(displayFormat)
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stderr, execution.DisplayTree(node, format))
	}

	if graphLevel >= 1 {
		return showGraph(node, graphLevel >= 2)
	}

	records, err := execution.Collect(ctx, node, execution.DriverOptions{
		Parallelism: cfg.Execution.Parallelism,
	})
	if err != nil {
		return fmt.Errorf("couldn't execute plan: %w", err)
	}
	defer execution.ReleaseAll(records)

	formatter, err := formats.NewFormatter(cfg.Output.Format, os.Stdout)
	if err != nil {
		return err
	}
	if err := formats.WriteRecords(formatter, node.Schema(), records); err != nil {
		return fmt.Errorf("couldn't write output: %w", err)
	}
	return nil
}

func showGraph(node execution.Node, withSchema bool) error {
	g, err := graph.Show(execution.Describe(node, withSchema))
	if err != nil {
		return fmt.Errorf("couldn't build graph: %w", err)
	}
	file, err := os.CreateTemp(os.TempDir(), "octoplan-describe-*.png")
	if err != nil {
		return fmt.Errorf("couldn't create temporary file: %w", err)
	}
	cmd := exec.Command("dot", "-Tpng")
	cmd.Stdin = strings.NewReader(g.String())
	cmd.Stdout = file
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		file.Close()
		return fmt.Errorf("couldn't render graph: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("couldn't close temporary file: %w", err)
	}
	if err := open.Start(file.Name()); err != nil {
		return fmt.Errorf("couldn't open graph: %w", err)
	}
	return nil
}
