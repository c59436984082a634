package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cube2222/octoplan/arrowexec/execution"
	"github.com/cube2222/octoplan/arrowexec/nodes"
	"github.com/cube2222/octoplan/serialization"
)

var explainCmd = &cobra.Command{
	Use:   "explain <plans.yml>",
	Short: "Output stringified plans through an explain node.",
	Long: `Reads a yaml list of stringified plans, each with a stage and a plan, and runs them
through an explain node. With --ship the node is encoded and decoded before being executed,
as if it was sent to another process.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plans, err := readStringifiedPlans(args[0])
		if err != nil {
			return err
		}

		var node execution.Node = nodes.NewExplain(nodes.NewExplainSchema(), plans)

		if wirePath != "" || ship {
			data, err := serialization.Serialize(node)
			if err != nil {
				return fmt.Errorf("couldn't serialize plan: %w", err)
			}
			if wirePath != "" {
				if err := os.WriteFile(wirePath, data, 0644); err != nil {
					return fmt.Errorf("couldn't write wire file: %w", err)
				}
			}
			if ship {
				if node, err = serialization.Deserialize(data); err != nil {
					return fmt.Errorf("couldn't deserialize plan: %w", err)
				}
			}
		}

		return runPlan(cmd.Context(), node)
	},
}

var ship bool
var wirePath string

func init() {
	explainCmd.Flags().BoolVar(&ship, "ship", false, "Round-trip the plan through its wire form before executing it.")
	explainCmd.Flags().StringVar(&wirePath, "wire", "", "Write the wire form of the plan to this file.")
	rootCmd.AddCommand(explainCmd)
}

func readStringifiedPlans(path string) ([]nodes.StringifiedPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read plans file: %w", err)
	}
	var plans []nodes.StringifiedPlan
	if err := yaml.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("couldn't decode plans file: %w", err)
	}
	return plans, nil
}
