package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cube2222/octoplan/serialization"
)

var runCmd = &cobra.Command{
	Use:   "run <plan.bin>",
	Short: "Decode a plan from its wire form and execute it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("couldn't read wire file: %w", err)
		}
		node, err := serialization.Deserialize(data)
		if err != nil {
			return fmt.Errorf("couldn't deserialize plan: %w", err)
		}
		return runPlan(cmd.Context(), node)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
