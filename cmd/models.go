package cmd

import (
	"fmt"

	"github.com/KaramelBytes/autolysis-cli/internal/ai"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models, context windows and pricing",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := tablewriter.NewWriter(cmd.OutOrStdout())
		t.SetHeader([]string{"Model", "Context", "In $/1K", "Out $/1K"})
		t.SetAutoFormatHeaders(false)
		for _, mi := range ai.Catalog() {
			in, out := "-", "-"
			if mi.InputPerK > 0 || mi.OutputPerK > 0 {
				in, out = fmt.Sprintf("%.5f", mi.InputPerK), fmt.Sprintf("%.5f", mi.OutputPerK)
			}
			t.Append([]string{mi.Name, fmt.Sprint(mi.ContextTokens), in, out})
		}
		t.Render()
		fmt.Fprintf(cmd.OutOrStdout(), "Providers: %v\n", ai.Providers())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
