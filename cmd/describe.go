package cmd

import (
	"fmt"

	"github.com/KaramelBytes/autolysis-cli/internal/analysis"
	"github.com/KaramelBytes/autolysis-cli/internal/dataset"
	"github.com/spf13/cobra"
)

var (
	descDelimiter string
	descSheet     string
	descMaxRows   int
)

var describeCmd = &cobra.Command{
	Use:   "describe <dataset_path>",
	Short: "Print descriptive statistics for a dataset",
	Long:  `Describe loads the dataset, imputes missing values and prints one row of statistics per column. No charts are rendered and no model is called.`,
	Args:  checkArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		delim, err := parseDelimiter(descDelimiter)
		if err != nil {
			return err
		}
		frame, err := dataset.Load(args[0], dataset.LoadOptions{
			Delimiter: delim,
			Sheet:     descSheet,
			MaxRows:   descMaxRows,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		imputed, notes := analysis.Impute(frame)
		res := &analysis.Result{
			Name:     frame.Name,
			Encoding: frame.Encoding,
			Rows:     frame.Rows,
			Columns:  len(frame.Columns),
			Summary:  analysis.Describe(imputed, cfg.MADThreshold),
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d rows, %d columns\n\n", frame.Name, frame.Rows, len(frame.Columns))
		res.WriteSummaryTable(out)
		for _, n := range append(frame.Notes, notes...) {
			info(out, "note: %s", n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringVar(&descDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|' (default by extension)")
	describeCmd.Flags().StringVar(&descSheet, "sheet", "", "XLSX: sheet name (default first sheet)")
	describeCmd.Flags().IntVar(&descMaxRows, "max-rows", 0, "maximum rows to read (0 = unlimited)")
}
