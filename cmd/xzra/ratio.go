package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ratioCmd = &cobra.Command{
	Use:   "ratio PATH...",
	Short: "Print the compression ratio of xz files",
	Long: `Print compressed size divided by uncompressed size for each file,
then the average over all files. Only the index is read.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRatio,
}

func init() {
	rootCmd.AddCommand(ratioCmd)
}

func runRatio(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	var sum float64
	for _, path := range args {
		r, err := openReader(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		ratio := fileRatio(r)
		r.Close()
		sum += ratio
		fmt.Fprintf(out, "%s: %.4f\n", path, ratio)
	}
	if len(args) > 1 {
		fmt.Fprintf(out, "average: %.4f\n", sum/float64(len(args)))
	}
	return nil
}
