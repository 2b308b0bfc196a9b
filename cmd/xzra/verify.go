package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/discochess/xzra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify PATH...",
	Short: "Verify the integrity of xz files",
	Long: `Verify that every block of each file decodes and matches its
integrity check.

With --workers N, the whole file is then loaded with 1 to N parallel
readers under each partition strategy, and every result is compared with
a sequential load.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

var verifyWorkers int

func init() {
	verifyCmd.Flags().IntVarP(&verifyWorkers, "workers", "w", 0, "also compare parallel loads with up to this many readers")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	var errCount int
	for _, path := range args {
		if err := verifyFile(cmd, path); err != nil {
			fmt.Fprintf(out, "  ERROR: %s: %v\n", path, err)
			errCount++
			continue
		}
		fmt.Fprintf(out, "%s: OK\n", path)
	}
	if errCount > 0 {
		return fmt.Errorf("%d files failed verification", errCount)
	}
	return nil
}

func verifyFile(cmd *cobra.Command, path string) error {
	ctx := cmd.Context()
	r, err := openReader(ctx, path)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := r.Verify(); err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d blocks verified\n", path, r.BlockCount())
	}
	if verifyWorkers < 1 {
		return nil
	}

	want := make([]byte, r.UncompressedSize())
	if err := r.Load(0, want); err != nil {
		return fmt.Errorf("sequential load: %w", err)
	}
	open := func() (*xzra.Reader, error) { return openReader(ctx, path) }
	got := make([]byte, len(want))
	for _, name := range []string{"blockaligned", "uniform"} {
		s, err := xzra.PartitionStrategy(name)
		if err != nil {
			return err
		}
		for n := 1; n <= verifyWorkers; n++ {
			clear(got)
			if err := xzra.LoadParallel(ctx, open, 0, got, n, xzra.WithPartition(s)); err != nil {
				return fmt.Errorf("%s load with %d workers: %w", name, n, err)
			}
			if !bytes.Equal(got, want) {
				return fmt.Errorf("%s load with %d workers differs from sequential load", name, n)
			}
		}
	}
	return nil
}
