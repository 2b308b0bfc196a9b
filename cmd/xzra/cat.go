package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/discochess/xzra"
)

var catCmd = &cobra.Command{
	Use:   "cat PATH",
	Short: "Write a range of uncompressed bytes to stdout",
	Long: `Decode the bytes [offset, offset+length) of an xz file and write them
to stdout. Only the blocks overlapping the range are read.

A negative length means "to the end of the file". With --workers above
one, the range is split between parallel readers.`,
	Args: cobra.ExactArgs(1),
	RunE: runCat,
}

var (
	catOffset    int64
	catLength    int64
	catWorkers   int
	catPartition string
)

func init() {
	catCmd.Flags().Int64Var(&catOffset, "offset", 0, "uncompressed offset to start at")
	catCmd.Flags().Int64Var(&catLength, "length", -1, "number of bytes to write")
	catCmd.Flags().IntVarP(&catWorkers, "workers", "w", 1, "number of parallel readers")
	catCmd.Flags().StringVar(&catPartition, "partition", "blockaligned", "partition strategy: blockaligned, uniform")
	rootCmd.AddCommand(catCmd)
}

func runCat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	r, err := openReader(ctx, path)
	if err != nil {
		return err
	}
	length := catLength
	if length < 0 {
		length = r.UncompressedSize() - catOffset
	}
	if size := r.UncompressedSize(); catOffset < 0 || length < 0 || length > size-catOffset {
		r.Close()
		return fmt.Errorf("%w: range [%d, +%d) outside [0, %d)", xzra.ErrLocate, catOffset, length, size)
	}
	out := make([]byte, length)

	if catWorkers <= 1 {
		err = r.Load(catOffset, out)
		r.Close()
	} else {
		r.Close()
		s, perr := xzra.PartitionStrategy(catPartition)
		if perr != nil {
			return perr
		}
		err = xzra.LoadParallel(ctx, func() (*xzra.Reader, error) {
			return openReader(ctx, path)
		}, catOffset, out, catWorkers, xzra.WithPartition(s))
	}
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(out)
	return err
}
