package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/discochess/xzra"
	"github.com/discochess/xzra/internal/pack"
)

var infoCmd = &cobra.Command{
	Use:   "info PATH...",
	Short: "Show the stream and block layout of xz files",
	Long: `Print the streams of each file with their sizes, checks and block
counts, followed by the overall compression ratio.

With --blocks, every block is listed with its compressed and uncompressed
ranges.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

var infoBlocks bool

func init() {
	infoCmd.Flags().BoolVar(&infoBlocks, "blocks", false, "list every block")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for i, path := range args {
		if i > 0 {
			fmt.Fprintln(out)
		}
		r, err := openReader(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		printInfo(cmd, path, r)
		r.Close()
	}
	return nil
}

func printInfo(cmd *cobra.Command, path string, r *xzra.Reader) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:          %s\n", path)
	fmt.Fprintf(out, "Compressed:    %s (%d bytes)\n", pack.FormatBytes(r.Size()), r.Size())
	fmt.Fprintf(out, "Uncompressed:  %s (%d bytes)\n", pack.FormatBytes(r.UncompressedSize()), r.UncompressedSize())
	fmt.Fprintf(out, "Ratio:         %.3f\n", fileRatio(r))
	fmt.Fprintf(out, "Streams:       %d\n", r.StreamCount())
	fmt.Fprintf(out, "Blocks:        %d\n", r.BlockCount())

	fmt.Fprintln(out)
	tw := newTable(out, "Stream", "Blocks", "CompOffset", "UncompOffset", "CompSize", "UncompSize", "Padding", "Check")
	for _, s := range r.Streams() {
		tw.Append([]string{
			itoa(int64(s.Number)), itoa(int64(s.BlockCount)), itoa(s.CompressedOffset), itoa(s.UncompressedOffset),
			itoa(s.CompressedSize), itoa(s.UncompressedSize), itoa(s.Padding), s.Check.String(),
		})
	}
	tw.Render()

	if !infoBlocks {
		return
	}
	fmt.Fprintln(out)
	tw = newTable(out, "Block", "Stream", "CompOffset", "UncompOffset", "TotalSize", "UncompSize", "Check")
	for c := r.Blocks(); c.Next(); {
		b := c.Block()
		tw.Append([]string{
			itoa(int64(b.Number())), itoa(int64(b.StreamNumber())), itoa(b.CompressedOffset()), itoa(b.UncompressedOffset()),
			itoa(b.TotalSize()), itoa(b.UncompressedSize()), b.Check().String(),
		})
	}
	tw.Render()
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	tw.SetBorder(false)
	return tw
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// fileRatio returns compressed size over uncompressed size, 0 when empty.
func fileRatio(r *xzra.Reader) float64 {
	if r.UncompressedSize() == 0 {
		return 0
	}
	return float64(r.Size()) / float64(r.UncompressedSize())
}
