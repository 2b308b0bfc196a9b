package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/discochess/xzra"
	"github.com/discochess/xzra/internal/pack"
)

var compressCmd = &cobra.Command{
	Use:   "compress SRC DST",
	Short: "Pack a file into a random-access xz file",
	Long: `Compress SRC into DST as a single xz stream made of many
independently decodable blocks.

SRC may be a local file or an http(s) URL; plain, gzip, zstd, xz and
snappy inputs are recognised by their magic bytes or extension. DST may be
a local path or a gs:// or s3:// object.

Examples:
  # 4 MiB blocks, compressed on 8 threads
  xzra compress dump.jsonl dump.jsonl.xz --block-size 4MiB --threads 8

  # Repack a download straight into a bucket
  xzra compress https://example.com/data.zst gs://bucket/data.xz --manifest`,
	Args: cobra.ExactArgs(2),
	RunE: runCompress,
}

var (
	compressPreset    int
	compressBlockSize string
	compressThreads   int
	compressCheck     string
	compressManifest  bool
	compressQuiet     bool
	compressTempDir   string
)

func init() {
	compressCmd.Flags().IntVarP(&compressPreset, "preset", "p", xzra.DefaultPreset, "compression preset 0-9")
	compressCmd.Flags().StringVar(&compressBlockSize, "block-size", "4MiB", "uncompressed block size (e.g. 1MiB, 65536)")
	compressCmd.Flags().IntVarP(&compressThreads, "threads", "T", 1, "number of blocks compressed at once")
	compressCmd.Flags().StringVarP(&compressCheck, "check", "C", "crc64", "integrity check: none, crc32, crc64, sha256")
	compressCmd.Flags().BoolVar(&compressManifest, "manifest", false, "write a JSON manifest next to the output")
	compressCmd.Flags().BoolVarP(&compressQuiet, "quiet", "q", false, "do not report progress")
	compressCmd.Flags().StringVar(&compressTempDir, "temp-dir", "", "directory for downloads and remote outputs")
	rootCmd.AddCommand(compressCmd)
}

func runCompress(cmd *cobra.Command, args []string) error {
	blockSize, err := parseSize(compressBlockSize)
	if err != nil {
		return fmt.Errorf("--block-size: %w", err)
	}
	check, err := xzra.ParseCheck(compressCheck)
	if err != nil {
		return fmt.Errorf("--check: %w", err)
	}

	opts := []pack.Option{
		pack.WithPreset(compressPreset),
		pack.WithBlockSize(blockSize),
		pack.WithThreads(compressThreads),
		pack.WithCheck(check),
		pack.WithManifest(compressManifest),
		pack.WithTempDir(compressTempDir),
		pack.WithLogger(logger),
	}
	if !compressQuiet {
		opts = append(opts, pack.WithProgress(pack.NewProgressPrinter(cmd.ErrOrStderr())))
	}

	m, err := pack.New(opts...).Pack(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d blocks, %s -> %s (ratio %.3f)\n",
		args[1], m.Blocks, pack.FormatBytes(m.UncompressedSize), pack.FormatBytes(m.CompressedSize), m.Ratio())
	return nil
}

// parseSize parses a byte count with an optional KiB, MiB or GiB suffix.
func parseSize(s string) (int64, error) {
	mult := int64(1)
	for _, u := range []struct {
		suffix string
		mult   int64
	}{{"KiB", 1 << 10}, {"MiB", 1 << 20}, {"GiB", 1 << 30}, {"K", 1 << 10}, {"M", 1 << 20}, {"G", 1 << 30}} {
		if strings.HasSuffix(s, u.suffix) {
			s, mult = strings.TrimSuffix(s, u.suffix), u.mult
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}
	return n * mult, nil
}
