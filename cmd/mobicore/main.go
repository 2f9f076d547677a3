// Command mobicore converts an FB2 ebook to a Mobipocket (MOBI) file.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	fb2c "github.com/mobiwright/mobicore"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func init() {
	if version != "dev" {
		return
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
}

func defaultOutputPath(inputPath string) string {
	return strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".mobi"
}

func readConvertOptions(cmd *cobra.Command, args []string) (string, string, fb2c.ConvertOptions, error) {
	inputPath := args[0]

	outputPath, _ := cmd.Flags().GetString("output")
	compress, _ := cmd.Flags().GetBool("compress")
	extractImages, _ := cmd.Flags().GetBool("extract-images")
	inlineTOC, _ := cmd.Flags().GetBool("inline-toc")
	title, _ := cmd.Flags().GetString("title")
	authors, _ := cmd.Flags().GetStringSlice("author")
	cover, _ := cmd.Flags().GetString("cover")
	verbose, _ := cmd.Flags().GetBool("verbose")

	if outputPath == "" {
		outputPath = defaultOutputPath(inputPath)
	}

	var logWriter io.Writer = io.Discard
	if verbose {
		logWriter = os.Stderr
	}

	opts := fb2c.DefaultConvertOptions()
	opts.Compression = compress
	opts.ExtractImages = extractImages
	opts.NoInlineTOC = !inlineTOC
	opts.Title = title
	opts.Authors = authors
	opts.CoverImage = cover
	opts.Logger = log.New(logWriter, "mobicore: ", 0)

	return inputPath, outputPath, opts, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mobicore <input.fb2>",
		Version: version,
		Short:   "Convert FB2 ebooks to Mobipocket (MOBI) files",
		Long: `mobicore converts FictionBook2 (FB2) ebooks into Mobipocket (MOBI)
container files: PalmDOC-compressed text records, a compiled table of
contents, and the primary/secondary INDX navigation records Kindle
devices and apps read.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath, outputPath, opts, err := readConvertOptions(cmd, args)
			if err != nil {
				return err
			}
			if err := fb2c.ConvertFileWithOptions(inputPath, outputPath, opts); err != nil {
				return fmt.Errorf("conversion failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outputPath)
			return nil
		},
	}

	cmd.SetVersionTemplate(fmt.Sprintf("mobicore %s (commit: %s, built: %s)\n", version, commit, date))
	cmd.SetErr(os.Stderr)
	cmd.Flags().StringP("output", "o", "", "Output MOBI file path (default: input with .mobi extension)")
	cmd.Flags().Bool("compress", true, "Enable PalmDOC text compression")
	cmd.Flags().Bool("extract-images", true, "Carry embedded images through as MOBI image records")
	cmd.Flags().Bool("inline-toc", false, "Generate an inline table-of-contents page in the text flow")
	cmd.Flags().String("title", "", "Override the book title")
	cmd.Flags().StringSlice("author", nil, "Override the book author(s); repeat the flag for multiple authors")
	cmd.Flags().String("cover", "", "Path to a cover image to embed")
	cmd.Flags().BoolP("verbose", "v", false, "Log indexing warnings (TOC discontinuities, non-conforming periodicals) to stderr")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
