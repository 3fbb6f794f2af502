package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/corpusgest/internal/pipeline"
)

var (
	indexFlags  corpusFlags
	indexOutput string
)

var indexCmd = &cobra.Command{
	Use:   "index <file>",
	Short: "Build and index one corpus, printing the indexed tree as JSON",
	Long: `Build a corpus tree from a source document, index it under its mount
path, and write the indexed tree as JSON. Chapter numbering warnings are
logged and summarized on stderr; they never stop the run.

Examples:
  corpusgest index al-kafi-v1.htm --mount /books/al-kafi --translator "Muhammad Sarwar"
  corpusgest index quran-uthmani.txt --format quran --metadata quran-data.xml \
      --translation sahih:en:en.sahih.txt --mount /books/quran -o quran.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := indexFlags.corpus(args[0])
		if err != nil {
			return err
		}
		res, err := pipeline.IndexFile(c, cfg, log)
		if err != nil {
			return err
		}
		if err := writeJSON(indexOutput, res.Root); err != nil {
			return fmt.Errorf("write tree: %w", err)
		}
		fmt.Fprintf(os.Stderr, "%s: %d nodes, %d leaves, %d sequence warnings\n",
			c.MountPath, res.Nodes, res.Leaves, len(res.Diagnostics))
		return nil
	},
}

func init() {
	indexFlags.register(indexCmd)
	indexCmd.Flags().StringVarP(&indexOutput, "output", "o", "", "write the tree to this file instead of stdout")
	rootCmd.AddCommand(indexCmd)
}
