package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/corpusgest/internal/sink"
)

var searchSize int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search imported corpora",
	Long: `Run a full-text query against the search index named by SEARCH_INDEX.

Examples:
  corpusgest search "the merciful"
  corpusgest search intellect --size 20`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.SearchIndex == "" {
			return errors.New("SEARCH_INDEX is not set")
		}
		s, err := sink.OpenSearch(cfg.SearchIndex)
		if err != nil {
			return err
		}
		defer s.Close()

		hits, err := s.Search(strings.Join(args, " "), searchSize)
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			fmt.Println("No results found")
			return nil
		}
		for _, h := range hits {
			fmt.Printf("[%s] %s %.3f\n", h.Kind, h.Path, h.Score)
			if h.Breadcrumb != "" {
				fmt.Printf("    %s\n", h.Breadcrumb)
			}
			if text := h.Text; text != "" {
				fmt.Printf("    %s\n", text)
			} else if h.Title != "" {
				fmt.Printf("    %s\n", h.Title)
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchSize, "size", "n", 10, "maximum hits")
	rootCmd.AddCommand(searchCmd)
}
