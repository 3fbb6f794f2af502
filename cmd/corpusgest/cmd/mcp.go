package cmd

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/dgallion1/corpusgest/internal/mcptools"
	"github.com/dgallion1/corpusgest/internal/sink"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve corpus tools over MCP on stdio",
	Long: `Run an MCP server on stdin/stdout exposing search over the index named
by SEARCH_INDEX and read-only validate/outline tools for source files.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var search mcptools.Searcher
		if cfg.SearchIndex != "" {
			s, err := sink.OpenSearch(cfg.SearchIndex)
			if err != nil {
				return err
			}
			defer s.Close()
			search = s
		}
		srv := mcptools.NewServer(mcptools.New(search, cfg, log), version)
		return server.ServeStdio(srv)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
