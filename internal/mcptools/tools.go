// Package mcptools exposes corpus lookup and checking as MCP tools, so an
// assistant can search imported corpora and inspect source files before
// they are imported.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dgallion1/corpusgest/internal/config"
	"github.com/dgallion1/corpusgest/internal/doctree"
	"github.com/dgallion1/corpusgest/internal/pipeline"
	"github.com/dgallion1/corpusgest/internal/sink"
)

// Searcher runs full-text queries over imported corpora.
type Searcher interface {
	Search(query string, size int) ([]sink.Hit, error)
}

// Tools holds what the tool handlers share. search may be nil.
type Tools struct {
	search Searcher
	cfg    config.Config
	log    *slog.Logger
}

func New(search Searcher, cfg config.Config, log *slog.Logger) *Tools {
	return &Tools{search: search, cfg: cfg, log: log}
}

// NewServer returns an MCP server with every corpus tool registered.
func NewServer(t *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer("corpusgest", version, server.WithToolCapabilities(true))
	t.Register(s)
	return s
}

// Register adds the corpus tools to s.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(searchTool(), t.handleSearch)
	s.AddTool(validateTool(), t.handleValidate)
	s.AddTool(outlineTool(), t.handleOutline)
}

func corpusArgs(desc string, extra ...mcp.ToolOption) []mcp.ToolOption {
	opts := []mcp.ToolOption{
		mcp.WithDescription(desc),
		mcp.WithString("file", mcp.Description("Path of the source document on the server"), mcp.Required()),
		mcp.WithString("format", mcp.Description("Source format: json, markdown, html, docx, pdf, text or quran. Guessed from the extension when omitted.")),
		mcp.WithString("mount_path", mcp.Description("Mount path of the corpus root, e.g. /books/al-kafi (default /corpus)")),
		mcp.WithString("metadata", mcp.Description("quran-data.xml sura table, required for the quran format")),
		mcp.WithString("sequence_pattern", mcp.Description(`Chapter number pattern with one capture group (default "Chapter (\d+)")`)),
		mcp.WithString("sequence_scope", mcp.Description("siblings restarts numbering under every parent; corpus numbers chapters globally")),
	}
	return append(opts, extra...)
}

func searchTool() mcp.Tool {
	return mcp.NewTool("search",
		mcp.WithDescription("Full-text search over imported corpora. Returns verse and chapter paths with breadcrumbs."),
		mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
		mcp.WithNumber("size", mcp.Description("Maximum hits (default 10, at most 100)")),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewTool("validate_corpus", corpusArgs(
		"Build and index a source document and report chapter numbering gaps. Nothing is stored.")...)
}

func outlineTool() mcp.Tool {
	return mcp.NewTool("outline_corpus", corpusArgs(
		"Build and index a source document and show its structure with the path and verse range of every node.",
		mcp.WithNumber("depth", mcp.Description("Deepest level shown (default 2)")),
	)...)
}

func (t *Tools) handleSearch(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.search == nil {
		return toolError(errors.New("search index not configured"))
	}
	query := req.GetString("query", "")
	if query == "" {
		return toolError(errors.New("query is required"))
	}
	hits, err := t.search.Search(query, req.GetInt("size", 10))
	if err != nil {
		return toolError(err)
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("No results found."), nil
	}

	var sb strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&sb, "%s  [%s]", h.Path, h.Kind)
		if h.Breadcrumb != "" {
			fmt.Fprintf(&sb, "  %s", h.Breadcrumb)
		}
		sb.WriteString("\n")
		if h.Text != "" {
			fmt.Fprintf(&sb, "    %s\n", h.Text)
		} else if h.Title != "" {
			fmt.Fprintf(&sb, "    %s\n", h.Title)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (t *Tools) corpus(req mcp.CallToolRequest) (config.Corpus, error) {
	file := req.GetString("file", "")
	c := config.Corpus{
		Name:      "corpus",
		File:      file,
		Format:    req.GetString("format", ""),
		MountPath: req.GetString("mount_path", "/corpus"),
		Metadata:  req.GetString("metadata", ""),
		IndexRules: config.IndexRules{
			SequencePattern: req.GetString("sequence_pattern", ""),
			SequenceScope:   req.GetString("sequence_scope", ""),
		},
	}
	if err := c.Validate(); err != nil {
		return config.Corpus{}, err
	}
	return c, nil
}

func (t *Tools) handleValidate(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := t.corpus(req)
	if err != nil {
		return toolError(err)
	}
	res, err := pipeline.IndexFile(c, t.cfg, t.log)
	if err != nil {
		return toolError(err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d nodes, %d leaves, %d sequence warnings\n",
		c.MountPath, res.Nodes, res.Leaves, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		sb.WriteString(d.String())
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (t *Tools) handleOutline(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := t.corpus(req)
	if err != nil {
		return toolError(err)
	}
	res, err := pipeline.IndexFile(c, t.cfg, t.log)
	if err != nil {
		return toolError(err)
	}
	var sb strings.Builder
	renderOutline(&sb, res.Root, 0, req.GetInt("depth", 2))
	return mcp.NewToolResultText(sb.String()), nil
}

func renderOutline(sb *strings.Builder, n *doctree.Node, depth, maxDepth int) {
	fmt.Fprintf(sb, "%s%s  %s", strings.Repeat("  ", depth), n.Path, n.Title(doctree.LangEN))
	if n.VerseCount > 0 {
		fmt.Fprintf(sb, "  (verses %d-%d)", n.VerseStartIndex+1, n.VerseStartIndex+n.VerseCount)
	}
	sb.WriteString("\n")
	if depth >= maxDepth {
		return
	}
	for _, child := range n.Children() {
		renderOutline(sb, child, depth+1, maxDepth)
	}
}

func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}
