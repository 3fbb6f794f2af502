package indexer

import (
	"errors"
	"fmt"

	"github.com/dgallion1/corpusgest/internal/doctree"
)

// Contract violations. These abort indexing of the current tree.
var (
	ErrNilNode        = errors.New("nil node")
	ErrUnknownKind    = errors.New("unknown node kind")
	ErrMissingContent = errors.New("node has no content variant")
	ErrCycle          = errors.New("node reached twice")
)

// NodeError locates a contract violation in the tree.
type NodeError struct {
	Path string
	Kind doctree.Kind
	Err  error
}

func (e *NodeError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("index %s (%s): %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("index %s: %v", e.Path, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
