package builder

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dgallion1/corpusgest/internal/doctree"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/corpus.schema.json
var schemaFS embed.FS

const schemaURL = "corpus.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func corpusSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		f, err := schemaFS.Open("schema/" + schemaURL)
		if err != nil {
			schemaErr = fmt.Errorf("open schema: %w", err)
			return
		}
		defer f.Close()
		doc, err := jsonschema.UnmarshalJSON(f)
		if err != nil {
			schemaErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
	})
	return schema, schemaErr
}

// JSONBuilder reads a raw tree already in doctree's JSON shape. The input is
// checked against the embedded corpus schema before it is decoded.
type JSONBuilder struct{}

func (b *JSONBuilder) Build(r io.Reader, name string) (*doctree.Node, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	sch, err := corpusSchema()
	if err != nil {
		return nil, err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return nil, fmt.Errorf("validate %s: %s", name, schemaMessages(verr))
		}
		return nil, fmt.Errorf("validate %s: %w", name, err)
	}

	var root doctree.Node
	if err := json.Unmarshal(src, &root); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if len(root.Titles) == 0 {
		root.Titles = titlesFor(baseTitle(name))
	}
	return &root, nil
}

// schemaMessages flattens the leaf causes of a validation error.
func schemaMessages(verr *jsonschema.ValidationError) string {
	var msgs []string
	var collect func(*jsonschema.ValidationError)
	collect = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			msgs = append(msgs, "/"+strings.Join(e.InstanceLocation, "/")+": "+e.Error())
			return
		}
		for _, c := range e.Causes {
			collect(c)
		}
	}
	collect(verr)
	return strings.Join(msgs, "; ")
}
