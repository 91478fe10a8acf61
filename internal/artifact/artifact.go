// Package artifact reads the pre-fitted model and preprocessor documents
// from disk, validating each against its embedded JSON Schema.
package artifact

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrLoad marks any failure to read, validate or decode an artifact.
var ErrLoad = errors.New("artifact load failed")

// Schema names.
const (
	Preprocessor = "preprocessor"
	Model        = "model"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var schemaCache sync.Map // map[string]*jsonschema.Schema

// Decode reads the document at path, validates it against the named schema
// and unmarshals it into v.
func Decode(path, schema string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrLoad, path, err)
	}
	return DecodeBytes(raw, schema, v)
}

// DecodeBytes is Decode for an in-memory document.
func DecodeBytes(raw []byte, schema string, v any) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrLoad, err)
	}

	compiled, err := compiledSchema(schema)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoad, err)
	}
	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s schema validation: %v", ErrLoad, schema, err)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrLoad, schema, err)
	}
	return nil
}

func compiledSchema(name string) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	def, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(def))
	if err != nil {
		return nil, fmt.Errorf("parse schema %q: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(url, parsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(name, compiled)
	return compiled, nil
}
