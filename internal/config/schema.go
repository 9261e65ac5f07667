package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
	schemareflector "github.com/swaggest/jsonschema-go"
)

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	bs, err := ReflectSchema()
	if err != nil {
		return nil, err
	}

	js, err := jsonschema.UnmarshalJSON(bytes.NewReader(bs))
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft2020)
	if err := compiler.AddResource("schema.json", js); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
})

// ReflectSchema produces the JSON schema of the configuration file format
// from the Go structs.
func ReflectSchema() ([]byte, error) {
	reflector := schemareflector.Reflector{}

	s, err := reflector.Reflect(Root{})
	if err != nil {
		return nil, err
	}

	return json.MarshalIndent(s, "", "  ")
}

// Validate checks a raw YAML configuration document against the schema.
func Validate(bs []byte) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	jsonBytes, err := yaml.YAMLToJSON(bs)
	if err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonBytes))
	if err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if doc == nil {
		return nil
	}

	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// An instruction value is a scalar or a fragment list in YAML. Booleans,
// numbers and null are legal scalars; unmarshalling renders them as strings.
func (Value) PrepareJSONSchema(schema *schemareflector.Schema) error {
	schema.Type = nil
	schema.AddType(schemareflector.String)
	schema.AddType(schemareflector.Array)
	schema.AddType(schemareflector.Boolean)
	schema.AddType(schemareflector.Number)
	schema.AddType(schemareflector.Null)
	return nil
}

// Duration values are strings like "30s".
func (Duration) PrepareJSONSchema(schema *schemareflector.Schema) error {
	schema.Type = nil
	schema.AddType(schemareflector.String)
	return nil
}
