// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package plugin

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the canonical $id of the manifest schema, referenced from
// plugin.yaml files for editor completion.
const SchemaID = "https://flimey.dev/schemas/plugin.schema.json"

// GetSchemaID returns the schema $id for use in plugin.yaml files.
func GetSchemaID() string {
	return SchemaID
}

// GenerateSchema reflects the Manifest struct into a JSON Schema document.
// The result is what cmd/gen-schema writes and what ValidateSchema compiles.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect(&Manifest{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Flimey Plugin Manifest"
	schema.Description = "Schema for plugin.yaml manifest files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest schema: %w", err)
	}
	return data, nil
}

// compiled guards the one-time schema compilation. The manifest struct is
// fixed at build time, so the compiled schema never changes at runtime.
var compiled struct {
	mu     sync.Mutex
	schema *jschema.Schema
}

// ValidateSchema checks raw plugin.yaml bytes against the manifest schema.
// Structural errors surface here with JSON-pointer locations; semantic rules
// (semver format, default/data-type agreement) belong to Manifest.Validate.
func ValidateSchema(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("manifest data is empty")
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	sch, err := manifestSchema()
	if err != nil {
		return fmt.Errorf("compile manifest schema: %w", err)
	}
	if err := sch.Validate(jsonValue(doc)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func manifestSchema() (*jschema.Schema, error) {
	compiled.mu.Lock()
	defer compiled.mu.Unlock()
	if compiled.schema != nil {
		return compiled.schema, nil
	}

	raw, err := GenerateSchema()
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse generated schema: %w", err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("plugin.schema.json", doc); err != nil {
		return nil, err
	}
	sch, err := c.Compile("plugin.schema.json")
	if err != nil {
		return nil, err
	}
	compiled.schema = sch
	return sch, nil
}

// ResetSchemaCache clears the compiled schema. Used for testing.
func ResetSchemaCache() {
	compiled.mu.Lock()
	defer compiled.mu.Unlock()
	compiled.schema = nil
}

// jsonValue normalizes a yaml.v3 document into the value types the schema
// validator expects. yaml.v3 already decodes mappings as map[string]any;
// scalars that have no JSON counterpart go through a JSON round-trip.
func jsonValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = jsonValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = jsonValue(item)
		}
		return out
	case string, int, int64, float64, bool, nil:
		return val
	default:
		if b, err := json.Marshal(val); err == nil {
			var out any
			if err := json.Unmarshal(b, &out); err == nil {
				return out
			}
		}
		return val
	}
}

// FormatSchemaError strips the wrapping prefix from a validation error so
// only the validator's location and message reach the log line.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimPrefix(err.Error(), "schema validation failed: ")
}
