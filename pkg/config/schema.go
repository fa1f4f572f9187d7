package config

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaVersion is the version stamped on the generated JSON schema.
const SchemaVersion = "1.0.0"

// GenerateSchema returns the JSON schema of Config, indented for editors.
//
// Property names follow the mapstructure tags, i.e. the keys accepted in the
// YAML file.
func GenerateSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true, // Inline all definitions for simplicity
		FieldNameTag:              "mapstructure",
	}

	schema := reflector.Reflect(&Config{})
	schema.Title = "DittoFM Configuration"
	schema.Description = "Configuration schema for the DittoFM file manager"
	schema.Version = SchemaVersion

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
