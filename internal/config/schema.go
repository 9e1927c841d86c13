package config

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema for the config file, pretty printed.
func Schema() ([]byte, error) {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            false,
		ExpandedStruct:            true,
	}

	schema := reflector.Reflect(&Config{})
	schema.Title = "tgbridge Configuration"
	schema.Description = "Configuration schema for the tgbridge gateway and tools"
	schema.Version = "1.0.0"

	data, err := schema.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	var buf json.RawMessage = data
	pretty, err := json.MarshalIndent(buf, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("format schema: %w", err)
	}
	return pretty, nil
}
