// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package scenario

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the scenario JSON Schema.
const SchemaID = "https://holomush.dev/schemas/hooks-scenario.schema.json"

// compiledSchema compiles the generated schema once per process.
var compiledSchema = sync.OnceValues(compileSchema)

// GenerateSchema generates a JSON Schema from the Scenario struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Scenario{})

	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Hooks Scenario"
	schema.Description = "Schema for hook dispatch scenario files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.In("scenario").Hint("failed to marshal schema").Wrap(err)
	}
	return data, nil
}

// ValidateSchema validates YAML data against the scenario JSON Schema.
func ValidateSchema(data []byte) error {
	if len(data) == 0 {
		return oops.In("scenario").Errorf("scenario data is empty")
	}

	var yamlData any
	if err := yaml.Unmarshal(data, &yamlData); err != nil {
		return oops.In("scenario").Hint("invalid YAML").Wrap(err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	if err := sch.Validate(toJSONTypes(yamlData)); err != nil {
		return oops.In("scenario").Hint("schema validation failed").Wrap(err)
	}
	return nil
}

func compileSchema() (*jschema.Schema, error) {
	schemaBytes, err := GenerateSchema()
	if err != nil {
		return nil, err
	}

	var schemaData any
	if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
		return nil, oops.In("scenario").Hint("failed to parse schema JSON").Wrap(err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("scenario.schema.json", schemaData); err != nil {
		return nil, oops.In("scenario").Hint("failed to add schema resource").Wrap(err)
	}

	sch, err := c.Compile("scenario.schema.json")
	if err != nil {
		return nil, oops.In("scenario").Hint("failed to compile schema").Wrap(err)
	}
	return sch, nil
}

// toJSONTypes converts YAML-decoded values into the shapes the validator
// accepts. Scalars yaml.v3 can produce outside JSON (timestamps, binary)
// round-trip through encoding/json.
func toJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, item := range val {
			result[k] = toJSONTypes(item)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = toJSONTypes(item)
		}
		return result
	case string, bool, int, int64, float64, nil:
		return val
	default:
		if b, err := json.Marshal(val); err == nil {
			var result any
			if err := json.Unmarshal(b, &result); err == nil {
				return result
			}
		}
		return val
	}
}

// FormatSchemaError strips wrapping prefixes from a validation error for display.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if idx := strings.Index(msg, "jsonschema validation failed"); idx >= 0 {
		return msg[idx:]
	}
	return msg
}
