package security

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// permissionsSchema validates the permissions config file: a map of
// tool name to an array of permission names from the closed set.
const permissionsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": {
    "type": "array",
    "items": {
      "type": "string",
      "enum": ["read", "write", "execute", "network", "system", "admin"]
    }
  }
}`

// limitsSchema validates the resource limits config file: a map of
// tool name to a limits object
const limitsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "additionalProperties": false,
    "properties": {
      "max_memory_mb": { "type": "number", "minimum": 0 },
      "max_cpu_percent": { "type": "number", "minimum": 0, "maximum": 100 },
      "max_execution_time_sec": { "type": "number", "minimum": 0 },
      "max_file_size_mb": { "type": "number", "minimum": 0 },
      "max_network_requests": { "type": "number", "minimum": 0 },
      "allowed_domains": {
        "type": "array",
        "items": { "type": "string", "minLength": 1 }
      },
      "allowed_paths": {
        "type": "array",
        "items": { "type": "string", "minLength": 1 }
      }
    }
  }
}`

// validateDocument checks a JSON document against a schema and returns
// a single error listing every violation
func validateDocument(schema string, document []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if result.Valid() {
		return nil
	}

	var problems []string
	for _, desc := range result.Errors() {
		problems = append(problems, desc.String())
	}

	return fmt.Errorf("schema violations: %s", strings.Join(problems, "; "))
}
