// Package schema gates codec-snapshot payloads with a fixed JSON
// Schema before they reach the strict decoder, so a malformed
// transport payload is reported with a field-addressable error
// rather than an opaque unmarshal failure.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// orgStateSchema describes the OrgState wire shape: required fields,
// enum values for scale_stage and dependency_type, and integer types
// for every scaled field. It intentionally mirrors, but does not
// replace, the strict deny-unknown-fields struct decode.
const orgStateSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["roles", "dependencies", "constraint_vector", "constants", "scale_stage", "structural_debt", "event_history"],
  "additionalProperties": false,
  "properties": {
    "roles": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["id", "name", "purpose", "responsibilities", "required_inputs", "produced_outputs", "scale_stage", "active"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "purpose": {"type": "string"},
          "responsibilities": {"type": "array", "items": {"type": "string"}},
          "required_inputs": {"type": "array", "items": {"type": "string"}},
          "produced_outputs": {"type": "array", "items": {"type": "string"}},
          "scale_stage": {"type": "string", "enum": ["seed", "growth", "structured", "mature"]},
          "active": {"type": "boolean"}
        }
      }
    },
    "dependencies": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["from_role_id", "to_role_id", "dependency_type", "critical"],
        "additionalProperties": false,
        "properties": {
          "from_role_id": {"type": "string"},
          "to_role_id": {"type": "string"},
          "dependency_type": {"type": "string", "enum": ["operational", "informational", "governance"]},
          "critical": {"type": "boolean"}
        }
      }
    },
    "constraint_vector": {
      "type": "object",
      "required": ["capital", "talent", "time", "political_cost"],
      "additionalProperties": false,
      "properties": {
        "capital": {"type": "integer"},
        "talent": {"type": "integer"},
        "time": {"type": "integer"},
        "political_cost": {"type": "integer"}
      }
    },
    "constants": {
      "type": "object",
      "required": [
        "differentiation_threshold",
        "differentiation_min_capacity",
        "compression_max_combined_responsibilities",
        "shock_deactivation_threshold",
        "shock_debt_base_multiplier",
        "suppressed_differentiation_debt_increment"
      ],
      "additionalProperties": false,
      "properties": {
        "differentiation_threshold": {"type": "integer"},
        "differentiation_min_capacity": {"type": "integer"},
        "compression_max_combined_responsibilities": {"type": "integer"},
        "shock_deactivation_threshold": {"type": "integer"},
        "shock_debt_base_multiplier": {"type": "integer"},
        "suppressed_differentiation_debt_increment": {"type": "integer"}
      }
    },
    "scale_stage": {"type": "string"},
    "structural_debt": {"type": "integer"},
    "event_history": {"type": "array", "items": {"type": "object"}}
  }
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func compiler() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("schema://org_state.json", strings.NewReader(orgStateSchema)); err != nil {
			compileErr = fmt.Errorf("schema: add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile("schema://org_state.json")
	})
	return compiled, compileErr
}

// ValidateOrgState checks raw JSON bytes against the fixed OrgState
// schema, returning a descriptive error naming the offending field
// on failure.
func ValidateOrgState(data []byte) error {
	s, err := compiler()
	if err != nil {
		return err
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("schema: invalid JSON: %w", err)
	}

	if err := s.Validate(v); err != nil {
		return fmt.Errorf("schema: validation failed: %w", err)
	}
	return nil
}
