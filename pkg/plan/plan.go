// SPDX-License-Identifier: Apache-2.0

// Package plan reads and validates declarative migration plans: which
// table to migrate, the column renames to apply, the DDL to run against
// the shadow, and per-run copy overrides. Plans are YAML or JSON and are
// validated against an embedded JSON schema before use.
package plan

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
	sigyaml "sigs.k8s.io/yaml"
)

// Rename declares one column rename from the source to the shadow.
type Rename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Plan describes one online migration.
type Plan struct {
	// Name identifies the plan; a random one is assigned when absent.
	Name string `json:"name,omitempty"`

	// Table is the source table to migrate.
	Table string `json:"table"`

	// PrimaryKey is the monotonically comparable pk column; "id" when
	// omitted.
	PrimaryKey string `json:"primaryKey,omitempty"`

	// Renames are applied to the shadow in order.
	Renames []Rename `json:"renames,omitempty"`

	// Statements is DDL executed verbatim against the shadow after it is
	// scaffolded, before the copy starts.
	Statements []string `json:"statements,omitempty"`

	// ChunkSize overrides the configured rows-per-chunk.
	ChunkSize int `json:"chunkSize,omitempty"`

	// Throttle overrides the configured between-chunk sleep, as a Go
	// duration string.
	Throttle string `json:"throttle,omitempty"`
}

// ThrottleDuration parses the throttle override; zero when unset.
func (p *Plan) ThrottleDuration() (time.Duration, error) {
	if p.Throttle == "" {
		return 0, nil
	}
	return time.ParseDuration(p.Throttle)
}

// ReadPlan reads a YAML or JSON plan, validates it against the plan
// schema, and returns it.
func ReadPlan(r io.Reader) (*Plan, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	jsonRaw, err := sigyaml.YAMLToJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}

	if err := validate(jsonRaw); err != nil {
		return nil, err
	}

	p := &Plan{}
	if err := json.Unmarshal(jsonRaw, p); err != nil {
		return nil, err
	}

	if p.Name == "" {
		p.Name = "plan_" + uuid.NewString()
	}
	if p.PrimaryKey == "" {
		p.PrimaryKey = "id"
	}
	return p, nil
}

func validate(jsonRaw []byte) error {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(planSchema))
	if err != nil {
		return err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("plan.json", doc); err != nil {
		return err
	}
	compiled, err := compiler.Compile("plan.json")
	if err != nil {
		return err
	}

	instance, err := jsonschema.UnmarshalJSON(strings.NewReader(string(jsonRaw)))
	if err != nil {
		return err
	}

	if err := compiled.Validate(instance); err != nil {
		return fmt.Errorf("invalid migration plan: %w", err)
	}
	return nil
}

const planSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["table"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string"},
    "table": {"type": "string", "minLength": 1},
    "primaryKey": {"type": "string"},
    "renames": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["from", "to"],
        "additionalProperties": false,
        "properties": {
          "from": {"type": "string", "minLength": 1},
          "to": {"type": "string", "minLength": 1}
        }
      }
    },
    "statements": {
      "type": "array",
      "items": {"type": "string", "minLength": 1}
    },
    "chunkSize": {"type": "integer", "minimum": 1},
    "throttle": {"type": "string"}
  }
}`
