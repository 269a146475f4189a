package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemaOnce sync.Once
	schemaErr  error
	schemas    map[Phase]*jsonschema.Schema
)

func loadSchemas() {
	files := map[Phase]string{
		PhaseOpen:  "schemas/open_proof.schema.json",
		PhaseClose: "schemas/close_proof.schema.json",
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true
	out := make(map[Phase]*jsonschema.Schema, len(files))
	for phase, name := range files {
		raw, err := schemaFS.ReadFile(name)
		if err != nil {
			schemaErr = fmt.Errorf("read %s: %w", name, err)
			return
		}
		url := "https://bitvault.local/" + name
		if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
			schemaErr = fmt.Errorf("load %s: %w", name, err)
			return
		}
		compiled, err := c.Compile(url)
		if err != nil {
			schemaErr = fmt.Errorf("compile %s: %w", name, err)
			return
		}
		out[phase] = compiled
	}
	schemas = out
}

// ValidateProof checks payload against the schema of the given phase.
func ValidateProof(phase Phase, payload any) error {
	schemaOnce.Do(loadSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	schema, ok := schemas[phase]
	if !ok {
		return fmt.Errorf("no schema for phase %q", phase)
	}
	canonical, err := CanonicalJSON(payload)
	if err != nil {
		return err
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(canonical))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%s proof invalid: %w", phase, err)
	}
	return nil
}
