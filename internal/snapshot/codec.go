package snapshot

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/phrazzld/scry-progress/internal/domain"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "schema://progress-snapshot.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// schema returns the compiled snapshot schema.
func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("parse snapshot schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add snapshot schema: %w", err)
			return
		}

		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}

// Encode serializes the tree. Nil collections are written as empty objects.
func Encode(s *State) ([]byte, error) {
	if s == nil {
		s = New()
	}
	out := *s
	out.Version = CurrentVersion
	out.normalize()

	data, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("%w: encode snapshot: %v", domain.ErrPersistence, err)
	}
	return data, nil
}

// Decode parses and validates a snapshot produced by Encode.
func Decode(data []byte) (*State, error) {
	sch, err := schema()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed snapshot: %v", domain.ErrPersistence, err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: invalid snapshot: %v", domain.ErrPersistence, err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %v", domain.ErrPersistence, err)
	}
	if s.Version > CurrentVersion {
		return nil, fmt.Errorf("%w: snapshot version %d is newer than supported version %d",
			domain.ErrPersistence, s.Version, CurrentVersion)
	}

	s.Version = CurrentVersion
	s.normalize()
	return &s, nil
}
