package schema

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"
)

//go:embed jsonschemas/*.json
var builtinDocuments embed.FS

var (
	documentsMu sync.RWMutex
	documents   = map[string]*jsonschema.Schema{}
)

func init() {
	entries, err := builtinDocuments.ReadDir("jsonschemas")
	if err != nil {
		panic(err)
	}
	for _, entry := range entries {
		raw, err := builtinDocuments.ReadFile("jsonschemas/" + entry.Name())
		if err != nil {
			panic(err)
		}
		if err := RegisterDocument(strings.TrimSuffix(entry.Name(), ".json"), raw); err != nil {
			panic(err)
		}
	}
}

// RegisterDocument compiles a JSON Schema document and makes it available to
// fields tagged with schema:"jsonschema=<name>".
func RegisterDocument(name string, raw []byte) error {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(raw, rs); err != nil {
		return fmt.Errorf("invalid json schema %s: %w", name, err)
	}

	documentsMu.Lock()
	defer documentsMu.Unlock()
	documents[name] = rs
	return nil
}

func lookupDocument(name string) (*jsonschema.Schema, bool) {
	documentsMu.RLock()
	defer documentsMu.RUnlock()
	rs, ok := documents[name]
	return rs, ok
}

// checkDocument validates raw JSON against the named document and returns one
// message per violation.
func checkDocument(ctx context.Context, name string, raw []byte) ([]string, error) {
	rs, ok := lookupDocument(name)
	if !ok {
		return nil, fmt.Errorf("json schema %s is not registered", name)
	}

	keyErrs, err := rs.ValidateBytes(ctx, raw)
	if err != nil {
		return []string{fmt.Sprintf("must be valid JSON: %v", err)}, nil
	}

	messages := make([]string, 0, len(keyErrs))
	for _, ke := range keyErrs {
		path := strings.TrimPrefix(ke.PropertyPath, "/")
		if path == "" {
			messages = append(messages, ke.Message)
			continue
		}
		messages = append(messages, fmt.Sprintf("%s: %s", path, ke.Message))
	}
	return messages, nil
}
