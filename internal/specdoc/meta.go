package specdoc

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/tidwall/jsonc"
)

// Meta is the structured block trailing a spec document.
type Meta struct {
	Files      []string          `json:"files,omitempty"`
	FileHashes map[string]string `json:"file_hashes,omitempty"`
}

// metaSchema is the contract for the meta block: files is a list of
// strings and file_hashes maps strings to strings.
var metaSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"files": {
			Type:  "array",
			Items: &jsonschema.Schema{Type: "string"},
		},
		"file_hashes": {
			Type:                 "object",
			AdditionalProperties: &jsonschema.Schema{Type: "string"},
		},
	},
}

var (
	resolveOnce    sync.Once
	resolvedSchema *jsonschema.Resolved
	resolveErr     error
)

func schema() (*jsonschema.Resolved, error) {
	resolveOnce.Do(func() {
		resolvedSchema, resolveErr = metaSchema.Resolve(nil)
	})
	return resolvedSchema, resolveErr
}

// ParseMeta decodes and validates a meta block body. Comments and
// trailing commas are tolerated.
func ParseMeta(raw []byte) (*Meta, error) {
	clean := jsonc.ToJSON(raw)

	var instance any
	if err := json.Unmarshal(clean, &instance); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}

	rs, err := schema()
	if err != nil {
		return nil, fmt.Errorf("resolving meta schema: %w", err)
	}
	if err := rs.Validate(instance); err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	var meta Meta
	if err := json.Unmarshal(clean, &meta); err != nil {
		return nil, fmt.Errorf("decoding meta: %w", err)
	}
	return &meta, nil
}

// HashFile returns the hex SHA-256 fingerprint used in file_hashes.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// StaleFiles lists the fingerprinted files whose current content no
// longer matches file_hashes, including files that disappeared.
func (m *Meta) StaleFiles(projectRoot string) []string {
	if m == nil {
		return nil
	}
	var stale []string
	for rel, want := range m.FileHashes {
		got, err := HashFile(filepath.Join(projectRoot, rel))
		if err != nil || got != want {
			stale = append(stale, rel)
		}
	}
	sort.Strings(stale)
	return stale
}
