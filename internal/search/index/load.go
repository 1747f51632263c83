package index

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema/records.schema.json
var recordsSchema []byte

var recordsSchemaLoader = gojsonschema.NewBytesLoader(recordsSchema)

// LoadSnapshot reads a snapshot file. JSON and YAML (.yaml/.yml) are
// accepted; the document is either a bare list of records or an object with
// "manifest" and "stocks".
func LoadSnapshot(path string) (*Snapshot, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read snapshot %s: %w", path, err)
	}

	if isYAML(path) {
		b, err = yamlToJSON(b)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid YAML in %s: %v", ErrInvalidSnapshot, path, err)
		}
	}

	snap, err := DecodeSnapshot(b)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return snap, nil
}

// DecodeSnapshot decodes a JSON snapshot document.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		records, err := DecodeRecords(trimmed)
		if err != nil {
			return nil, err
		}
		return &Snapshot{Manifest: Manifest{SnapshotVersion: 1}, Stocks: records}, nil
	}

	var env struct {
		Manifest Manifest        `json:"manifest"`
		Stocks   json.RawMessage `json:"stocks"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if len(env.Stocks) == 0 {
		return nil, fmt.Errorf("%w: missing \"stocks\"", ErrInvalidSnapshot)
	}
	records, err := DecodeRecords(env.Stocks)
	if err != nil {
		return nil, err
	}
	if env.Manifest.SnapshotVersion == 0 {
		env.Manifest.SnapshotVersion = 1
	}
	return &Snapshot{Manifest: env.Manifest, Stocks: records}, nil
}

// DecodeRecords validates data against the stock record schema and decodes
// it. Structural violations wrap ErrInvalidSnapshot.
func DecodeRecords(data []byte) ([]StockRecord, error) {
	res, err := gojsonschema.Validate(recordsSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidSnapshot, strings.Join(msgs, "; "))
	}

	var out []StockRecord
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if out == nil {
		out = []StockRecord{}
	}
	return out, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func yamlToJSON(b []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
