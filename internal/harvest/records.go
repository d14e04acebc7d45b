// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/econ-harvester/pkg/types"
)

// ArtifactName is the file written when the output path is a directory.
const ArtifactName = "articles.json"

// WriteRecords serializes records as a JSON array with 2-space indentation
// and returns the path written. If path is an existing directory the array
// goes to ArtifactName inside it.
func WriteRecords(path string, records []types.Record) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ArtifactName)
	}
	if records == nil {
		records = []types.Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling records: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// ReadRecords loads a JSON array written by WriteRecords. A directory path
// resolves to ArtifactName inside it.
func ReadRecords(path string) ([]types.Record, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ArtifactName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	var records []types.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

// keywordFile is the mapping layout of a keyword file.
type keywordFile struct {
	Keywords []string `yaml:"keywords"`
}

// LoadKeywords reads a YAML keyword file. Both a mapping with a keywords
// list and a bare list are accepted:
//
//	keywords: [inflation, labor market]
//
//	- inflation
//	- labor market
//
// Blank entries are dropped.
func LoadKeywords(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keyword file: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parsing keyword file: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var raw []string
	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		err = root.Decode(&raw)
	case yaml.MappingNode:
		var kf keywordFile
		err = root.Decode(&kf)
		raw = kf.Keywords
	default:
		return nil, fmt.Errorf("keyword file %s: expected a list or a keywords mapping", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing keyword file: %w", err)
	}

	keywords := make([]string, 0, len(raw))
	for _, kw := range raw {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords, nil
}
