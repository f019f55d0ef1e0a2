// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// QueryFile is the on-disk list of search queries to run in one batch. The
// researcher maintains the file by hand and feeds it to the search command.
type QueryFile struct {
	Queries []QueryEntry `yaml:"queries"`
}

// QueryEntry is one query with optional free-form notes.
type QueryEntry struct {
	Text  string `yaml:"text"`
	Notes string `yaml:"notes,omitempty"`
}

// ReadQueryFile loads a query batch from a YAML file.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	for i, q := range qf.Queries {
		if q.Text == "" {
			return nil, fmt.Errorf("query %d has no text", i+1)
		}
	}
	return &qf, nil
}
