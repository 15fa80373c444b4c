// Package definition loads instruments declared in YAML or JSON files.
// Dynamic fields are declared with a `visibleWhen` rule; computed measures
// are limited to the record projections (`flatten`, `table`) and field
// joins that Go-defined instruments use.
package definition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-labforms/pkg/instrument"
)

// LoadFS walks fsys and parses every *.yaml, *.yml and *.json file into an
// instrument. Files are visited in lexical order; duplicate ids are an
// error. A nil fsys yields no instruments.
func LoadFS(fsys fs.FS) ([]*instrument.Instrument, error) {
	if fsys == nil {
		return nil, nil
	}

	var (
		out  []*instrument.Instrument
		seen = map[string]string{}
	)
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("definition: read %s: %w", path, err)
		}
		inst, err := Parse(data, path)
		if err != nil {
			return err
		}
		if prev, exists := seen[inst.ID]; exists {
			return fmt.Errorf("definition: duplicate instrument %q (files %s and %s)", inst.ID, prev, path)
		}
		seen[inst.ID] = path
		out = append(out, inst)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Parse decodes one definition. source selects the decoder by extension
// (".json" decodes as JSON, anything else as YAML) and labels errors.
func Parse(data []byte, source string) (*instrument.Instrument, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("definition: file %s is empty", source)
	}

	var doc documentFile
	if strings.EqualFold(filepath.Ext(source), ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("definition: parse %s: %w", source, err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("definition: parse %s: %w", source, err)
		}
	}

	inst, err := build(doc, source)
	if err != nil {
		return nil, err
	}
	return inst, nil
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
