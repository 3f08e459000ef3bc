// ABOUTME: Decoding of vendor profile documents in JSON or YAML form.
// ABOUTME: Accepts a single profile, a map keyed by vendor id, or a list of vendor records.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a profile document
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file or object name extension
func FormatFromPath(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	default:
		return "", false
	}
}

// DecodeProfile decodes one vendor profile document
func DecodeProfile(data []byte, format Format) (VendorProfile, error) {
	var profile VendorProfile
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &profile); err != nil {
			return VendorProfile{}, fmt.Errorf("failed to parse profile JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return VendorProfile{}, fmt.Errorf("failed to parse profile YAML: %w", err)
		}
	default:
		return VendorProfile{}, fmt.Errorf("unsupported profile format: %q", format)
	}
	return profile, nil
}

// DecodeProfileSet decodes a document holding many vendors. Both a mapping of
// vendor id to profile and a list of {vendor_id, profile} records are accepted.
// Map form is returned sorted by vendor id.
func DecodeProfileSet(data []byte, format Format) ([]VendorRecord, error) {
	var (
		records []VendorRecord
		byID    map[string]VendorProfile
		isList  bool
	)

	switch format {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) == 0 {
			return nil, fmt.Errorf("profile document is empty")
		}
		isList = trimmed[0] == '['
		var err error
		if isList {
			err = json.Unmarshal(trimmed, &records)
		} else {
			err = json.Unmarshal(trimmed, &byID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse profile JSON: %w", err)
		}
	case FormatYAML:
		var document yaml.Node
		if err := yaml.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("failed to parse profile YAML: %w", err)
		}
		if len(document.Content) == 0 {
			return nil, fmt.Errorf("profile document is empty")
		}
		root := document.Content[0]
		var err error
		switch root.Kind {
		case yaml.SequenceNode:
			isList = true
			err = root.Decode(&records)
		case yaml.MappingNode:
			err = root.Decode(&byID)
		default:
			return nil, fmt.Errorf("profile document must be a mapping or a list")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse profile YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported profile format: %q", format)
	}

	if !isList {
		records = make([]VendorRecord, 0, len(byID))
		for vendorID, profile := range byID {
			records = append(records, VendorRecord{VendorID: vendorID, Profile: profile})
		}
		sort.Slice(records, func(i, j int) bool {
			return records[i].VendorID < records[j].VendorID
		})
	}

	seen := make(map[string]bool, len(records))
	for i, record := range records {
		id := strings.TrimSpace(record.VendorID)
		if id == "" {
			return nil, fmt.Errorf("record %d has no vendor_id", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("vendor %q appears more than once", id)
		}
		seen[id] = true
		records[i].VendorID = id
	}

	return records, nil
}
