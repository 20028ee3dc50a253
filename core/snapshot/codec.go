package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a dump encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the dump encoding from a file name extension.
func FormatFor(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode writes the snapshot in the given format.
func Encode(w io.Writer, s *Snapshot, format Format) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to encode snapshot %s: %w", s.Name, err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to encode snapshot %s: %w", s.Name, err)
		}
		return nil
	}
}

// Decode reads a snapshot in the given format and normalizes it.
func Decode(r io.Reader, format Format) (*Snapshot, error) {
	var s Snapshot

	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to decode yaml snapshot: %w", err)
		}
	default:
		if err := json.NewDecoder(r).Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to decode json snapshot: %w", err)
		}
	}

	s.Normalize()
	return &s, nil
}

// SaveFile dumps the snapshot to path, choosing the format by extension.
func SaveFile(path string, s *Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dump %s: %w", path, err)
	}
	defer f.Close()

	if err := Encode(f, s, FormatFor(path)); err != nil {
		return err
	}
	return f.Close()
}

// LoadFile reads a dump. The snapshot is named after the path and marked
// read-only.
func LoadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump %s: %w", path, err)
	}
	defer f.Close()

	s, err := Decode(f, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("dump %s: %w", path, err)
	}
	s.Name = path
	s.ReadOnly = true
	return s, nil
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() (*Snapshot, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s, FormatJSON); err != nil {
		return nil, err
	}
	clone, err := Decode(&buf, FormatJSON)
	if err != nil {
		return nil, err
	}
	clone.ReadOnly = s.ReadOnly
	return clone, nil
}

// ContentType is the MIME type of a dump encoding.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}
