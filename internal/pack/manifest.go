package pack

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ManifestVersion is the current manifest format version.
const ManifestVersion = 1

// Manifest describes a packed file. It is returned by Pack and, when
// requested, stored next to the output as <output>.json.
type Manifest struct {
	Version          int       `json:"version"`
	Source           string    `json:"source"`
	Codec            string    `json:"codec"` // input codec extension, "" for plain
	Preset           int       `json:"preset"`
	BlockSize        int64     `json:"block_size,omitempty"`
	Threads          int       `json:"threads"`
	Check            string    `json:"check"`
	Streams          int       `json:"streams"`
	Blocks           int       `json:"blocks"`
	UncompressedSize int64     `json:"uncompressed_size"`
	CompressedSize   int64     `json:"compressed_size"`
	Checksum         string    `json:"checksum"` // xxh64 of the uncompressed content
	BuiltAt          time.Time `json:"built_at"`
}

// Ratio returns compressed size over uncompressed size.
func (m *Manifest) Ratio() float64 {
	return ratio(m.UncompressedSize, m.CompressedSize)
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// ReadManifest reads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	return &m, nil
}
