package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ManifestFileName is the conventional name next to the model file.
const ManifestFileName = "manifest.json"

// File roles.
const (
	RoleModel    = "model"
	RoleEncoders = "encoders"
)

// Manifest describes a trained classifier and its label encoders.
type Manifest struct {
	Version        string            `json:"version"`
	LastUpdated    string            `json:"lastUpdated"`
	Format         string            `json:"format"`
	FeatureColumns []string          `json:"featureColumns"`
	ClassLabels    map[string]string `json:"classLabels,omitempty"`
	Files          []File            `json:"files"`
}

// File is one artifact with its checksum.
type File struct {
	Role   string `json:"role"`
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return &m, nil
}

// Save writes the manifest as indented JSON.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Touch stamps LastUpdated.
func (m *Manifest) Touch(now time.Time) {
	m.LastUpdated = now.UTC().Format(time.RFC3339)
}

// CheckColumns verifies the manifest lists exactly the expected columns, in order.
func (m *Manifest) CheckColumns(expected []string) error {
	if len(m.FeatureColumns) != len(expected) {
		return fmt.Errorf("manifest lists %d feature columns, expected %d", len(m.FeatureColumns), len(expected))
	}
	for i, col := range expected {
		if m.FeatureColumns[i] != col {
			return fmt.Errorf("manifest column %d is %q, expected %q", i, m.FeatureColumns[i], col)
		}
	}
	return nil
}

// FileByRole returns the first file entry with the given role.
func (m *Manifest) FileByRole(role string) (File, bool) {
	for _, f := range m.Files {
		if f.Role == role {
			return f, true
		}
	}
	return File{}, false
}

// Describe hashes a file on disk.
func Describe(role, path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return File{}, err
	}
	return File{Role: role, Path: path, SHA256: hex.EncodeToString(h.Sum(nil)), Size: n}, nil
}

// Verify re-hashes every listed file and reports the first mismatch.
func (m *Manifest) Verify() error {
	for _, want := range m.Files {
		got, err := Describe(want.Role, want.Path)
		if err != nil {
			return fmt.Errorf("%s: %w", want.Role, err)
		}
		if got.SHA256 != want.SHA256 {
			return fmt.Errorf("%s checksum mismatch for %s", want.Role, want.Path)
		}
	}
	return nil
}
