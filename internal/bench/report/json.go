package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

func WriteJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

func WriteJSONFile(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func LoadManifest(runDir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(runDir, ManifestFile))
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// Persist writes the per-engine tables and the manifest of a finished run.
func Persist(runDir string, tables []*Table, m Manifest) error {
	for _, t := range tables {
		if err := WriteTableFile(t, TablePath(runDir, t.Engine)); err != nil {
			return err
		}
	}
	return WriteJSONFile(m, filepath.Join(runDir, ManifestFile))
}
