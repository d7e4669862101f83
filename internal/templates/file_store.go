package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var templateExts = []string{".yaml", ".yml", ".json"}

// FileStore reads templates from <dir>/<id>.yaml|.yml|.json and writes JSON.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Get(_ context.Context, id string) (DeviceTemplate, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return DeviceTemplate{}, fmt.Errorf("%w: invalid id %q", ErrTemplateNotFound, id)
	}
	for _, ext := range templateExts {
		path := filepath.Join(s.dir, id+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return DeviceTemplate{}, err
		}
		return parseFile(id, data)
	}
	return DeviceTemplate{}, fmt.Errorf("%w: %s in %s", ErrTemplateNotFound, id, s.dir)
}

// parseFile decodes YAML (a superset of JSON) into plain values first so
// both formats share the JSON field decoding.
func parseFile(id string, data []byte) (DeviceTemplate, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return DeviceTemplate{}, fmt.Errorf("template %q: %w", id, err)
	}
	return decodeTemplate(id, doc)
}

func (s *FileStore) Put(_ context.Context, t DeviceTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, t.ID+".json"), data, 0o644)
}

func (s *FileStore) List(ctx context.Context) ([]DeviceTemplate, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []DeviceTemplate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		id := strings.TrimSuffix(e.Name(), ext)
		if !isTemplateExt(ext) || seen[id] {
			continue
		}
		seen[id] = true
		t, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func isTemplateExt(ext string) bool {
	for _, e := range templateExts {
		if e == ext {
			return true
		}
	}
	return false
}
