package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed subjects/*.yaml
var subjectsFS embed.FS

// Default builds the catalog from the bundled subject definitions.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(subjectsFS, "subjects")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// LoadDir builds the catalog from YAML files under dir.
func LoadDir(dir string) (*Catalog, error) {
	return Load(os.DirFS(dir))
}

// Load registers every subject YAML file in fsys and returns the built catalog.
// A slug defined twice fails with *DuplicateSubjectError.
func Load(fsys fs.FS) (*Catalog, error) {
	b := NewBuilder()
	if err := RegisterFS(b, fsys); err != nil {
		return nil, err
	}
	c := b.Build()
	slog.Info("subject catalog loaded", "subjects", c.Len())
	return c, nil
}

// RegisterFS registers every *.yaml / *.yml file in fsys with b.
func RegisterFS(b *Builder, fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := path.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		return registerFile(b, fsys, p)
	})
}

func registerFile(b *Builder, fsys fs.FS, p string) error {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return fmt.Errorf("read %s: %w", p, err)
	}

	var s Subject
	if err := yaml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parse %s: %w", p, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(path.Base(p), path.Ext(p))
	}
	if err := b.Register(s); err != nil {
		return fmt.Errorf("register %s: %w", p, err)
	}
	return nil
}
