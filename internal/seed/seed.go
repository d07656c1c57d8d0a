// Package seed loads fixture documents from YAML. The built-in fixtures are
// embedded and mirror the storefront's demo catalog.
package seed

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/internal/store"
	"github.com/sumandas0/farmstore/pkg/utils"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var fixturesFS embed.FS

type fixtureFile struct {
	Collection string                   `yaml:"collection"`
	Documents  []map[string]interface{} `yaml:"documents"`
}

// Set is a collection name to documents mapping, documents in file order.
type Set map[string][]*models.Document

func (s Set) Collections() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Set) Count() int {
	n := 0
	for _, docs := range s {
		n += len(docs)
	}
	return n
}

// Default returns the embedded fixtures.
func Default() (Set, error) {
	return LoadFS(fixturesFS, "data")
}

// LoadFS reads every .yaml file under dir in name order.
func LoadFS(fsys fs.FS, dir string) (Set, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture dir: %w", err)
	}

	set := make(Set)
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}
		f, err := fsys.Open(path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to open fixture %s: %w", entry.Name(), err)
		}
		err = set.read(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("fixture %s: %w", entry.Name(), err)
		}
	}
	return set, nil
}

// LoadFile reads a single fixture file from disk.
func LoadFile(filename string) (Set, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	defer f.Close()

	set := make(Set)
	if err := set.read(f); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", filename, err)
	}
	return set, nil
}

func (s Set) read(r io.Reader) error {
	var file fixtureFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return fmt.Errorf("failed to decode yaml: %w", err)
	}
	if _, ok := models.LookupCollection(file.Collection); !ok {
		return fmt.Errorf("unknown collection %q", file.Collection)
	}
	for _, fields := range file.Documents {
		s[file.Collection] = append(s[file.Collection], models.NewDocument(file.Collection, fields))
	}
	return nil
}

// Apply writes the set into st inside one transaction. Documents whose id
// already exists are skipped when skipExisting is set; otherwise the first
// duplicate aborts the whole set.
func Apply(ctx context.Context, st store.DocumentStore, set Set, skipExisting bool) (int, error) {
	tx, err := st.BeginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	written := 0
	for _, name := range set.Collections() {
		for _, doc := range set[name] {
			if skipExisting {
				if _, err := st.GetDocument(ctx, name, doc.ID); err == nil {
					continue
				} else if !utils.IsNotFound(err) {
					return 0, err
				}
			}
			if err := tx.CreateDocument(ctx, doc.Clone()); err != nil {
				return 0, err
			}
			written++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return written, nil
}
