package remediation

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// ErrUnknownKind is returned by Lookup for a kind not in the catalog.
var ErrUnknownKind = errors.New("no remediation for finding kind")

// Entry is the static advice attached to one finding kind.
type Entry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Risk        string `yaml:"risk"`
	Standard    string `yaml:"standard"`
	Remediation string `yaml:"remediation"`
}

// Catalog maps finding kinds to remediation advice.
type Catalog struct {
	entries map[string]Entry
}

// Default returns the catalog shipped with the binary.
func Default() *Catalog {
	c, err := Parse(builtinCatalog)
	if err != nil {
		// The embedded file is covered by tests.
		panic(fmt.Sprintf("parse builtin remediation catalog: %v", err))
	}
	return c
}

// Parse reads a YAML list of entries.
func Parse(data []byte) (*Catalog, error) {
	c := &Catalog{entries: make(map[string]Entry)}
	if err := c.merge(data); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) merge(data []byte) error {
	var entries []Entry
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil {
		return fmt.Errorf("decode remediation entries as YAML: %w", err)
	}
	for i, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("remediation entry %d has no id", i)
		}
		if e.Remediation == "" {
			return fmt.Errorf("remediation entry %s has no remediation text", e.ID)
		}
		c.entries[e.ID] = e
	}
	return nil
}

// LoadDir overlays every .yaml/.yml file in dir on top of the catalog, in
// lexical order. Later files win for the same id.
func (c *Catalog) LoadDir(fs afero.Fs, dir string) error {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return fmt.Errorf("read remediation directory: %w", err)
	}
	var names []string
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		if ext := filepath.Ext(info.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := afero.ReadFile(fs, filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := c.merge(data); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// Lookup returns the entry for kind.
func (c *Catalog) Lookup(kind string) (Entry, error) {
	e, ok := c.entries[kind]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return e, nil
}

// Text returns the remediation advice for kind, or "" when the kind is
// unknown. The scanner rejects findings without remediation, so a missing
// entry surfaces as a failed probe rather than an empty report field.
func (c *Catalog) Text(kind string) string {
	return c.entries[kind].Remediation
}

// Kinds lists the known kinds, sorted.
func (c *Catalog) Kinds() []string {
	kinds := make([]string, 0, len(c.entries))
	for k := range c.entries {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
