// Package appconfig stores per-application settings as section/option
// string values, one YAML file per application.
//
// The store backs the getconfigtree and setconfig commands and keeps the
// controller's generated UUID.
//
// Layout on disk:
//
//	<dir>/<app>.yaml
//	  <section>:
//	    <option>: <value>
package appconfig

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	fileExt         = ".yaml"
	dirPermissions  = 0750
	filePermissions = 0600
)

// ErrInvalidKey is returned when an app, section, or option name is empty
// or cannot be used as a file name.
var ErrInvalidKey = errors.New("invalid config key")

// Sections maps section name to option name to value.
type Sections map[string]map[string]string

// Tree maps application name to its sections.
type Tree map[string]Sections

// Store is a directory of application config files.
// It is not safe for concurrent use.
type Store struct {
	dir  string
	tree Tree
}

// Open reads every application file in dir. A missing directory yields an
// empty store; it is created on the first Set.
func Open(dir string) (*Store, error) {
	s := &Store{dir: dir, tree: make(Tree)}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != fileExt {
			continue
		}
		app := strings.TrimSuffix(entry.Name(), fileExt)
		data, err := os.ReadFile(filepath.Join(dir, entry.Name())) //nolint:gosec // dir is operator config
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		sections := make(Sections)
		if err := yaml.Unmarshal(data, &sections); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}
		if sections == nil {
			sections = make(Sections)
		}
		s.tree[app] = sections
	}
	return s, nil
}

// Get returns one option value.
func (s *Store) Get(app, section, option string) (string, bool) {
	v, ok := s.tree[app][section][option]
	return v, ok
}

// Set assigns an option and rewrites the application's file. The in-memory
// value is only changed when the write succeeds.
func (s *Store) Set(app, section, option, value string) error {
	if err := validKey(app); err != nil {
		return err
	}
	if section == "" || option == "" {
		return fmt.Errorf("%w: section and option are required", ErrInvalidKey)
	}

	sections := cloneSections(s.tree[app])
	if sections[section] == nil {
		sections[section] = make(map[string]string)
	}
	sections[section][option] = value

	if err := s.write(app, sections); err != nil {
		return err
	}
	s.tree[app] = sections
	return nil
}

// Tree returns a deep copy of every application's settings.
func (s *Store) Tree() Tree {
	out := make(Tree, len(s.tree))
	for app, sections := range s.tree {
		out[app] = cloneSections(sections)
	}
	return out
}

func (s *Store) write(app string, sections Sections) error {
	data, err := yaml.Marshal(sections)
	if err != nil {
		return fmt.Errorf("marshalling %s config: %w", app, err)
	}
	if err := os.MkdirAll(s.dir, dirPermissions); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	path := filepath.Join(s.dir, app+fileExt)
	if err := os.WriteFile(path, data, filePermissions); err != nil {
		return fmt.Errorf("writing %s config: %w", app, err)
	}
	return nil
}

func validKey(app string) error {
	if app == "" || strings.ContainsAny(app, `/\`) || app == "." || app == ".." {
		return fmt.Errorf("%w: app %q", ErrInvalidKey, app)
	}
	return nil
}

func cloneSections(in Sections) Sections {
	out := make(Sections, len(in))
	for name, options := range in {
		out[name] = maps.Clone(options)
	}
	return out
}
