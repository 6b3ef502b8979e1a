package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// FragmentExt is the extension of schema fragment files.
const FragmentExt = ".yaml"

// ErrNoFragments is returned when the fragment directory holds no fragments.
var ErrNoFragments = errors.New("schema: no fragments found")

// Fragments returns the fragment paths in dir, sorted by filename.
func Fragments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading schema directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), FragmentExt) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	slices.Sort(paths)
	return paths, nil
}

// Load reads every fragment in dir and merges them in filename order.
// A directory without fragments, or any fragment that fails to parse, is
// an error.
func Load(dir string) (map[string]any, error) {
	paths, err := Fragments(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFragments, dir)
	}

	var tree map[string]any
	for i, path := range paths {
		fragment, err := parseFragment(path)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			tree = fragment
			continue
		}
		tree = Merge(tree, fragment)
	}
	return tree, nil
}

func parseFragment(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fragment %s: %w", filepath.Base(path), err)
	}

	fragment := make(map[string]any)
	if err := yaml.Unmarshal(data, &fragment); err != nil {
		return nil, fmt.Errorf("parsing fragment %s: %w", filepath.Base(path), err)
	}
	if fragment == nil {
		// an explicit null document
		fragment = make(map[string]any)
	}
	return normalize(fragment).(map[string]any), nil
}

// normalize rewrites every nested map to map[string]any. yaml.v3 decodes
// mappings with non-string keys (enum values such as `0: off`) as
// map[any]any, which neither Merge nor encoding/json accept.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = normalize(child)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[fmt.Sprint(k)] = normalize(child)
		}
		return out
	case []any:
		for i, child := range t {
			t[i] = normalize(child)
		}
		return t
	default:
		return v
	}
}
