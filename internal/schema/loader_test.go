package schema

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFragments(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	return dir
}

func TestLoad_MergesInFilenameOrder(t *testing.T) {
	dir := writeFragments(t, map[string]string{
		"20-dimmer.yaml": `
devicetypes:
  dimmer:
    name: Dimmer
    commands: [setlevel]
units:
  percent: "%"
`,
		"10-base.yaml": `
devicetypes:
  switch:
    name: Switch
    commands: [on, off]
units:
  percent: percent
`,
		"30-switch-extra.yaml": `
devicetypes:
  switch:
    commands: [toggle]
`,
		"notes.txt": "not a fragment",
	})

	tree, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := map[string]any{
		"devicetypes": map[string]any{
			"switch": map[string]any{
				"name":     "Switch",
				"commands": []any{"toggle", "on", "off"},
			},
			"dimmer": map[string]any{
				"name":     "Dimmer",
				"commands": []any{"setlevel"},
			},
		},
		"units": map[string]any{"percent": []any{"percent", "%"}},
	}
	if diff := cmp.Diff(want, tree); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_SingleFragmentIsBase(t *testing.T) {
	dir := writeFragments(t, map[string]string{"a.yaml": "a: 1\n"})

	tree, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(map[string]any{"a": 1}, tree); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_NoFragments(t *testing.T) {
	dir := writeFragments(t, map[string]string{"readme.md": "# schema"})

	_, err := Load(dir)
	if !errors.Is(err, ErrNoFragments) {
		t.Errorf("Load() error = %v, want ErrNoFragments", err)
	}
}

func TestLoad_MissingDirectory(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("Load() expected error for missing directory")
	}
}

func TestLoad_ParseFailure(t *testing.T) {
	dir := writeFragments(t, map[string]string{
		"10-good.yaml": "a: 1\n",
		"20-bad.yaml":  "a: [unterminated\n",
	})

	if _, err := Load(dir); err == nil {
		t.Error("Load() expected parse error")
	}
}

func TestFragments_IgnoresDirectories(t *testing.T) {
	dir := writeFragments(t, map[string]string{"b.yaml": "b: 1\n", "a.yaml": "a: 1\n"})
	if err := os.Mkdir(filepath.Join(dir, "sub.yaml"), 0750); err != nil {
		t.Fatal(err)
	}

	paths, err := Fragments(dir)
	if err != nil {
		t.Fatalf("Fragments() error = %v", err)
	}
	want := []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yaml")}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("Fragments() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_NumericKeysMergeAsMaps(t *testing.T) {
	dir := writeFragments(t, map[string]string{
		"10-values.yaml": `
values:
  switch:
    0: "off"
    255: "on"
`,
		"20-values.yaml": `
values:
  switch:
    100: half
`,
	})

	tree, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := map[string]any{
		"values": map[string]any{
			"switch": map[string]any{
				"0":   "off",
				"100": "half",
				"255": "on",
			},
		},
	}
	if diff := cmp.Diff(want, tree); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	if _, err := json.Marshal(tree); err != nil {
		t.Errorf("merged tree is not JSON encodable: %v", err)
	}
}

func TestLoad_NumericKeysInsideLists(t *testing.T) {
	dir := writeFragments(t, map[string]string{
		"10-list.yaml": `
options:
  - 1: low
    2: high
`,
	})

	tree, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := map[string]any{
		"options": []any{
			map[string]any{"1": "low", "2": "high"},
		},
	}
	if diff := cmp.Diff(want, tree); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}
