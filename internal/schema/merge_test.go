package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		a, b map[string]any
		want map[string]any
	}{
		{
			name: "scalar conflict becomes pair",
			a:    map[string]any{"a": 1},
			b:    map[string]any{"a": 2},
			want: map[string]any{"a": []any{1, 2}},
		},
		{
			name: "disjoint keys are unioned",
			a:    map[string]any{"a": 1},
			b:    map[string]any{"b": "x"},
			want: map[string]any{"a": 1, "b": "x"},
		},
		{
			name: "lists concatenate with b first",
			a:    map[string]any{"l": []any{"a1", "a2"}},
			b:    map[string]any{"l": []any{"b1"}},
			want: map[string]any{"l": []any{"b1", "a1", "a2"}},
		},
		{
			name: "empty b list leaves a's elements",
			a:    map[string]any{"l": []any{"a1"}},
			b:    map[string]any{"l": []any{}},
			want: map[string]any{"l": []any{"a1"}},
		},
		{
			name: "nested maps merge recursively",
			a: map[string]any{"devicetypes": map[string]any{
				"switch": map[string]any{"commands": []any{"on"}, "name": "Switch"},
			}},
			b: map[string]any{"devicetypes": map[string]any{
				"switch": map[string]any{"commands": []any{"off"}},
				"dimmer": map[string]any{"name": "Dimmer"},
			}},
			want: map[string]any{"devicetypes": map[string]any{
				"switch": map[string]any{"commands": []any{"off", "on"}, "name": "Switch"},
				"dimmer": map[string]any{"name": "Dimmer"},
			}},
		},
		{
			name: "map against scalar is a conflict",
			a:    map[string]any{"k": map[string]any{"x": 1}},
			b:    map[string]any{"k": "flat"},
			want: map[string]any{"k": []any{map[string]any{"x": 1}, "flat"}},
		},
		{
			name: "list against scalar is a conflict",
			a:    map[string]any{"k": []any{1, 2}},
			b:    map[string]any{"k": 3},
			want: map[string]any{"k": []any{[]any{1, 2}, 3}},
		},
		{
			name: "scalar against list is a conflict",
			a:    map[string]any{"k": 3},
			b:    map[string]any{"k": []any{1}},
			want: map[string]any{"k": []any{3, []any{1}}},
		},
		{
			name: "nil against nil is a conflict",
			a:    map[string]any{"k": nil},
			b:    map[string]any{"k": nil},
			want: map[string]any{"k": []any{nil, nil}},
		},
		{
			name: "empty a",
			a:    map[string]any{},
			b:    map[string]any{"k": 1},
			want: map[string]any{"k": 1},
		},
		{
			name: "nil a",
			a:    nil,
			b:    map[string]any{"k": 1},
			want: map[string]any{"k": 1},
		},
		{
			name: "empty b",
			a:    map[string]any{"k": 1},
			b:    nil,
			want: map[string]any{"k": 1},
		},
		{
			name: "deep conflict",
			a:    map[string]any{"x": map[string]any{"y": map[string]any{"z": true}}},
			b:    map[string]any{"x": map[string]any{"y": map[string]any{"z": false}}},
			want: map[string]any{"x": map[string]any{"y": map[string]any{"z": []any{true, false}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.a, tt.b)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	a := map[string]any{"m": map[string]any{"k": 1}, "l": []any{"a"}}
	b := map[string]any{"m": map[string]any{"k": 2}, "l": []any{"b"}, "n": 3}
	aCopy := map[string]any{"m": map[string]any{"k": 1}, "l": []any{"a"}}
	bCopy := map[string]any{"m": map[string]any{"k": 2}, "l": []any{"b"}, "n": 3}

	_ = Merge(a, b)

	if diff := cmp.Diff(aCopy, a); diff != "" {
		t.Errorf("a modified (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(bCopy, b); diff != "" {
		t.Errorf("b modified (-want +got):\n%s", diff)
	}
}

func TestMerge_FoldOrderMatters(t *testing.T) {
	f1 := map[string]any{"a": 1}
	f2 := map[string]any{"a": 2}
	f3 := map[string]any{"a": 3}

	got := Merge(Merge(f1, f2), f3)
	// [1,2] is a list and 3 a scalar, so the second fold pairs them.
	want := map[string]any{"a": []any{[]any{1, 2}, 3}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fold mismatch (-want +got):\n%s", diff)
	}

	reversed := Merge(Merge(f3, f2), f1)
	if cmp.Equal(got, reversed) {
		t.Error("folding in reverse order should give a different tree")
	}
}

func TestNormalize(t *testing.T) {
	in := map[string]any{
		"enum": map[any]any{0: "off", 255: "on", true: "yes"},
		"list": []any{map[any]any{1.5: "x"}, "plain"},
		"name": "switch",
	}
	want := map[string]any{
		"enum": map[string]any{"0": "off", "255": "on", "true": "yes"},
		"list": []any{map[string]any{"1.5": "x"}, "plain"},
		"name": "switch",
	}
	if diff := cmp.Diff(want, normalize(in)); diff != "" {
		t.Errorf("normalize() mismatch (-want +got):\n%s", diff)
	}
}
