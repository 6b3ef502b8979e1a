package schema

// Merge folds tree b into tree a and returns the result. Neither input is
// modified.
//
// For a key present in both trees:
//   - two maps are merged recursively
//   - two lists are concatenated, b's elements first
//   - anything else becomes the pair [a's value, b's value]
//
// Keys only in b are added unchanged. Merge is not commutative: callers
// must fold fragments in a fixed order.
func Merge(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}

	for k, bv := range b {
		av, ok := out[k]
		if !ok {
			out[k] = bv
			continue
		}
		out[k] = mergeValue(av, bv)
	}
	return out
}

func mergeValue(a, b any) any {
	switch av := a.(type) {
	case map[string]any:
		if bv, ok := b.(map[string]any); ok {
			return Merge(av, bv)
		}
	case []any:
		if bv, ok := b.([]any); ok {
			list := make([]any, 0, len(av)+len(bv))
			list = append(list, bv...)
			return append(list, av...)
		}
	}
	return []any{a, b}
}
