package jsonptr

// GetPath returns the value stored at pointer inside a nested map.
func GetPath(data map[string]any, pointer string) (any, bool) {
	tokens, err := Parse(pointer)
	if err != nil {
		return nil, false
	}
	var cur any = data
	for _, tok := range tokens {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[tok]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetResult reports what SetPath did.
type SetResult struct {
	// Success is false when the pointer is empty or malformed.
	Success bool
	// Created is true when the final key did not exist before.
	Created bool
}

// SetPath stores value at pointer, creating intermediate maps. A non-map
// intermediate value is replaced by a fresh map.
func SetPath(data map[string]any, pointer string, value any) SetResult {
	tokens, err := Parse(pointer)
	if err != nil || len(tokens) == 0 {
		return SetResult{}
	}
	cur := data
	for _, tok := range tokens[:len(tokens)-1] {
		next, ok := cur[tok].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[tok] = next
		}
		cur = next
	}
	last := tokens[len(tokens)-1]
	_, existed := cur[last]
	cur[last] = value
	return SetResult{Success: true, Created: !existed}
}

// DeletePath removes the value at pointer. It reports whether anything was removed.
func DeletePath(data map[string]any, pointer string) bool {
	tokens, err := Parse(pointer)
	if err != nil || len(tokens) == 0 {
		return false
	}
	cur := data
	for _, tok := range tokens[:len(tokens)-1] {
		next, ok := cur[tok].(map[string]any)
		if !ok {
			return false
		}
		cur = next
	}
	last := tokens[len(tokens)-1]
	if _, ok := cur[last]; !ok {
		return false
	}
	delete(cur, last)
	return true
}

// WalkLeaves calls fn for every non-map value reachable from data, passing its
// pointer. Maps are descended in unspecified order.
func WalkLeaves(data map[string]any, fn func(pointer string, value any)) {
	walkLeaves("", data, fn)
}

func walkLeaves(prefix string, data map[string]any, fn func(string, any)) {
	for k, v := range data {
		p := prefix + "/" + Escape(k)
		if nested, ok := v.(map[string]any); ok {
			walkLeaves(p, nested, fn)
			continue
		}
		fn(p, v)
	}
}
