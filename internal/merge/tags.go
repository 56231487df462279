package merge

import "strings"

var listSplitter = strings.NewReplacer(":::", ",")

// SplitList splits a comma-separated Tags/Groups value into trimmed,
// non-empty items. Google-style " ::: " separators are accepted too.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(listSplitter.Replace(s), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinList renders items as a Tags/Groups value.
func JoinList(items []string) string {
	return strings.Join(items, ", ")
}

// HasTag reports whether list contains tag, ignoring case.
func HasTag(list []string, tag string) bool {
	for _, t := range list {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// ContainsTag reports whether the comma-separated value contains tag.
func ContainsTag(value, tag string) bool {
	return HasTag(SplitList(value), tag)
}

// AddTag returns value with tag appended unless already present.
func AddTag(value, tag string) string {
	items := SplitList(value)
	if HasTag(items, tag) {
		return value
	}
	return JoinList(append(items, tag))
}

// RemoveTag returns value without any occurrence of tag.
func RemoveTag(value, tag string) string {
	items := SplitList(value)
	if !HasTag(items, tag) {
		return value
	}
	kept := items[:0]
	for _, t := range items {
		if !strings.EqualFold(t, tag) {
			kept = append(kept, t)
		}
	}
	return JoinList(kept)
}

// UnionList appends items of b missing from a, ignoring case and keeping
// first-seen order.
func UnionList(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, t := range list {
			k := strings.ToLower(t)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
