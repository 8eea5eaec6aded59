package receipt

import (
	"github.com/tidwall/gjson"

	lcstrings "lineacaptura/pkg/platform/strings"
)

// Index maps normalized keys of a JSON object to their values. When two keys
// normalize to the same form the later one wins.
type Index map[string]gjson.Result

// NewIndex indexes the top-level members of obj. Non-objects give an empty index.
func NewIndex(obj gjson.Result) Index {
	idx := Index{}
	if !obj.IsObject() {
		return idx
	}
	obj.ForEach(func(key, value gjson.Result) bool {
		idx[lcstrings.NormalizeKey(key.String())] = value
		return true
	})
	return idx
}

// Lookup returns the value of the first alias present.
func (idx Index) Lookup(aliases ...string) gjson.Result {
	for _, a := range aliases {
		if v, ok := idx[lcstrings.NormalizeKey(a)]; ok {
			return v
		}
	}
	return gjson.Result{}
}
