package preprocessor

import (
	"sort"
	"strings"
)

// ResolveIdentifiers substitutes every "{{ key }}" placeholder in sql with
// ids[key]. Placeholders must carry exactly one space inside each brace pair.
// Keys missing from ids are left as written. Replacement text is not scanned
// again, so a value containing "{{ other }}" stays literal.
//
// Values are inserted verbatim: no quoting, no validation. Only pass trusted
// identifiers here and bind data values with BindNamed.
func ResolveIdentifiers(sql string, ids map[string]string) string {
	if len(ids) == 0 || !strings.Contains(sql, "{{ ") {
		return sql
	}

	keys := make([]string, 0, len(ids))
	for k := range ids {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, Placeholder(k), ids[k])
	}
	return strings.NewReplacer(pairs...).Replace(sql)
}

// Placeholder returns the template spelling of an identifier key.
func Placeholder(key string) string {
	return "{{ " + key + " }}"
}
