package config

import (
	"reflect"
	"slices"
	"strings"
)

// rootKeys lists the yaml keys File decodes.
var rootKeys = func() map[string]struct{} {
	keys := make(map[string]struct{})
	typ := reflect.TypeOf(File{})
	for i := range typ.NumField() {
		name, _, _ := strings.Cut(typ.Field(i).Tag.Get("yaml"), ",")
		if name != "" && name != "-" {
			keys[name] = struct{}{}
		}
	}
	return keys
}()

// unknownRootKeys warns about top-level keys that File does not decode.
// Nested sections are closed by the schema and rejected there.
func unknownRootKeys(doc any) []string {
	top, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	var warnings []string
	for key := range top {
		if _, known := rootKeys[key]; !known {
			warnings = append(warnings, "unknown field \""+key+"\" at root level (ignored)")
		}
	}
	slices.Sort(warnings)
	return warnings
}
