package internal

import (
	"fmt"
	"strings"
)

// Flatten returns data with nested keys joined by "." and array elements
// addressed as key[i]. {"claim": {"state": "merged"}} becomes
// {"claim.state": "merged"}. Arrays are also kept whole under their own key.
func Flatten(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for key, value := range data {
		flattenInto(out, key, value)
	}
	return out
}

func flattenInto(out map[string]interface{}, path string, value interface{}) {
	switch typed := value.(type) {
	case map[string]interface{}:
		for key, child := range typed {
			flattenInto(out, path+"."+key, child)
		}
	case []interface{}:
		out[path] = typed
		for i, child := range typed {
			flattenInto(out, fmt.Sprintf("%s[%d]", path, i), child)
		}
	default:
		out[path] = value
	}
}

var parameterReplacer = strings.NewReplacer(".", "_", "[", "_", "]", "")

// Parameters flattens data into names usable as expression variables:
// claim.state becomes claim_state and labels[0] becomes labels_0.
func Parameters(data map[string]interface{}) map[string]interface{} {
	flat := Flatten(data)
	params := make(map[string]interface{}, len(flat))
	for key, value := range flat {
		params[parameterReplacer.Replace(key)] = value
	}
	return params
}
