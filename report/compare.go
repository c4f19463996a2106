package report

import (
	"encoding/json"

	"github.com/nsf/jsondiff"
)

// CompareJSON renders a side by side comparison of a and b as JSON. It reports whether the
// two are equal.
func CompareJSON(a, b interface{}, console bool) (bool, string, error) {
	left, err := json.Marshal(a)
	if err != nil {
		return false, "", err
	}
	right, err := json.Marshal(b)
	if err != nil {
		return false, "", err
	}
	opts := jsondiff.DefaultJSONOptions()
	if console {
		opts = jsondiff.DefaultConsoleOptions()
	}
	diff, text := jsondiff.Compare(left, right, &opts)
	return diff == jsondiff.FullMatch, text, nil
}
