package patch

import (
	"reflect"
	"sort"
)

// Diff produces the operations that take current to want, used to prefill a
// form from a server-supplied draft. Zero values in want are skipped: a
// draft never erases what the user already typed. Output is ordered by path
// for stable round-trips.
func Diff(current, want map[string]any) []Operation {
	ops := make([]Operation, 0)
	for key, wantValue := range want {
		if wantValue == nil || isZeroValue(wantValue) {
			continue
		}
		path := "/" + escapePointerToken(key)
		currentValue, exists := current[key]
		if !exists {
			ops = append(ops, Operation{Op: OperationAdd, Path: path, Value: wantValue})
		} else if !reflect.DeepEqual(currentValue, wantValue) {
			ops = append(ops, Operation{Op: OperationReplace, Path: path, Value: wantValue})
		}
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Path < ops[j].Path })
	return ops
}

func escapePointerToken(token string) string {
	result := ""
	for _, ch := range token {
		switch ch {
		case '~':
			result += "~0"
		case '/':
			result += "~1"
		default:
			result += string(ch)
		}
	}
	return result
}

func isZeroValue(v any) bool {
	if v == nil {
		return true
	}
	switch val := v.(type) {
	case string:
		return val == ""
	case float64:
		return val == 0
	case int:
		return val == 0
	case bool:
		return !val
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}
