package patch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Apply runs ops against a value map and returns the patched copy. The
// input map is not mutated. Replace ops for paths that do not exist yet are
// downgraded to add, and remove ops for absent paths are dropped, so a
// server that does not know the form's current shape can still send a
// usable patch.
func Apply(values map[string]any, ops []Operation) (map[string]any, error) {
	if len(ops) == 0 {
		return values, nil
	}

	currentJSON, err := sonic.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("marshal current values: %w", err)
	}

	ops = FixOperations(currentJSON, ops)

	patchJSON, err := sonic.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("marshal patch operations: %w", err)
	}

	p, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return nil, fmt.Errorf("decode patch: %w", err)
	}

	modifiedJSON, err := p.Apply(currentJSON)
	if err != nil {
		return nil, fmt.Errorf("apply patch: %w", err)
	}

	var result map[string]any
	if err := sonic.Unmarshal(modifiedJSON, &result); err != nil {
		return nil, fmt.Errorf("unmarshal patched values: %w", err)
	}
	return result, nil
}

// FixOperations rewrites ops so they cannot fail on document shape:
// replace on a missing path becomes add, remove on a missing path is
// dropped.
func FixOperations(currentJSON []byte, ops []Operation) []Operation {
	var doc any
	if err := sonic.Unmarshal(currentJSON, &doc); err != nil {
		return ops
	}

	fixed := make([]Operation, 0, len(ops))
	for _, op := range ops {
		switch op.Op {
		case OperationReplace:
			if !pathExists(doc, op.Path) {
				op.Op = OperationAdd
			}
			fixed = append(fixed, op)
		case OperationRemove:
			if pathExists(doc, op.Path) {
				fixed = append(fixed, op)
			}
		default:
			fixed = append(fixed, op)
		}
	}
	return fixed
}

func pathExists(doc any, path string) bool {
	if path == "" {
		return true
	}
	if !strings.HasPrefix(path, "/") {
		return false
	}

	tokens := strings.Split(path[1:], "/")
	cur := doc
	for _, token := range tokens {
		token = strings.ReplaceAll(token, "~1", "/")
		token = strings.ReplaceAll(token, "~0", "~")
		switch node := cur.(type) {
		case map[string]any:
			value, ok := node[token]
			if !ok {
				return false
			}
			cur = value
		case []any:
			index, err := strconv.Atoi(token)
			if err != nil || index < 0 || index >= len(node) {
				return false
			}
			cur = node[index]
		default:
			return false
		}
	}
	return true
}
