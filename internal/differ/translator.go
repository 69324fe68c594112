package differ

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wI2L/jsondiff"
)

var pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")

// pointerTokens splits an RFC 6901 pointer into unescaped tokens
func pointerTokens(ptr string) []string {
	if ptr == "" || ptr == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(ptr, "/"), "/")
	for i, p := range parts {
		parts[i] = pointerUnescaper.Replace(p)
	}
	return parts
}

// Translate patches to english, one line per distinct change
func Translate(patches jsondiff.Patch) []string {
	if len(patches) == 0 {
		return nil
	}

	var translations []string
	seen := make(map[string]bool)

	for _, op := range patches {
		for _, line := range translateOperation(op) {
			if !seen[line] {
				seen[line] = true
				translations = append(translations, line)
			}
		}
	}

	return translations
}

func translateOperation(op jsondiff.Operation) []string {
	tokens := pointerTokens(op.Path)
	if len(tokens) == 0 {
		return nil
	}
	field := tokens[0]

	if len(tokens) == 1 {
		switch op.Type {
		case jsondiff.OperationAdd:
			return []string{field + ": rule added" + kindSuffix(op.Value)}
		case jsondiff.OperationRemove:
			return []string{field + ": rule removed"}
		default:
			return []string{field + ": rule replaced" + kindSuffix(op.Value)}
		}
	}

	switch tokens[1] {
	case "kind":
		return []string{fmt.Sprintf("%s: kind changed to %v", field, op.Value)}
	case "match":
		if op.Type == jsondiff.OperationRemove {
			return nil
		}
		return []string{fmt.Sprintf("%s: match mode changed to %v", field, op.Value)}
	case "allowed":
		return translateAllowed(field, op, tokens[2:])
	case "case_insensitive":
		if op.Value == true {
			return []string{field + ": matching is now case-insensitive"}
		}
		return []string{field + ": matching is now case-sensitive"}
	case "optional":
		if op.Value == true {
			return []string{field + ": absent value now passes"}
		}
		return []string{field + ": absent value now fails"}
	case "expr":
		if op.Type == jsondiff.OperationRemove {
			return []string{field + ": expression removed"}
		}
		return []string{fmt.Sprintf("%s: expression changed to `%v`", field, op.Value)}
	case "failure_msg":
		return []string{field + ": failure message changed"}
	case "description":
		return []string{field + ": description changed"}
	default:
		return []string{field + ": rule modified"}
	}
}

// translateAllowed handles both single entries and the whole allowed set
func translateAllowed(field string, op jsondiff.Operation, rest []string) []string {
	if len(rest) > 0 {
		switch op.Type {
		case jsondiff.OperationAdd:
			return []string{fmt.Sprintf("%s: allowed %q added", field, rest[0])}
		case jsondiff.OperationRemove:
			return []string{fmt.Sprintf("%s: allowed %q removed", field, rest[0])}
		default:
			return nil
		}
	}

	if op.Type == jsondiff.OperationRemove {
		return []string{field + ": allowed values cleared"}
	}

	set, ok := op.Value.(map[string]interface{})
	if !ok {
		return []string{field + ": allowed values changed"}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: allowed %q added", field, k))
	}
	return lines
}

func kindSuffix(v interface{}) string {
	rule, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	if kind, ok := rule["kind"].(string); ok && kind != "" {
		return " (" + kind + ")"
	}
	return ""
}
