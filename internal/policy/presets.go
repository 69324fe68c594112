// Package policy compiles policy subscriptions into an immutable rule state
// and evaluates package metadata against it.
package policy

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkgvet/pkgvet/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed presets/*.yaml
var presetFS embed.FS

// presetFiles maps subscription names to embedded file paths
var presetFiles = map[string]string{
	"baseline":  "presets/baseline.yaml",
	"microsoft": "presets/microsoft.yaml",
}

// DefaultSubscription is used when neither a file nor a name is given
const DefaultSubscription = "microsoft"

// GetPreset returns the declaration of a built-in subscription, or nil if not found.
// A fresh copy is parsed on every call so callers cannot mutate shared state.
func GetPreset(name string) *models.PolicyDeclaration {
	path, ok := presetFiles[name]
	if !ok {
		return nil
	}

	data, err := presetFS.ReadFile(path)
	if err != nil {
		return nil
	}

	decl, err := ParseDeclaration(data)
	if err != nil {
		return nil
	}
	return decl
}

// ListPresetNames returns the built-in subscription names, sorted
func ListPresetNames() []string {
	names := make([]string, 0, len(presetFiles))
	for name := range presetFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseDeclaration decodes a YAML policy declaration. Unknown keys are rejected.
func ParseDeclaration(data []byte) (*models.PolicyDeclaration, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var decl models.PolicyDeclaration
	if err := dec.Decode(&decl); err != nil {
		return nil, fmt.Errorf("failed to parse policy YAML: %w", err)
	}
	return &decl, nil
}

// LoadSubscription resolves a policy file (wins when set) or a built-in
// subscription name and compiles it. Decode failures of the declaration are
// reported as MalformedPolicyError; I/O failures are returned wrapped.
func LoadSubscription(file, name string) (*State, error) {
	var decl *models.PolicyDeclaration

	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read policy file: %w", err)
		}
		return LoadDeclarationBytes(data)
	default:
		if name == "" {
			name = DefaultSubscription
		}
		decl = GetPreset(name)
		if decl == nil {
			return nil, fmt.Errorf("unknown policy subscription: %s (valid: %s)", name, strings.Join(ListPresetNames(), ", "))
		}
	}

	return Deserialize(decl)
}

// LoadDeclarationBytes compiles a YAML policy declaration held in memory.
func LoadDeclarationBytes(data []byte) (*State, error) {
	decl, err := ParseDeclaration(data)
	if err != nil {
		return nil, &MalformedPolicyError{Index: -1, Reason: err.Error()}
	}
	return Deserialize(decl)
}

// ResolveRef loads a state from a reference that is either a built-in
// subscription name or a path to a policy file.
func ResolveRef(ref string) (*State, error) {
	if _, ok := presetFiles[ref]; ok {
		return LoadSubscription("", ref)
	}
	return LoadSubscription(ref, "")
}
