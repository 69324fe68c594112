package differ

import (
	"strings"
	"testing"

	"github.com/pkgvet/pkgvet/internal/models"
	"github.com/pkgvet/pkgvet/internal/policy"
)

func mustState(t *testing.T, name string, rules ...models.RuleDeclaration) *policy.State {
	t.Helper()
	s, err := policy.Deserialize(&models.PolicyDeclaration{Name: name, Version: "1", Rules: rules})
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	return s
}

func TestCompareStates_NoChange(t *testing.T) {
	rules := []models.RuleDeclaration{
		{Field: "authors", Kind: "exact_match", Values: []string{"Contoso", "Fabrikam"}},
		{Field: "copyright", Kind: "required"},
	}
	prev := mustState(t, "a", rules...)
	// allowed order does not matter
	next := mustState(t, "b",
		models.RuleDeclaration{Field: "authors", Kind: "exact_match", Values: []string{"Fabrikam", "Contoso"}},
		rules[1],
	)

	result, err := CompareStates(prev, next)
	if err != nil {
		t.Fatalf("CompareStates failed: %v", err)
	}
	if result.HasChanges {
		t.Errorf("expected no changes, got %+v", result.RuleDiffs)
	}
	if result.OldTag != "a@1" || result.NewTag != "b@1" {
		t.Errorf("tags = %q, %q", result.OldTag, result.NewTag)
	}
}

func TestCompareStates_Changes(t *testing.T) {
	prev := mustState(t, "corp",
		models.RuleDeclaration{Field: "authors", Kind: "exact_match", Values: []string{"Contoso"}},
		models.RuleDeclaration{Field: "copyright", Kind: "required"},
		models.RuleDeclaration{Field: "licenseUrl", Kind: "required_prefix", Prefixes: []string{"https://contoso.com/"}},
	)
	next := mustState(t, "corp",
		models.RuleDeclaration{Field: "authors", Kind: "exact_match", Values: []string{"Contoso", "Fabrikam"}, CaseInsensitive: true},
		models.RuleDeclaration{Field: "licenseUrl", Kind: "required_prefix", Prefixes: []string{"https://contoso.com/"}, Optional: true},
		models.RuleDeclaration{Field: "projectUrl", Kind: "required"},
	)

	result, err := CompareStates(prev, next)
	if err != nil {
		t.Fatalf("CompareStates failed: %v", err)
	}
	if !result.HasChanges {
		t.Fatal("expected changes")
	}

	want := []struct {
		field    string
		diffType DiffType
		severity SeverityLevel
		lines    []string
	}{
		{"authors", DiffTypeChanged, SeverityModerate, []string{
			`authors: allowed "Fabrikam" added`,
			"authors: matching is now case-insensitive",
		}},
		{"licenseUrl", DiffTypeChanged, SeverityModerate, []string{"licenseUrl: absent value now passes"}},
		{"projectUrl", DiffTypeAdded, SeverityCritical, nil},
		{"copyright", DiffTypeRemoved, SeverityCritical, []string{"copyright: rule removed"}},
	}

	if len(result.RuleDiffs) != len(want) {
		t.Fatalf("got %d rule diffs, want %d: %+v", len(result.RuleDiffs), len(want), result.RuleDiffs)
	}
	for i, w := range want {
		d := result.RuleDiffs[i]
		if d.Field != w.field || d.DiffType != w.diffType {
			t.Errorf("diff[%d] = %s/%s, want %s/%s", i, d.Field, d.DiffType, w.field, w.diffType)
		}
		if d.Severity != w.severity {
			t.Errorf("diff[%d] severity = %s, want %s", i, d.Severity, w.severity)
		}
		for _, line := range w.lines {
			if !contains(d.Translations, line) {
				t.Errorf("diff[%d] translations %q missing %q", i, d.Translations, line)
			}
		}
	}

	added := result.RuleDiffs[2].Translations
	if len(added) != 1 || !strings.HasPrefix(added[0], "projectUrl: rule added") {
		t.Errorf("added translations = %q", added)
	}
}

func TestCompareStates_KindChange(t *testing.T) {
	prev := mustState(t, "p", models.RuleDeclaration{Field: "id", Kind: "required"})
	next := mustState(t, "p", models.RuleDeclaration{Field: "id", Kind: "expression", Expr: `input.id.startsWith("Contoso.")`})

	result, err := CompareStates(prev, next)
	if err != nil {
		t.Fatalf("CompareStates failed: %v", err)
	}
	if len(result.RuleDiffs) != 1 {
		t.Fatalf("got %d diffs", len(result.RuleDiffs))
	}
	d := result.RuleDiffs[0]
	if d.Severity != SeverityCritical {
		t.Errorf("severity = %s, want critical", d.Severity)
	}
	for _, line := range []string{
		"id: kind changed to expression",
		"id: expression changed to `input.id.startsWith(\"Contoso.\")`",
		"id: failure message changed",
	} {
		if !contains(d.Translations, line) {
			t.Errorf("translations %q missing %q", d.Translations, line)
		}
	}
}

func TestCompareStates_Nil(t *testing.T) {
	s := mustState(t, "p", models.RuleDeclaration{Field: "id", Kind: "required"})
	if _, err := CompareStates(nil, s); err == nil {
		t.Error("expected error for nil ruleset")
	}
}

func TestPointerTokens(t *testing.T) {
	got := pointerTokens("/licenseUrl/allowed/https:~1~1aka.ms~1")
	want := []string{"licenseUrl", "allowed", "https://aka.ms/"}
	if len(got) != len(want) {
		t.Fatalf("got %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if pointerTokens("") != nil {
		t.Error("empty pointer should have no tokens")
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
