package rules_test

import (
	"os"
	"path/filepath"
	"testing"

	"go-wod-trmnl/internal/rules"
)

func TestRules_GetPreset(t *testing.T) {
	r := &rules.Rules{Presets: map[string]rules.Preset{
		"Default": {Bold: "strong"},
		"legacy":  {Bold: ".wod-title b", RestDay: []string{"active recovery"}},
	}}
	p, ok := r.GetPreset("")
	if !ok || p.Bold != "strong" {
		t.Fatalf("default fallback failed: %+v", p.Bold)
	}
	if len(p.WorkoutStart) == 0 || p.Headings == "" {
		t.Fatalf("defaults not filled")
	}
	p2, ok := r.GetPreset("LEGACY")
	if !ok || p2.Bold != ".wod-title b" || p2.RestDay[0] != "active recovery" {
		t.Fatalf("case-insensitive lookup failed: %+v", p2)
	}
	p3, ok := r.GetPreset("missing")
	if !ok || p3.Bold != "strong" {
		t.Fatalf("unknown name should fall back to default preset")
	}

	var nilRules *rules.Rules
	p4, ok := nilRules.GetPreset("x")
	if ok || p4.Bold != rules.Default().Bold {
		t.Fatalf("nil rules should yield built-in preset")
	}
}

func TestRules_Load(t *testing.T) {
	f := filepath.Join(t.TempDir(), "rules.yaml")
	yml := "default:\n  bold: \"strong, b, .title\"\n  scaling:\n    open: [\"modifications:\"]\n"
	if err := os.WriteFile(f, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := rules.Load(f)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	p, ok := r.GetPreset("default")
	if !ok || p.Bold != "strong, b, .title" {
		t.Fatalf("bold = %q", p.Bold)
	}
	if len(p.Scaling.Open) != 1 || p.Scaling.Open[0] != "modifications:" {
		t.Fatalf("scaling open = %v", p.Scaling.Open)
	}
	// 未配置的 close 继承内置值
	if len(p.Scaling.Close) != len(rules.Default().Scaling.Close) {
		t.Fatalf("scaling close not defaulted: %v", p.Scaling.Close)
	}

	if _, err := rules.Load(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
