package namefilter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_NilConfig(t *testing.T) {
	nf := New(nil)

	if nf.IsEnabled() {
		t.Error("Filter should be disabled when config is nil")
	}
	if min, max := nf.Bounds(); min != 2 || max != 32 {
		t.Errorf("Bounds() = %d, %d; want 2, 32", min, max)
	}
	if !nf.Check("admin").Allowed {
		t.Error("Should allow banned-looking names when disabled")
	}
}

func TestCheck_Length(t *testing.T) {
	nf := New(nil)

	tests := []struct {
		name   string
		reason string
	}{
		{"Я", ReasonTooShort},
		{"Вася", ""},
		{"Ёж", ""},
		{strings.Repeat("б", 32), ""},
		{strings.Repeat("б", 33), ReasonTooLong},
		{"Вася!", ReasonInvalidChar},
		{"дядя Толя", ""},
		{"dr_Pepper-2", ""},
	}
	for _, tt := range tests {
		got := nf.Check(tt.name)
		if got.Allowed != (tt.reason == "") || got.Reason != tt.reason {
			t.Errorf("Check(%q) = %+v, want reason %q", tt.name, got, tt.reason)
		}
	}
}

func TestCheck_DisabledStillChecksLength(t *testing.T) {
	nf := New(&Config{Enabled: false, BannedNames: []string{"root"}})

	if !nf.Check("root").Allowed {
		t.Error("Should allow banned names when filter is disabled")
	}
	if nf.Check("x").Allowed {
		t.Error("Length bounds apply even when the filter is disabled")
	}
}

func TestCheck_Banned(t *testing.T) {
	nf := New(&Config{
		Enabled:     true,
		BannedWords: []string{"Admin", "мент", ""},
		BannedNames: []string{"Root", ""},
	})

	tests := []struct {
		name   string
		reason string
	}{
		{"root", ReasonBannedName},
		{"ROOT", ReasonBannedName},
		{"rooter", ""},
		{"SuperAdmin", ReasonBannedWord},
		{"Ментяра", ReasonBannedWord},
		{"Бомжара", ""},
	}
	for _, tt := range tests {
		got := nf.Check(tt.name)
		if got.Allowed != (tt.reason == "") || got.Reason != tt.reason {
			t.Errorf("Check(%q) = %+v, want reason %q", tt.name, got, tt.reason)
		}
	}
}

func TestCheck_CustomBounds(t *testing.T) {
	nf := New(&Config{MinLength: 4, MaxLength: 6})

	if nf.Check("abc").Reason != ReasonTooShort {
		t.Error("expected too_short under custom bounds")
	}
	if nf.Check("abcdefg").Reason != ReasonTooLong {
		t.Error("expected too_long under custom bounds")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Вася  ", "Вася"},
		{"дядя   Толя", "дядя Толя"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "name_filter.yaml")
	content := `enabled: true
min_length: 3
banned_words:
  - admin
banned_names:
  - root
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !cfg.Enabled || cfg.MinLength != 3 || len(cfg.BannedWords) != 1 || len(cfg.BannedNames) != 1 {
		t.Errorf("LoadConfig = %+v", cfg)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte("enabled: [unclosed"), 0644)
	if _, err := LoadConfig(bad); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}
