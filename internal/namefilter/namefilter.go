// Package namefilter validates character names.
package namefilter

import (
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Name length bounds in runes.
const (
	DefaultMinLength = 2
	DefaultMaxLength = 32
)

// Rejection reasons, stable keys for message lookup.
const (
	ReasonTooShort    = "too_short"
	ReasonTooLong     = "too_long"
	ReasonInvalidChar = "invalid_char"
	ReasonBannedName  = "banned_name"
	ReasonBannedWord  = "banned_word"
)

// Config holds the name filter configuration
type Config struct {
	Enabled     bool     `yaml:"enabled"`
	MinLength   int      `yaml:"min_length"`
	MaxLength   int      `yaml:"max_length"`
	BannedWords []string `yaml:"banned_words"`
	BannedNames []string `yaml:"banned_names"`
}

// Result contains the outcome of checking a name
type Result struct {
	Allowed bool
	Reason  string // one of the Reason constants when not allowed
}

// NameFilter checks length and characters always, and banned words and
// names when enabled.
type NameFilter struct {
	enabled     bool
	minLength   int
	maxLength   int
	bannedWords []string // lowercase, partial match
	bannedNames []string // lowercase, exact match
}

// New creates a new NameFilter from a Config
func New(cfg *Config) *NameFilter {
	nf := &NameFilter{minLength: DefaultMinLength, maxLength: DefaultMaxLength}
	if cfg == nil {
		return nf
	}

	nf.enabled = cfg.Enabled
	if cfg.MinLength > 0 {
		nf.minLength = cfg.MinLength
	}
	if cfg.MaxLength > 0 {
		nf.maxLength = cfg.MaxLength
	}
	for _, word := range cfg.BannedWords {
		if word != "" {
			nf.bannedWords = append(nf.bannedWords, strings.ToLower(word))
		}
	}
	for _, name := range cfg.BannedNames {
		if name != "" {
			nf.bannedNames = append(nf.bannedNames, strings.ToLower(name))
		}
	}
	return nf
}

// LoadConfig loads name filter configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse name filter %s: %w", path, err)
	}
	return &cfg, nil
}

// Normalize trims surrounding whitespace and collapses inner runs of spaces.
func Normalize(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// Check validates an already normalized name.
func (nf *NameFilter) Check(name string) Result {
	n := utf8.RuneCountInString(name)
	if n < nf.minLength {
		return Result{Reason: ReasonTooShort}
	}
	if n > nf.maxLength {
		return Result{Reason: ReasonTooLong}
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' && r != '_' && r != '-' {
			return Result{Reason: ReasonInvalidChar}
		}
	}

	if !nf.enabled {
		return Result{Allowed: true}
	}

	nameLower := strings.ToLower(name)
	for _, banned := range nf.bannedNames {
		if nameLower == banned {
			return Result{Reason: ReasonBannedName}
		}
	}
	for _, word := range nf.bannedWords {
		if strings.Contains(nameLower, word) {
			return Result{Reason: ReasonBannedWord}
		}
	}

	return Result{Allowed: true}
}

// Bounds returns the accepted name length range.
func (nf *NameFilter) Bounds() (min, max int) {
	return nf.minLength, nf.maxLength
}

// IsEnabled returns whether banned word checks are enabled
func (nf *NameFilter) IsEnabled() bool {
	return nf.enabled
}
