// Package messages renders player-facing text from per-locale YAML catalogs
// through golang.org/x/text/message printers.
package messages

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/gameerr"
)

// BaseLocale is used when a requested locale has no catalog.
const BaseLocale = "ru"

//go:embed locales/*.yaml
var embeddedLocales embed.FS

type localeFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Catalog holds the registered messages of every locale.
type Catalog struct {
	builder *catalog.Builder
	tags    []language.Tag
	matcher language.Matcher
	keys    map[string]map[string]struct{}
}

// Load reads the embedded locale catalogs.
func Load() (*Catalog, error) {
	sub, err := fs.Sub(embeddedLocales, "locales")
	if err != nil {
		return nil, fmt.Errorf("open embedded locales: %w", err)
	}
	return LoadFromFS(sub)
}

// MustLoad is Load for process start and tests.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFromFS reads every *.yaml at the root of fsys. The base locale must be
// among them; it is listed first so the matcher falls back to it.
func LoadFromFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locales: %w", err)
	}
	if len(paths) == 0 {
		return nil, errors.New("no locale files found")
	}
	sort.Strings(paths)

	base := language.Make(BaseLocale)
	c := &Catalog{
		builder: catalog.NewBuilder(catalog.Fallback(base)),
		keys:    make(map[string]map[string]struct{}),
	}

	var others []language.Tag
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", path, err)
		}
		var file localeFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", path, err)
		}
		locale := strings.TrimSpace(file.Locale)
		if locale == "" {
			return nil, fmt.Errorf("locale %s: locale is required", path)
		}
		if len(file.Messages) == 0 {
			return nil, fmt.Errorf("locale %s: no messages", path)
		}
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("locale %s: parse tag %q: %w", path, locale, err)
		}
		if _, dup := c.keys[tag.String()]; dup {
			return nil, fmt.Errorf("locale %s: %q defined twice", path, locale)
		}

		keys := make(map[string]struct{}, len(file.Messages))
		for key, msg := range file.Messages {
			if err := c.builder.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("locale %s: key %q: %w", path, key, err)
			}
			keys[key] = struct{}{}
		}
		c.keys[tag.String()] = keys

		if tag != base {
			others = append(others, tag)
		}
	}

	if _, ok := c.keys[base.String()]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined", BaseLocale)
	}
	c.tags = append([]language.Tag{base}, others...)
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

// Locales returns the loaded locale tags, base first.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.tags))
	for _, t := range c.tags {
		out = append(out, t.String())
	}
	return out
}

// Has reports whether locale defines key.
func (c *Catalog) Has(locale, key string) bool {
	_, ok := c.keys[c.match(locale).String()][key]
	return ok
}

func (c *Catalog) match(locale string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return c.tags[0]
	}
	_, idx, _ := c.matcher.Match(tag)
	return c.tags[idx]
}

// Printer returns a printer for the closest loaded locale.
func (c *Catalog) Printer(locale string) *Printer {
	tag := c.match(locale)
	return &Printer{tag: tag, keys: c.keys[tag.String()], p: message.NewPrinter(tag, message.Catalog(c.builder))}
}

// Printer formats messages for one locale. Integers are grouped the way the
// locale writes them.
type Printer struct {
	tag  language.Tag
	keys map[string]struct{}
	p    *message.Printer
}

// Locale returns the printer's locale tag.
func (p *Printer) Locale() string {
	return p.tag.String()
}

// Text formats the message registered under key.
func (p *Printer) Text(key string, args ...any) string {
	return p.p.Sprintf(key, args...)
}

// Money formats an amount with the currency suffix.
func (p *Printer) Money(amount int) string {
	return p.p.Sprintf("money", amount)
}

// Error renders a domain error. Errors without a domain code render as the
// generic internal message.
func (p *Printer) Error(err error) string {
	ge, ok := gameerr.As(err)
	if !ok {
		return p.Text("error.internal")
	}
	meta := ge.Metadata
	resource := meta[gameerr.MetaResource]

	switch ge.Code {
	case gameerr.CodeEntityNotFound:
		return p.Text("error.not_found", resource, meta[gameerr.MetaID])
	case gameerr.CodeInsufficientResource:
		if resource == gameerr.ResourceCooldown {
			return p.Text("error.cooldown", atoi(meta["hours"]), atoi(meta["minutes"]))
		}
		return p.variant("error.insufficient", resource, atoi(meta[gameerr.MetaRequired]), atoi(meta[gameerr.MetaAvailable]))
	case gameerr.CodeSessionConflict:
		return p.variant("error.conflict", resource)
	case gameerr.CodeSessionExpiredOrMissing:
		return p.variant("error.expired", resource)
	case gameerr.CodeInvalidTarget:
		return p.Text("error.invalid_target", ge.Message)
	case gameerr.CodeInvalidInput:
		return p.Text("error.invalid_input", ge.Message)
	case gameerr.CodePlayerDead:
		return p.Text("player.dead")
	}
	return p.Text("error.internal")
}

// variant prefers key.suffix and falls back to key.
func (p *Printer) variant(key, suffix string, args ...any) string {
	if _, ok := p.keys[key+"."+suffix]; ok && suffix != "" {
		return p.Text(key+"."+suffix, args...)
	}
	return p.Text(key, args...)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
