// Package i18n loads the module's localization tables and resolves keys for
// the best matching locale, falling back to English and then to the key.
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/xdy-forks/foundry-simple-weather/internal/foundation/errors"
)

// BaseLocale is the locale every key is defined in.
const BaseLocale = "en"

//go:embed lang/*.yaml
var embedded embed.FS

type file struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle holds the messages of every loaded locale.
type Bundle struct {
	locales map[string]map[string]string
	tags    []language.Tag
	matcher language.Matcher
}

// LoadEmbedded loads the tables shipped with the binary.
func LoadEmbedded() (*Bundle, error) {
	return LoadFS(embedded, "lang")
}

// Load loads the embedded tables and then overlays every *.yaml file found
// in overrideDir. An empty overrideDir loads the embedded tables only.
func Load(overrideDir string) (*Bundle, error) {
	b, err := LoadEmbedded()
	if err != nil {
		return nil, err
	}
	if overrideDir == "" {
		return b, nil
	}
	if _, err := os.Stat(overrideDir); err != nil {
		return nil, errors.ConfigError("localization directory not readable").
			WithCause(err).WithContext("dir", overrideDir).Build()
	}
	if err := b.addFS(os.DirFS(overrideDir), "."); err != nil {
		return nil, err
	}
	b.buildMatcher()
	return b, nil
}

// LoadFS loads every *.yaml file in dir of fsys.
func LoadFS(fsys fs.FS, dir string) (*Bundle, error) {
	b := &Bundle{locales: map[string]map[string]string{}}
	if err := b.addFS(fsys, dir); err != nil {
		return nil, err
	}
	if _, ok := b.locales[BaseLocale]; !ok {
		return nil, errors.ConfigError("base locale is missing").WithContext("locale", BaseLocale).Build()
	}
	b.buildMatcher()
	return b, nil
}

func (b *Bundle) addFS(fsys fs.FS, dir string) error {
	paths, err := fs.Glob(fsys, filepath.ToSlash(filepath.Join(dir, "*.yaml")))
	if err != nil {
		return errors.InternalError("glob localization files").WithCause(err).Build()
	}
	sort.Strings(paths)
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return errors.ConfigError("read localization file").WithCause(err).WithContext("path", path).Build()
		}
		var f file
		if err := yaml.Unmarshal(data, &f); err != nil {
			return errors.ConfigError("parse localization file").WithCause(err).WithContext("path", path).Build()
		}
		locale := strings.TrimSpace(f.Locale)
		if locale == "" {
			locale = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		if _, err := language.Parse(locale); err != nil {
			return errors.ConfigError("invalid locale").WithCause(err).WithContext("path", path).Build()
		}
		msgs, ok := b.locales[locale]
		if !ok {
			msgs = map[string]string{}
			b.locales[locale] = msgs
		}
		for k, v := range f.Messages {
			msgs[strings.TrimSpace(k)] = v
		}
	}
	return nil
}

func (b *Bundle) buildMatcher() {
	// The base locale goes first so it is the matcher's default.
	locales := []string{BaseLocale}
	for _, l := range b.Locales() {
		if l != BaseLocale {
			locales = append(locales, l)
		}
	}
	b.tags = make([]language.Tag, 0, len(locales))
	for _, l := range locales {
		b.tags = append(b.tags, language.MustParse(l))
	}
	b.matcher = language.NewMatcher(b.tags)
}

// Locales returns the loaded locale ids, sorted.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.locales))
	for l := range b.locales {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Catalog returns the catalog of the loaded locale best matching preferred,
// which may be an Accept-Language style list.
func (b *Bundle) Catalog(preferred string) *Catalog {
	tags, _, _ := language.ParseAcceptLanguage(preferred)
	_, idx, _ := b.matcher.Match(tags...)
	tag := b.tags[idx]
	locale := tag.String()
	return &Catalog{
		locale:   locale,
		messages: b.locales[locale],
		base:     b.locales[BaseLocale],
		printer:  message.NewPrinter(tag),
	}
}

// Catalog resolves keys for one locale.
type Catalog struct {
	locale   string
	messages map[string]string
	base     map[string]string
	printer  *message.Printer
}

// Locale returns the locale the catalog serves.
func (c *Catalog) Locale() string { return c.locale }

// Has reports whether key resolves in the locale or the base locale.
func (c *Catalog) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// Localize returns the text of key, or key itself when it is unknown.
func (c *Catalog) Localize(key string) string {
	if v, ok := c.lookup(key); ok {
		return v
	}
	return key
}

// Format localizes key and formats it with args using locale-aware number
// formatting.
func (c *Catalog) Format(key string, args ...any) string {
	v, ok := c.lookup(key)
	if !ok {
		return key
	}
	return c.printer.Sprintf(v, args...)
}

func (c *Catalog) lookup(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	if v, ok := c.messages[key]; ok {
		return v, true
	}
	v, ok := c.base[key]
	return v, ok
}
