// Package i18n looks up the board's user-visible strings by key.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the fallback for missing locales and keys.
const BaseLocale = "en-US"

//go:embed locales/*.yaml
var localesFS embed.FS

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle holds the message tables of every supported locale.
type Bundle struct {
	tags     []language.Tag
	messages []map[string]string
	matcher  language.Matcher
}

var defaultBundle = mustLoad(localesFS)

// Default returns the embedded bundle.
func Default() *Bundle {
	return defaultBundle
}

// Load reads locales/*.yaml from fsys. The base locale is required.
func Load(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	sort.Strings(paths)

	b := &Bundle{}
	baseIndex := -1
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		want := strings.TrimSuffix(path.Base(p), path.Ext(p))
		if file.Locale != want {
			return nil, fmt.Errorf("catalog %s: locale %q must match filename %q", p, file.Locale, want)
		}
		tag, err := language.Parse(file.Locale)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", p, err)
		}
		if file.Locale == BaseLocale {
			baseIndex = len(b.tags)
		}
		b.tags = append(b.tags, tag)
		b.messages = append(b.messages, file.Messages)
	}

	if baseIndex < 0 {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	// The matcher falls back to its first tag, so the base goes first.
	b.tags[0], b.tags[baseIndex] = b.tags[baseIndex], b.tags[0]
	b.messages[0], b.messages[baseIndex] = b.messages[baseIndex], b.messages[0]
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

func mustLoad(fsys fs.FS) *Bundle {
	b, err := Load(fsys)
	if err != nil {
		panic(fmt.Sprintf("loading embedded catalogs: %v", err))
	}
	return b
}

// Supported returns the locales with a catalog, base locale first.
func (b *Bundle) Supported() []language.Tag {
	out := make([]language.Tag, len(b.tags))
	copy(out, b.tags)
	return out
}

// Translator resolves keys for one locale.
type Translator struct {
	tag      language.Tag
	messages map[string]string
	base     map[string]string
}

// Translator returns the best translator for a language preference such as
// "id", "id-ID" or a POSIX value like "id_ID.UTF-8". Unknown or empty
// preferences get the base locale.
func (b *Bundle) Translator(pref string) *Translator {
	index := 0
	if tag, err := language.Parse(normalize(pref)); err == nil {
		_, i, conf := b.matcher.Match(tag)
		if conf != language.No {
			index = i
		}
	}
	return &Translator{
		tag:      b.tags[index],
		messages: b.messages[index],
		base:     b.messages[0],
	}
}

// New returns a translator from the embedded bundle.
func New(pref string) *Translator {
	return Default().Translator(pref)
}

// Tag returns the resolved locale.
func (t *Translator) Tag() language.Tag {
	return t.tag
}

// T returns the message for key, falling back to the base locale and then
// to the key itself.
func (t *Translator) T(key string) string {
	if msg, ok := t.messages[key]; ok {
		return msg
	}
	if msg, ok := t.base[key]; ok {
		return msg
	}
	return key
}

// normalize turns POSIX locale names into BCP 47.
func normalize(pref string) string {
	pref = strings.TrimSpace(pref)
	if i := strings.IndexAny(pref, ".@"); i >= 0 {
		pref = pref[:i]
	}
	if pref == "C" || pref == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(pref, "_", "-")
}
