// Package i18n loads the famtree message catalogue and translates message IDs.
// Catalogues are YAML files embedded from locales/, one per language tag.
package i18n

import (
	"embed"
	"io/fs"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const DEFAULT_LANGUAGE = "en"

//go:embed locales/*.yaml
var localeFS embed.FS

var (
	mu        sync.RWMutex
	bundle    *i18n.Bundle
	localizer *Localizer
)

// Localizer translates message IDs for a fixed language preference list.
type Localizer struct {
	l *i18n.Localizer
}

// Init parses every embedded catalogue and sets the default language.
func Init(lang string) {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	files, _ := fs.ReadDir(localeFS, "locales")
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + f.Name())
		if err != nil {
			continue
		}
		b.ParseMessageFileBytes(data, f.Name())
	}

	mu.Lock()
	bundle = b
	localizer = &Localizer{l: i18n.NewLocalizer(b, lang, DEFAULT_LANGUAGE)}
	mu.Unlock()
}

// SetLang switches the default language.
func SetLang(lang string) {
	Init(lang)
}

// NewLocalizer returns a localizer for the given preferences, e.g. the raw
// value of an Accept-Language header.
func NewLocalizer(langs ...string) *Localizer {
	ensureInit()

	mu.RLock()
	defer mu.RUnlock()
	return &Localizer{l: i18n.NewLocalizer(bundle, append(langs, DEFAULT_LANGUAGE)...)}
}

// T translates messageID with the default localizer.
func T(messageID string) string {
	return Tf(messageID, nil)
}

// Tf translates messageID, filling template placeholders from data.
func Tf(messageID string, data map[string]interface{}) string {
	ensureInit()

	mu.RLock()
	l := localizer
	mu.RUnlock()
	return l.Tf(messageID, data)
}

func (lz *Localizer) T(messageID string) string {
	return lz.Tf(messageID, nil)
}

// Tf returns the message ID itself when no catalogue defines it.
func (lz *Localizer) Tf(messageID string, data map[string]interface{}) string {
	msg, err := lz.l.Localize(&i18n.LocalizeConfig{MessageID: messageID, TemplateData: data})
	if err != nil {
		return messageID
	}
	return msg
}

func ensureInit() {
	mu.RLock()
	ready := localizer != nil
	mu.RUnlock()

	if !ready {
		Init(DEFAULT_LANGUAGE)
	}
}
