package compose

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Catalog keys for the localized labels and attribution templates.
const (
	keyReplySubjectLabel   = "reply_subject_label"
	keyForwardSubjectLabel = "forward_subject_label"
	keyFormattedSubject    = "formatted_subject"
	keyReplyAttribution    = "reply_attribution"
	keyForwardAttribution  = "forward_attribution"
	keyCcAttribution       = "cc_attribution"
)

type localeStrings struct {
	tag        language.Tag
	dateLayout string
	messages   map[string]string
}

var locales = []localeStrings{
	{
		tag:        language.English,
		dateLayout: "Jan 2, 2006 3:04 PM",
		messages: map[string]string{
			keyReplySubjectLabel:   "Re:",
			keyForwardSubjectLabel: "Fwd:",
			keyFormattedSubject:    "%[1]s %[2]s",
			keyReplyAttribution:    "On %[1]s, %[2]s wrote:",
			keyForwardAttribution: "---------- Forwarded message ----------<br>" +
				"From: %[1]s<br>Date: %[2]s<br>Subject: %[3]s<br>To: %[4]s<br>",
			keyCcAttribution: "Cc: %[1]s<br>",
		},
	},
	{
		tag:        language.German,
		dateLayout: "02.01.2006 15:04",
		messages: map[string]string{
			keyReplySubjectLabel:   "AW:",
			keyForwardSubjectLabel: "WG:",
			keyFormattedSubject:    "%[1]s %[2]s",
			keyReplyAttribution:    "Am %[1]s schrieb %[2]s:",
			keyForwardAttribution: "---------- Weitergeleitete Nachricht ----------<br>" +
				"Von: %[1]s<br>Datum: %[2]s<br>Betreff: %[3]s<br>An: %[4]s<br>",
			keyCcAttribution: "Cc: %[1]s<br>",
		},
	},
}

var (
	quoteCatalog = buildCatalog()
	localeTags   = supportedTags()
	matcher      = language.NewMatcher(localeTags)
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, l := range locales {
		for key, msg := range l.messages {
			if err := b.SetString(l.tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

func supportedTags() []language.Tag {
	tags := make([]language.Tag, len(locales))
	for i, l := range locales {
		tags[i] = l.tag
	}
	return tags
}

// SupportedLocales returns the locales with translated templates.
// English is first and is used for anything else.
func SupportedLocales() []language.Tag {
	return supportedTags()
}

// matchLocale returns the supported locale closest to tag.
func matchLocale(tag language.Tag) localeStrings {
	_, i, conf := matcher.Match(tag)
	if conf == language.No {
		return locales[0]
	}
	return locales[i]
}

func newPrinter(l localeStrings) *message.Printer {
	return message.NewPrinter(l.tag, message.Catalog(quoteCatalog))
}
