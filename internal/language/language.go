package language

import (
	"strings"

	"golang.org/x/text/language"
)

type entry struct {
	code2   string
	code3   string
	display string
}

// Common languages carried in request payloads and speech model output.
var languages = []entry{
	{"en", "eng", "English"},
	{"es", "spa", "Spanish"},
	{"fr", "fra", "French"},
	{"de", "deu", "German"},
	{"it", "ita", "Italian"},
	{"pt", "por", "Portuguese"},
	{"ja", "jpn", "Japanese"},
	{"ko", "kor", "Korean"},
	{"zh", "zho", "Chinese"},
	{"ru", "rus", "Russian"},
	{"ar", "ara", "Arabic"},
	{"hi", "hin", "Hindi"},
	{"nl", "nld", "Dutch"},
	{"pl", "pol", "Polish"},
	{"sv", "swe", "Swedish"},
	{"tr", "tur", "Turkish"},
	{"uk", "ukr", "Ukrainian"},
	{"vi", "vie", "Vietnamese"},
}

var byName map[string]*entry

func init() {
	byName = make(map[string]*entry, len(languages)*3)
	for i := range languages {
		e := &languages[i]
		byName[e.code2] = e
		byName[e.code3] = e
		byName[strings.ToLower(e.display)] = e
	}
}

// Normalize canonicalizes a language code or English language name.
// Two- and three-letter codes and names like "French" become the ISO 639-1
// code; BCP 47 tags with a region or script ("zh-CN", "pt_br") keep their
// subtags in canonical casing. Unparseable input is returned lowercased.
func Normalize(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return ""
	}
	lower := strings.ToLower(strings.ReplaceAll(trimmed, "_", "-"))
	if e, ok := byName[lower]; ok {
		return e.code2
	}
	tag, err := language.Parse(lower)
	if err != nil {
		return lower
	}
	if !strings.Contains(lower, "-") {
		base, _ := tag.Base()
		return base.String()
	}
	return tag.String()
}

// Valid reports whether code parses as a known language.
func Valid(code string) bool {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return false
	}
	if _, ok := byName[strings.ToLower(trimmed)]; ok {
		return true
	}
	tag, err := language.Parse(strings.ReplaceAll(trimmed, "_", "-"))
	if err != nil {
		return false
	}
	_, confidence := tag.Base()
	return confidence != language.No
}

// Same reports whether a and b name the same base language, so "en" and
// "en-US" compare equal.
func Same(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	ta, errA := language.Parse(na)
	tb, errB := language.Parse(nb)
	if errA != nil || errB != nil {
		return false
	}
	ba, _ := ta.Base()
	bb, _ := tb.Base()
	return ba == bb
}

// ToISO2 converts a recognized language code to ISO 639-1. Unknown input
// yields an empty string.
func ToISO2(code string) string {
	normalized := Normalize(code)
	if normalized == "" {
		return ""
	}
	tag, err := language.Parse(normalized)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return ""
	}
	iso := base.String()
	if len(iso) != 2 {
		return ""
	}
	return iso
}

// DisplayName returns a human-readable language name. Empty input yields
// "Unknown" and unrecognized input is returned uppercased.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	if e, ok := byName[strings.ToLower(trimmed)]; ok {
		return e.display
	}
	if iso := ToISO2(trimmed); iso != "" {
		if e, ok := byName[iso]; ok {
			return e.display
		}
	}
	return strings.ToUpper(trimmed)
}
