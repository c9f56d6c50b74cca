package tts

import (
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// LanguageAll is the language filter value that matches every voice.
const LanguageAll = "All"

// VoiceFilter narrows a voice list. Zero fields match anything.
type VoiceFilter struct {
	Language string
	Gender   Gender
	Quality  Quality
	Search   string
}

// IsZero reports whether the filter matches every voice.
func (f VoiceFilter) IsZero() bool {
	return (f.Language == "" || strings.EqualFold(f.Language, LanguageAll)) &&
		f.Gender == 0 && f.Quality == 0 && strings.TrimSpace(f.Search) == ""
}

// FilterVoices returns the voices in all that match f, in their
// original order. all is not modified.
func FilterVoices(all []Voice, f VoiceFilter) []Voice {
	fold := cases.Fold()
	search := fold.String(strings.TrimSpace(f.Search))

	out := make([]Voice, 0, len(all))
	for _, v := range all {
		if !matchLanguage(v.Language, f.Language) {
			continue
		}
		if f.Gender != 0 && v.Gender != f.Gender {
			continue
		}
		if f.Quality != 0 && v.Quality != f.Quality {
			continue
		}
		if search != "" &&
			!strings.Contains(fold.String(v.Name), search) &&
			!strings.Contains(fold.String(languageName(v.Language)), search) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func matchLanguage(tag, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" || strings.EqualFold(filter, LanguageAll) || strings.EqualFold(tag, filter) {
		return true
	}
	vt, err := language.Parse(tag)
	if err != nil {
		return false
	}
	ft, err := language.Parse(filter)
	if err != nil {
		return false
	}
	if vt == ft {
		return true
	}
	// a bare language matches all of its regional variants
	if !strings.ContainsAny(filter, "-_") {
		vb, _ := vt.Base()
		fb, _ := ft.Base()
		return vb == fb
	}
	return false
}

// languageName is the English name of a tag, e.g. "American English".
func languageName(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	return display.English.Tags().Name(t)
}

// LanguageDisplayName formats a tag for pickers, e.g.
// "English [United States]". Unknown tags are returned unchanged.
func LanguageDisplayName(tag string) string {
	if strings.EqualFold(tag, LanguageAll) {
		return LanguageAll
	}
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	base, _ := t.Base()
	name := display.English.Languages().Name(base)
	if name == "" {
		return tag
	}
	if _, _, region := t.Raw(); region.String() != "ZZ" {
		if rn := display.English.Regions().Name(region); rn != "" {
			name += " [" + rn + "]"
		}
	}
	return name
}

// Languages returns the distinct language tags in all, sorted.
func Languages(all []Voice) []string {
	var tags []string
	for _, v := range all {
		if v.Language != "" && !slices.Contains(tags, v.Language) {
			tags = append(tags, v.Language)
		}
	}
	slices.Sort(tags)
	return tags
}

type voiceNames []Voice

func (v voiceNames) String(i int) string { return v[i].Name }
func (v voiceNames) Len() int            { return len(v) }

// ResolveVoice finds the voice a user meant by query: an exact ID, then
// a case-insensitive name, then the best fuzzy name match.
func ResolveVoice(all []Voice, query string) (Voice, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Voice{}, ErrVoiceNotFound
	}
	for _, v := range all {
		if v.ID == query {
			return v, nil
		}
	}
	for _, v := range all {
		if strings.EqualFold(v.Name, query) {
			return v, nil
		}
	}
	if matches := fuzzy.FindFrom(query, voiceNames(all)); len(matches) > 0 {
		return all[matches[0].Index], nil
	}
	return Voice{}, ErrVoiceNotFound
}
