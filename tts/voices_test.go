package tts

import (
	"errors"
	"reflect"
	"testing"
)

var catalog = []Voice{
	{ID: "en_US-amy-medium", Name: "Amy", Language: "en-US", Gender: GenderFemale, Quality: QualityEnhanced},
	{ID: "en_GB-alan-low", Name: "Alan", Language: "en-GB", Gender: GenderMale, Quality: QualityDefault},
	{ID: "de_DE-thorsten-high", Name: "Thorsten", Language: "de-DE", Gender: GenderMale, Quality: QualityPremium},
	{ID: "fr", Name: "French", Language: "fr", Gender: GenderUnspecified, Quality: QualityDefault},
	{ID: "en_US-lessac-high", Name: "Lessac", Language: "en-US", Gender: GenderFemale, Quality: QualityPremium},
}

func ids(vs []Voice) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}

func TestFilterVoices(t *testing.T) {
	tests := []struct {
		name   string
		filter VoiceFilter
		want   []string
	}{
		{"zero filter", VoiceFilter{}, ids(catalog)},
		{"all languages", VoiceFilter{Language: "all"}, ids(catalog)},
		{"exact tag", VoiceFilter{Language: "en-GB"}, []string{"en_GB-alan-low"}},
		{"tag case", VoiceFilter{Language: "EN-us"}, []string{"en_US-amy-medium", "en_US-lessac-high"}},
		{"underscore tag", VoiceFilter{Language: "en_US"}, []string{"en_US-amy-medium", "en_US-lessac-high"}},
		{"base language", VoiceFilter{Language: "en"}, []string{"en_US-amy-medium", "en_GB-alan-low", "en_US-lessac-high"}},
		{"gender", VoiceFilter{Gender: GenderMale}, []string{"en_GB-alan-low", "de_DE-thorsten-high"}},
		{"quality", VoiceFilter{Quality: QualityPremium}, []string{"de_DE-thorsten-high", "en_US-lessac-high"}},
		{"combined", VoiceFilter{Language: "en", Gender: GenderFemale, Quality: QualityPremium}, []string{"en_US-lessac-high"}},
		{"search name", VoiceFilter{Search: "THOR"}, []string{"de_DE-thorsten-high"}},
		{"search language name", VoiceFilter{Search: "british"}, []string{"en_GB-alan-low"}},
		{"search german", VoiceFilter{Search: "german"}, []string{"de_DE-thorsten-high"}},
		{"no match", VoiceFilter{Language: "ja"}, []string{}},
		{"bad tag", VoiceFilter{Language: "not a tag"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(FilterVoices(catalog, tt.filter)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterVoices(%+v) = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestFilterVoicesIsPure(t *testing.T) {
	before := append([]Voice(nil), catalog...)

	if narrowed := FilterVoices(catalog, VoiceFilter{Language: "en"}); len(narrowed) != 3 {
		t.Fatalf("filtering by en gave %d voices, want 3", len(narrowed))
	}
	if cleared := FilterVoices(catalog, VoiceFilter{}); !reflect.DeepEqual(cleared, catalog) {
		t.Errorf("clearing the filter gave %v, want the full catalog", ids(cleared))
	}
	if !reflect.DeepEqual(before, catalog) {
		t.Error("FilterVoices modified its input")
	}
}

func TestVoiceFilterIsZero(t *testing.T) {
	tests := []struct {
		name   string
		filter VoiceFilter
		want   bool
	}{
		{"empty", VoiceFilter{}, true},
		{"all and blank search", VoiceFilter{Language: LanguageAll, Search: "  "}, true},
		{"gender", VoiceFilter{Gender: GenderFemale}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.IsZero(); got != tt.want {
				t.Errorf("IsZero() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLanguages(t *testing.T) {
	want := []string{"de-DE", "en-GB", "en-US", "fr"}
	if got := Languages(catalog); !reflect.DeepEqual(got, want) {
		t.Errorf("Languages() = %v, want %v", got, want)
	}
	if got := Languages(nil); len(got) != 0 {
		t.Errorf("Languages(nil) = %v, want empty", got)
	}
}

func TestLanguageDisplayName(t *testing.T) {
	tests := []struct {
		tag, want string
	}{
		{"en-US", "English [United States]"},
		{"en-GB", "English [United Kingdom]"},
		{"fr", "French"},
		{"All", "All"},
		{"!!", "!!"},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			if got := LanguageDisplayName(tt.tag); got != tt.want {
				t.Errorf("LanguageDisplayName(%q) = %q, want %q", tt.tag, got, tt.want)
			}
		})
	}
}

func TestResolveVoice(t *testing.T) {
	tests := []struct {
		query string
		want  string
		err   error
	}{
		{"de_DE-thorsten-high", "de_DE-thorsten-high", nil},
		{"amy", "en_US-amy-medium", nil},
		{"LESSAC", "en_US-lessac-high", nil},
		{"thrstn", "de_DE-thorsten-high", nil},
		{"", "", ErrVoiceNotFound},
		{"zzzzzz", "", ErrVoiceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			v, err := ResolveVoice(catalog, tt.query)
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Errorf("ResolveVoice(%q) error = %v, want %v", tt.query, err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveVoice(%q) error = %v", tt.query, err)
			}
			if v.ID != tt.want {
				t.Errorf("ResolveVoice(%q) = %s, want %s", tt.query, v.ID, tt.want)
			}
		})
	}
}

func TestParseGender(t *testing.T) {
	tests := []struct {
		in      string
		want    Gender
		wantErr bool
	}{
		{"Female", GenderFemale, false},
		{"any", 0, false},
		{"robot", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGender(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGender(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseGender(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseQuality(t *testing.T) {
	q, err := ParseQuality("premium")
	if err != nil {
		t.Fatalf("ParseQuality() error = %v", err)
	}
	if q != QualityPremium {
		t.Errorf("ParseQuality(premium) = %v, want premium", q)
	}
	if got := QualityEnhanced.String(); got != "enhanced" {
		t.Errorf("String() = %q, want enhanced", got)
	}
	if got := Quality(0).String(); got != "any" {
		t.Errorf("String() = %q, want any", got)
	}
}
