package recognize

import (
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "code fence",
			in:   "Here you go:\n```json\n[{\"kanji\":\"山\"}]\n```\nHope that helps!",
			want: `[{"kanji":"山"}]`,
		},
		{
			name: "bare fence",
			in:   "```\n{\"kanji\":\"山\"}\n```",
			want: `{"kanji":"山"}`,
		},
		{
			name: "array in prose",
			in:   `Sure! [{"kanji":"山"}] is what I found.`,
			want: `[{"kanji":"山"}]`,
		},
		{
			name: "object in prose",
			in:   `The result is {"kanji":"山"} as requested.`,
			want: `{"kanji":"山"}`,
		},
		{
			name: "already clean",
			in:   `[{"kanji":"山"}]`,
			want: `[{"kanji":"山"}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanMnemonic(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"**Water** with a *mother* inside", "Water with a mother inside"},
		{"__strong__ and _subtle_", "strong and subtle"},
		{"`code` stays plain", "code stays plain"},
		{"### Heading\n> quoted", "Heading\nquoted"},
		{"no <em>tags</em> here", "no tags here"},
		{"already plain", "already plain"},
	}

	for _, tt := range tests {
		if got := CleanMnemonic(tt.in); got != tt.want {
			t.Errorf("CleanMnemonic(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeDefaults(t *testing.T) {
	got := normalize(rawKanji{}, "snippet")

	if got.Kanji != "?" {
		t.Errorf("kanji = %q, want ?", got.Kanji)
	}
	if len(got.Meanings) != 1 || got.Meanings[0] != "Unknown" {
		t.Errorf("meanings = %v, want [Unknown]", got.Meanings)
	}
	if got.OnYomi == nil || got.KunYomi == nil || got.Examples == nil {
		t.Error("nil slices not defaulted")
	}
	if got.JLPTLevel != "Unknown" {
		t.Errorf("jlpt = %q, want Unknown", got.JLPTLevel)
	}
	if got.ImageReference != "snippet" {
		t.Errorf("imageReference = %q", got.ImageReference)
	}
}

func TestNormalizeKeepsProvidedFields(t *testing.T) {
	raw := rawKanji{
		Kanji:       "海",
		Meanings:    []string{"sea", "ocean"},
		OnYomi:      []string{"カイ"},
		KunYomi:     []string{"うみ"},
		JLPTLevel:   "N5",
		StrokeCount: 9,
		Mnemonic:    "**Water** with a mother inside.",
	}
	got := normalize(raw, "")

	if got.Kanji != "海" || got.JLPTLevel != "N5" || got.StrokeCount != 9 {
		t.Errorf("fields not preserved: %+v", got)
	}
	if got.Mnemonic != "Water with a mother inside." {
		t.Errorf("mnemonic not cleaned: %q", got.Mnemonic)
	}
}

func TestImageRefTruncates(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	if got := imageRef(string(long)); len(got) != 100 {
		t.Errorf("len = %d, want 100", len(got))
	}
	if got := imageRef("short"); got != "short" {
		t.Errorf("short input changed: %q", got)
	}
}

func TestStripDataURL(t *testing.T) {
	if got := stripDataURL("data:image/jpeg;base64,AAAA"); got != "AAAA" {
		t.Errorf("got %q", got)
	}
	if got := stripDataURL("AAAA"); got != "AAAA" {
		t.Errorf("bare payload changed: %q", got)
	}
}
