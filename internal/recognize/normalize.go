package recognize

import (
	"regexp"
	"strings"

	"kanjifinder/pkg/models"
)

// rawKanji is the loosely-shaped entry the model returns. Every field is
// optional; normalize fills the gaps.
type rawKanji struct {
	Kanji       string           `json:"kanji"`
	Meanings    []string         `json:"meanings"`
	OnYomi      []string         `json:"onYomi"`
	KunYomi     []string         `json:"kunYomi"`
	JLPTLevel   string           `json:"jlptLevel"`
	StrokeCount int              `json:"strokeCount"`
	Examples    []models.Example `json:"examples"`
	Mnemonic    string           `json:"mnemonic"`
}

func normalize(raw rawKanji, imageReference string) models.KanjiResult {
	result := models.KanjiResult{
		Kanji:          raw.Kanji,
		Meanings:       raw.Meanings,
		OnYomi:         raw.OnYomi,
		KunYomi:        raw.KunYomi,
		JLPTLevel:      raw.JLPTLevel,
		StrokeCount:    raw.StrokeCount,
		Examples:       raw.Examples,
		Mnemonic:       CleanMnemonic(raw.Mnemonic),
		ImageReference: imageReference,
	}

	if result.Kanji == "" {
		result.Kanji = "?"
	}
	if len(result.Meanings) == 0 {
		result.Meanings = []string{"Unknown"}
	}
	if result.OnYomi == nil {
		result.OnYomi = []string{}
	}
	if result.KunYomi == nil {
		result.KunYomi = []string{}
	}
	if result.JLPTLevel == "" {
		result.JLPTLevel = "Unknown"
	}
	if result.StrokeCount < 0 {
		result.StrokeCount = 0
	}
	if result.Examples == nil {
		result.Examples = []models.Example{}
	}
	return result
}

func normalizeAll(raw []rawKanji, imageReference string) []models.KanjiResult {
	out := make([]models.KanjiResult, 0, len(raw))
	for _, r := range raw {
		out = append(out, normalize(r, imageReference))
	}
	return out
}

// imageRef keeps a truncated snippet of the source image data, informational
// only.
func imageRef(imageBase64 string) string {
	if len(imageBase64) > 100 {
		return imageBase64[:100]
	}
	return imageBase64
}

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ExtractJSON pulls the JSON payload out of a model response that may wrap it
// in a markdown code fence or surrounding prose.
func ExtractJSON(text string) string {
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	for _, pair := range [][2]byte{{'[', ']'}, {'{', '}'}} {
		start := strings.IndexByte(text, pair[0])
		end := strings.LastIndexByte(text, pair[1])
		if start >= 0 && end > start {
			return text[start : end+1]
		}
	}
	return text
}

var mnemonicCleanups = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\*\*([^*]+)\*\*`), "$1"}, // bold
	{regexp.MustCompile(`\*([^*]+)\*`), "$1"},     // italic
	{regexp.MustCompile(`__([^_]+)__`), "$1"},     // underline
	{regexp.MustCompile(`_([^_]+)_`), "$1"},       // alternate italic
	{regexp.MustCompile("`([^`]+)`"), "$1"},       // code
	{regexp.MustCompile(`###*\s?`), ""},           // headings
	{regexp.MustCompile(`>\s?`), ""},              // quotes
	{regexp.MustCompile(`<[^>]+>`), ""},           // html tags
}

// CleanMnemonic strips markdown markup the model sometimes adds despite being
// told not to.
func CleanMnemonic(text string) string {
	for _, c := range mnemonicCleanups {
		text = c.re.ReplaceAllString(text, c.repl)
	}
	return text
}
