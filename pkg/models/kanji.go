package models

// KanjiResult is the normalized, internal form of one recognized kanji
// returned by the image-recognition service.
//
// The raw AI response is loosely shaped; it is mapped into this structure
// first, then the app builds flashcards from this representation.
type KanjiResult struct {
	Kanji          string    `json:"kanji"`
	Meanings       []string  `json:"meanings"`
	OnYomi         []string  `json:"onYomi"`
	KunYomi        []string  `json:"kunYomi"`
	JLPTLevel      string    `json:"jlptLevel"` // "N5".."N1", or "Unknown"
	StrokeCount    int       `json:"strokeCount"`
	Examples       []Example `json:"examples"`
	Mnemonic       string    `json:"mnemonic,omitempty"`
	ImageReference string    `json:"imageReference,omitempty"` // truncated source image snippet
}

// Flashcard converts a recognition result into an unsaved flashcard.
// Meanings are comma-joined into a single string the way the card list
// displays them.
func (k KanjiResult) Flashcard() Flashcard {
	meaning := ""
	for i, m := range k.Meanings {
		if i > 0 {
			meaning += ", "
		}
		meaning += m
	}
	return Flashcard{
		Kanji:          k.Kanji,
		Meaning:        meaning,
		Readings:       Readings{OnYomi: k.OnYomi, KunYomi: k.KunYomi},
		JLPT:           k.JLPTLevel,
		Examples:       k.Examples,
		Mnemonic:       k.Mnemonic,
		ImageReference: k.ImageReference,
		SyncStatus:     SyncStatusLocal,
	}
}
