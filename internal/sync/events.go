package sync

import "time"

// Event types fanned out to connected devices. flashcard.sync is emitted once
// per bulk push with the count of cards that landed; update/delete carry the
// single card they concern.
const (
	EventFlashcardUpdate = "flashcard.update"
	EventFlashcardDelete = "flashcard.delete"
	EventFlashcardSync   = "flashcard.sync"
)

type FlashcardEvent struct {
	Type   string    `json:"type"`
	UserID string    `json:"user_id"`
	CardID string    `json:"card_id,omitempty"`
	Kanji  string    `json:"kanji,omitempty"`
	Count  int       `json:"count,omitempty"`
	At     time.Time `json:"at"`
}
