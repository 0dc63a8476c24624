package models

import "time"

const (
	// SyncStatusLocal marks a card that exists only on this device or has
	// unpushed edits.
	SyncStatusLocal = "local"
	// SyncStatusSynced marks a card whose latest pushed version is on the backend.
	SyncStatusSynced = "synced"
)

type Readings struct {
	OnYomi  []string `json:"onYomi"`
	KunYomi []string `json:"kunYomi"`
}

type Example struct {
	Word    string `json:"word"`
	Reading string `json:"reading"`
	Meaning string `json:"meaning"`
}

type Flashcard struct {
	ID             string    `json:"id"`
	Kanji          string    `json:"kanji"`
	Meaning        string    `json:"meaning"`
	Readings       Readings  `json:"readings"`
	JLPT           string    `json:"jlpt"`
	Notes          string    `json:"notes"`
	Examples       []Example `json:"examples"`
	Mnemonic       string    `json:"mnemonic"`
	CreatedAt      string    `json:"createdAt"` // RFC3339
	Tags           []string  `json:"tags"`
	SyncStatus     string    `json:"syncStatus"`
	ImageReference string    `json:"imageReference,omitempty"`
	UserID         string    `json:"userId,omitempty"` // backend copies only
}

// CreatedAtTime parses CreatedAt, returning the zero time when the field is
// missing or not RFC3339 (older stored records).
func (f Flashcard) CreatedAtTime() time.Time {
	t, err := time.Parse(time.RFC3339, f.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// HasTag reports whether tag appears in the card's tag list (exact match).
func (f Flashcard) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
