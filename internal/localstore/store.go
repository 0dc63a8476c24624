package localstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"kanjifinder/pkg/models"
)

// Store is the device-side flashcard collection: one JSON array under a
// single storage key, read and written whole on every operation.
//
// Every operation holds the store mutex across its read-modify-write, so two
// concurrent saves cannot clobber each other's effect on unrelated cards.
type Store struct {
	mu      sync.Mutex
	storage Storage
}

func New(storage Storage) *Store {
	return &Store{storage: storage}
}

// Init makes sure the storage key exists, writing an empty collection when it
// does not. Safe to call on every start.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.storage.Get(StorageKey)
	if err != nil {
		return err
	}
	if b != nil {
		return nil
	}
	return s.storage.Set(StorageKey, []byte("[]"))
}

func (s *Store) load() ([]models.Flashcard, error) {
	b, err := s.storage.Get(StorageKey)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return []models.Flashcard{}, nil
	}

	var cards []models.Flashcard
	if err := json.Unmarshal(b, &cards); err != nil {
		return nil, fmt.Errorf("decode flashcards: %w", err)
	}

	// Older records may predate some fields; default them on the way in.
	for i := range cards {
		if cards[i].SyncStatus == "" {
			cards[i].SyncStatus = models.SyncStatusLocal
		}
		if cards[i].Examples == nil {
			cards[i].Examples = []models.Example{}
		}
		if cards[i].Tags == nil {
			cards[i].Tags = []string{}
		}
	}
	return cards, nil
}

func (s *Store) write(cards []models.Flashcard) error {
	b, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("encode flashcards: %w", err)
	}
	return s.storage.Set(StorageKey, b)
}

// Save upserts by id. Missing id, createdAt, and syncStatus are defaulted;
// a re-save that omits createdAt keeps the original timestamp. New cards go
// to the front of the collection. Returns the card as stored.
func (s *Store) Save(card models.Flashcard) (models.Flashcard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards, err := s.load()
	if err != nil {
		return models.Flashcard{}, err
	}

	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	if card.SyncStatus == "" {
		card.SyncStatus = models.SyncStatusLocal
	}
	if card.Examples == nil {
		card.Examples = []models.Example{}
	}
	if card.Tags == nil {
		card.Tags = []string{}
	}

	idx := -1
	for i := range cards {
		if cards[i].ID == card.ID {
			idx = i
			break
		}
	}

	if card.CreatedAt == "" {
		if idx >= 0 {
			card.CreatedAt = cards[idx].CreatedAt
		} else {
			card.CreatedAt = time.Now().UTC().Format(time.RFC3339)
		}
	}

	if idx >= 0 {
		cards[idx] = card
	} else {
		cards = append([]models.Flashcard{card}, cards...)
	}

	if err := s.write(cards); err != nil {
		return models.Flashcard{}, err
	}
	return card, nil
}

// List returns every card, newest first. The sort runs on every call rather
// than trusting stored order.
func (s *Store) List() ([]models.Flashcard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listSorted()
}

func (s *Store) listSorted() ([]models.Flashcard, error) {
	cards, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].CreatedAtTime().After(cards[j].CreatedAtTime())
	})
	return cards, nil
}

func (s *Store) ListByJlpt(level string) ([]models.Flashcard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards, err := s.listSorted()
	if err != nil {
		return nil, err
	}
	out := cards[:0:0]
	for _, card := range cards {
		if card.JLPT == level {
			out = append(out, card)
		}
	}
	return out, nil
}

func (s *Store) ListByTag(tag string) ([]models.Flashcard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards, err := s.listSorted()
	if err != nil {
		return nil, err
	}
	out := cards[:0:0]
	for _, card := range cards {
		if card.HasTag(tag) {
			out = append(out, card)
		}
	}
	return out, nil
}

// GetByID returns nil when no card has that id; absence is not an error.
func (s *Store) GetByID(id string) (*models.Flashcard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range cards {
		if cards[i].ID == id {
			card := cards[i]
			return &card, nil
		}
	}
	return nil, nil
}

// Delete removes the card with that id, reporting whether one was removed.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards, err := s.load()
	if err != nil {
		return false, err
	}

	idx := -1
	for i := range cards {
		if cards[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	cards = append(cards[:idx], cards[idx+1:]...)
	if err := s.write(cards); err != nil {
		return false, err
	}
	return true, nil
}

// ListUnsynced returns the cards still waiting for a sync pass.
func (s *Store) ListUnsynced() ([]models.Flashcard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards, err := s.listSorted()
	if err != nil {
		return nil, err
	}
	out := cards[:0:0]
	for _, card := range cards {
		if card.SyncStatus == models.SyncStatusLocal {
			out = append(out, card)
		}
	}
	return out, nil
}

// MarkSynced flips syncStatus to synced for every card whose id is in ids,
// returning how many cards actually changed.
func (s *Store) MarkSynced(ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards, err := s.load()
	if err != nil {
		return 0, err
	}

	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}

	updated := 0
	for i := range cards {
		if _, ok := idSet[cards[i].ID]; ok {
			cards[i].SyncStatus = models.SyncStatusSynced
			updated++
		}
	}

	if err := s.write(cards); err != nil {
		return 0, err
	}
	return updated, nil
}
