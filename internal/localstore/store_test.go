package localstore

import (
	"testing"
	"time"

	"kanjifinder/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(NewMemStorage())
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func TestInitIdempotent(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Save(models.Flashcard{Kanji: "山", Meaning: "mountain"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Init(); err != nil {
		t.Fatalf("second init: %v", err)
	}

	cards, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("re-init clobbered the collection: got %d cards, want 1", len(cards))
	}
}

func TestSaveDefaults(t *testing.T) {
	s := newTestStore(t)

	saved, err := s.Save(models.Flashcard{
		Kanji:   "海",
		Meaning: "sea, ocean",
		Readings: models.Readings{
			OnYomi:  []string{"カイ"},
			KunYomi: []string{"うみ"},
		},
		JLPT: "N5",
		Tags: []string{"N5", "nature"},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	if saved.ID == "" {
		t.Error("expected generated id")
	}
	if saved.SyncStatus != models.SyncStatusLocal {
		t.Errorf("sync status = %q, want %q", saved.SyncStatus, models.SyncStatusLocal)
	}
	if _, err := time.Parse(time.RFC3339, saved.CreatedAt); err != nil {
		t.Errorf("createdAt %q is not RFC3339: %v", saved.CreatedAt, err)
	}

	got, err := s.GetByID(saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("saved card not found")
	}
	if got.Kanji != "海" || got.Meaning != "sea, ocean" || got.JLPT != "N5" {
		t.Errorf("fields not preserved: %+v", got)
	}
	if len(got.Readings.OnYomi) != 1 || got.Readings.OnYomi[0] != "カイ" {
		t.Errorf("onYomi not preserved: %v", got.Readings.OnYomi)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "N5" || got.Tags[1] != "nature" {
		t.Errorf("tags not preserved: %v", got.Tags)
	}
}

func TestSaveUpsertKeepsCreatedAt(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Save(models.Flashcard{
		ID:        "card-1",
		Kanji:     "字",
		Meaning:   "character",
		CreatedAt: "2024-01-02T03:04:05Z",
	})
	if err != nil {
		t.Fatalf("first save: %v", err)
	}

	// re-save omitting createdAt, with different notes
	second, err := s.Save(models.Flashcard{
		ID:      "card-1",
		Kanji:   "字",
		Meaning: "character",
		Notes:   "seen in 漢字",
	})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}

	if second.CreatedAt != first.CreatedAt {
		t.Errorf("createdAt changed on re-save: %q -> %q", first.CreatedAt, second.CreatedAt)
	}

	cards, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("upsert appended instead of replacing: %d cards", len(cards))
	}
	if cards[0].Notes != "seen in 漢字" {
		t.Errorf("notes = %q, want latest value", cards[0].Notes)
	}
}

func TestListSortsNewestFirst(t *testing.T) {
	s := newTestStore(t)

	// saved oldest-last so stored order disagrees with timestamp order
	stamps := []string{
		"2024-03-01T00:00:00Z",
		"2024-01-01T00:00:00Z",
		"2024-02-01T00:00:00Z",
	}
	for i, ts := range stamps {
		_, err := s.Save(models.Flashcard{
			ID:        []string{"a", "b", "c"}[i],
			Kanji:     "山",
			Meaning:   "mountain",
			CreatedAt: ts,
		})
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	cards, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"a", "c", "b"}
	if len(cards) != 3 {
		t.Fatalf("got %d cards, want 3", len(cards))
	}
	for i, id := range want {
		if cards[i].ID != id {
			t.Errorf("cards[%d].ID = %q, want %q", i, cards[i].ID, id)
		}
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Save(models.Flashcard{ID: "keep", Kanji: "川", Meaning: "river"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.Save(models.Flashcard{ID: "gone", Kanji: "道", Meaning: "road"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	ok, err := s.Delete("missing")
	if err != nil {
		t.Fatalf("delete unknown: %v", err)
	}
	if ok {
		t.Error("delete of unknown id reported true")
	}

	cards, _ := s.List()
	if len(cards) != 2 {
		t.Fatalf("delete of unknown id changed collection size: %d", len(cards))
	}

	ok, err = s.Delete("gone")
	if err != nil {
		t.Fatalf("delete known: %v", err)
	}
	if !ok {
		t.Error("delete of known id reported false")
	}

	cards, _ = s.List()
	if len(cards) != 1 || cards[0].ID != "keep" {
		t.Errorf("wrong card removed: %+v", cards)
	}
}

func TestUnsyncedAndMarkSynced(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"1", "2", "3"} {
		if _, err := s.Save(models.Flashcard{ID: id, Kanji: "火", Meaning: "fire"}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	n, err := s.MarkSynced([]string{"1", "3"})
	if err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if n != 2 {
		t.Errorf("marked %d, want 2", n)
	}

	unsynced, err := s.ListUnsynced()
	if err != nil {
		t.Fatalf("list unsynced: %v", err)
	}
	if len(unsynced) != 1 || unsynced[0].ID != "2" {
		t.Errorf("unsynced = %+v, want only card 2", unsynced)
	}

	for _, id := range []string{"1", "3"} {
		card, _ := s.GetByID(id)
		if card == nil || card.SyncStatus != models.SyncStatusSynced {
			t.Errorf("card %s not marked synced: %+v", id, card)
		}
	}
}

func TestEditResetsToUnsynced(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Save(models.Flashcard{ID: "x", Kanji: "水", Meaning: "water"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.MarkSynced([]string{"x"}); err != nil {
		t.Fatalf("mark synced: %v", err)
	}

	card, _ := s.GetByID("x")
	card.Notes = "edited"
	card.SyncStatus = models.SyncStatusLocal
	if _, err := s.Save(*card); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	unsynced, _ := s.ListUnsynced()
	if len(unsynced) != 1 || unsynced[0].ID != "x" {
		t.Errorf("edited card not eligible for sync: %+v", unsynced)
	}
}

func TestListByTag(t *testing.T) {
	s := newTestStore(t)

	seed := []models.Flashcard{
		{ID: "a", Kanji: "一", Meaning: "one", Tags: []string{"N5"}, CreatedAt: "2024-03-01T00:00:00Z"},
		{ID: "b", Kanji: "二", Meaning: "two", Tags: []string{"verbs", "N5"}, CreatedAt: "2024-02-01T00:00:00Z"},
		{ID: "c", Kanji: "三", Meaning: "three", Tags: []string{}, CreatedAt: "2024-01-01T00:00:00Z"},
	}
	for _, card := range seed {
		if _, err := s.Save(card); err != nil {
			t.Fatalf("save %s: %v", card.ID, err)
		}
	}

	got, err := s.ListByTag("N5")
	if err != nil {
		t.Fatalf("list by tag: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("tag filter = %+v, want [a b]", got)
	}

	none, err := s.ListByTag("N")
	if err != nil {
		t.Fatalf("list by tag: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("partial tag matched: %+v", none)
	}
}

func TestListByJlpt(t *testing.T) {
	s := newTestStore(t)

	seed := []models.Flashcard{
		{ID: "a", Kanji: "一", Meaning: "one", JLPT: "N5"},
		{ID: "b", Kanji: "論", Meaning: "theory", JLPT: "N2"},
	}
	for _, card := range seed {
		if _, err := s.Save(card); err != nil {
			t.Fatalf("save %s: %v", card.ID, err)
		}
	}

	got, err := s.ListByJlpt("N5")
	if err != nil {
		t.Fatalf("list by jlpt: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("jlpt filter = %+v, want [a]", got)
	}
}

func TestToleratesOlderRecords(t *testing.T) {
	storage := NewMemStorage()
	// an older record missing syncStatus, tags, and examples
	old := `[{"id":"legacy","kanji":"古","meaning":"old","createdAt":"2023-01-01T00:00:00Z"}]`
	if err := storage.Set(StorageKey, []byte(old)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := New(storage)
	cards, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("got %d cards, want 1", len(cards))
	}
	card := cards[0]
	if card.SyncStatus != models.SyncStatusLocal {
		t.Errorf("missing syncStatus defaulted to %q, want local", card.SyncStatus)
	}
	if card.Tags == nil || card.Examples == nil {
		t.Error("missing slices not defaulted to empty")
	}
}

func TestCorruptCollectionIsAnError(t *testing.T) {
	storage := NewMemStorage()
	if err := storage.Set(StorageKey, []byte("{not json")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := New(storage)
	if _, err := s.List(); err == nil {
		t.Fatal("expected error for corrupt collection")
	}
}
