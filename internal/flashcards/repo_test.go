package flashcards

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"kanjifinder/pkg/models"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile("../../docs/schema.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return NewRepo(db)
}

func testCard(id, userID string) models.Flashcard {
	return models.Flashcard{
		ID:      id,
		UserID:  userID,
		Kanji:   "海",
		Meaning: "sea, ocean",
		Readings: models.Readings{
			OnYomi:  []string{"カイ"},
			KunYomi: []string{"うみ"},
		},
		JLPT:      "N5",
		Tags:      []string{"N5", "nature"},
		CreatedAt: "2024-01-01T00:00:00Z",
	}
}

func TestCreateAndGetScopedByUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testCard("c1", "user-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(ctx, "user-1", "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("card not found for its owner")
	}
	if got.Kanji != "海" || got.JLPT != "N5" {
		t.Errorf("fields not preserved: %+v", got)
	}
	if len(got.Readings.KunYomi) != 1 || got.Readings.KunYomi[0] != "うみ" {
		t.Errorf("readings not round-tripped: %+v", got.Readings)
	}

	// other users see not-found, not forbidden
	other, err := repo.Get(ctx, "user-2", "c1")
	if err != nil {
		t.Fatalf("cross-user get: %v", err)
	}
	if other != nil {
		t.Errorf("cross-user get returned %+v, want nil", other)
	}
}

func TestDuplicateIDIsGlobal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testCard("dup", "user-1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	// same id under a DIFFERENT user still collides
	if err := repo.Create(ctx, testCard("dup", "user-2")); err == nil {
		t.Fatal("expected duplicate id to fail across users")
	}
}

func TestUpdateKeepsCreatedAt(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testCard("c1", "user-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	card := testCard("c1", "user-1")
	card.Notes = "updated"
	card.CreatedAt = "2030-12-31T00:00:00Z" // must be ignored
	ok, err := repo.Update(ctx, card)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !ok {
		t.Fatal("update reported not found")
	}

	got, _ := repo.Get(ctx, "user-1", "c1")
	if got.Notes != "updated" {
		t.Errorf("notes = %q", got.Notes)
	}
	if got.CreatedAt != "2024-01-01T00:00:00Z" {
		t.Errorf("createdAt was overwritten: %q", got.CreatedAt)
	}

	ok, err = repo.Update(ctx, testCard("missing", "user-1"))
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if ok {
		t.Error("update of missing card reported true")
	}
}

func TestDeleteScoped(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testCard("c1", "user-1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	ok, err := repo.Delete(ctx, "user-2", "c1")
	if err != nil {
		t.Fatalf("cross-user delete: %v", err)
	}
	if ok {
		t.Error("cross-user delete succeeded")
	}

	ok, err = repo.Delete(ctx, "user-1", "c1")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !ok {
		t.Error("owner delete reported not found")
	}
}

func TestListFiltersAndOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seed := []models.Flashcard{
		{ID: "a", UserID: "u", Kanji: "一", Meaning: "one", JLPT: "N5", Tags: []string{"N5"}, CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "b", UserID: "u", Kanji: "二", Meaning: "two", JLPT: "N5", Tags: []string{"verbs", "N5"}, CreatedAt: "2024-02-01T00:00:00Z"},
		{ID: "c", UserID: "u", Kanji: "論", Meaning: "theory", JLPT: "N2", Tags: []string{}, CreatedAt: "2024-03-01T00:00:00Z"},
		{ID: "d", UserID: "someone-else", Kanji: "三", Meaning: "three", JLPT: "N5", Tags: []string{"N5"}, CreatedAt: "2024-04-01T00:00:00Z"},
	}
	for _, card := range seed {
		if err := repo.Create(ctx, card); err != nil {
			t.Fatalf("create %s: %v", card.ID, err)
		}
	}

	all, err := repo.ListByUser(ctx, "u")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[1].ID != "b" || all[2].ID != "a" {
		t.Errorf("list order = %+v, want [c b a]", ids(all))
	}

	n5, err := repo.ListByJlpt(ctx, "u", "N5")
	if err != nil {
		t.Fatalf("list by jlpt: %v", err)
	}
	if len(n5) != 2 || n5[0].ID != "b" || n5[1].ID != "a" {
		t.Errorf("jlpt filter = %v, want [b a]", ids(n5))
	}

	tagged, err := repo.ListByTag(ctx, "u", "N5")
	if err != nil {
		t.Fatalf("list by tag: %v", err)
	}
	if len(tagged) != 2 || tagged[0].ID != "b" || tagged[1].ID != "a" {
		t.Errorf("tag filter = %v, want [b a]", ids(tagged))
	}

	// exact tag match: "N5" must not match a "N" query
	none, err := repo.ListByTag(ctx, "u", "N")
	if err != nil {
		t.Fatalf("list by tag: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("partial tag matched: %v", ids(none))
	}
}

func TestBulkCreateContinuesOnError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// "b" already exists server-side (a retry after a lost markSynced)
	if err := repo.Create(ctx, testCard("b", "u")); err != nil {
		t.Fatalf("pre-insert: %v", err)
	}

	batch := []models.Flashcard{
		testCard("a", ""),
		testCard("b", ""),
		testCard("c", ""),
	}
	inserted, err := repo.BulkCreate(ctx, "u", batch)
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}
	if len(inserted) != 2 || inserted[0].ID != "a" || inserted[1].ID != "c" {
		t.Errorf("inserted = %v, want [a c]", ids(inserted))
	}

	all, _ := repo.ListByUser(ctx, "u")
	if len(all) != 3 {
		t.Errorf("store has %d cards, want 3", len(all))
	}
}

func TestBulkCreateAllFail(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, testCard("a", "u")); err != nil {
		t.Fatalf("pre-insert: %v", err)
	}

	if _, err := repo.BulkCreate(ctx, "u", []models.Flashcard{testCard("a", "")}); err == nil {
		t.Fatal("expected error when nothing could be inserted")
	}
}

func ids(cards []models.Flashcard) []string {
	out := make([]string, len(cards))
	for i, card := range cards {
		out[i] = card.ID
	}
	return out
}
