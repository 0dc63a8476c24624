package flashcards

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kanjifinder/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const cardColumns = `id, user_id, kanji, meaning, readings, jlpt, notes, examples, mnemonic, tags, image_reference, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (models.Flashcard, error) {
	var (
		card         models.Flashcard
		readingsJSON string
		examplesJSON string
		tagsJSON     string
		notes        sql.NullString
		mnemonic     sql.NullString
		imageRef     sql.NullString
	)

	err := row.Scan(
		&card.ID, &card.UserID, &card.Kanji, &card.Meaning, &readingsJSON,
		&card.JLPT, &notes, &examplesJSON, &mnemonic, &tagsJSON, &imageRef,
		&card.CreatedAt,
	)
	if err != nil {
		return models.Flashcard{}, err
	}

	card.Notes = notes.String
	card.Mnemonic = mnemonic.String
	card.ImageReference = imageRef.String
	card.SyncStatus = models.SyncStatusSynced

	_ = json.Unmarshal([]byte(readingsJSON), &card.Readings)
	_ = json.Unmarshal([]byte(examplesJSON), &card.Examples)
	_ = json.Unmarshal([]byte(tagsJSON), &card.Tags)
	if card.Examples == nil {
		card.Examples = []models.Example{}
	}
	if card.Tags == nil {
		card.Tags = []string{}
	}
	return card, nil
}

func marshalColumns(card models.Flashcard) (readings, examples, tags string, err error) {
	if card.Examples == nil {
		card.Examples = []models.Example{}
	}
	if card.Tags == nil {
		card.Tags = []string{}
	}

	r, err := json.Marshal(card.Readings)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal readings: %w", err)
	}
	e, err := json.Marshal(card.Examples)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal examples: %w", err)
	}
	t, err := json.Marshal(card.Tags)
	if err != nil {
		return "", "", "", fmt.Errorf("marshal tags: %w", err)
	}
	return string(r), string(e), string(t), nil
}

// Create inserts one card. The id is globally unique; a duplicate id fails
// regardless of which user owns the existing row.
func (r *Repo) Create(ctx context.Context, card models.Flashcard) error {
	if card.CreatedAt == "" {
		card.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if card.JLPT == "" {
		card.JLPT = "Unknown"
	}

	readings, examples, tags, err := marshalColumns(card)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO flashcards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, card.ID, card.UserID, card.Kanji, card.Meaning, readings, card.JLPT,
		card.Notes, examples, card.Mnemonic, tags, card.ImageReference, card.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert flashcard: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of a user's card. CreatedAt is never
// touched. Returns false when the user has no card with that id.
func (r *Repo) Update(ctx context.Context, card models.Flashcard) (bool, error) {
	readings, examples, tags, err := marshalColumns(card)
	if err != nil {
		return false, err
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE flashcards
		SET kanji = ?, meaning = ?, readings = ?, jlpt = ?, notes = ?,
			examples = ?, mnemonic = ?, tags = ?, image_reference = ?
		WHERE id = ? AND user_id = ?
	`, card.Kanji, card.Meaning, readings, card.JLPT, card.Notes,
		examples, card.Mnemonic, tags, card.ImageReference, card.ID, card.UserID)
	if err != nil {
		return false, fmt.Errorf("update flashcard: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Get returns a user's card by id, or nil when that user has no such card.
// Another user's card with the same id is invisible here.
func (r *Repo) Get(ctx context.Context, userID, id string) (*models.Flashcard, error) {
	card, err := scanCard(r.DB.QueryRowContext(ctx, `
		SELECT `+cardColumns+` FROM flashcards
		WHERE id = ? AND user_id = ?
	`, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get flashcard: %w", err)
	}
	return &card, nil
}

func (r *Repo) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM flashcards
		WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete flashcard: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) listWhere(ctx context.Context, where string, args ...any) ([]models.Flashcard, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+cardColumns+` FROM flashcards
		WHERE `+where+`
		ORDER BY created_at DESC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}
	defer rows.Close()

	out := make([]models.Flashcard, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flashcard row: %w", err)
		}
		out = append(out, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]models.Flashcard, error) {
	return r.listWhere(ctx, `user_id = ?`, userID)
}

func (r *Repo) ListByJlpt(ctx context.Context, userID, level string) ([]models.Flashcard, error) {
	return r.listWhere(ctx, `user_id = ? AND jlpt = ?`, userID, level)
}

// ListByTag matches the quoted tag inside the stored JSON array text, so the
// match is exact on the tag string, not a substring of a longer tag.
func (r *Repo) ListByTag(ctx context.Context, userID, tag string) ([]models.Flashcard, error) {
	b, err := json.Marshal(tag)
	if err != nil {
		return nil, fmt.Errorf("marshal tag: %w", err)
	}
	return r.listWhere(ctx, `user_id = ? AND tags LIKE ?`, userID, "%"+string(b)+"%")
}

// BulkCreate inserts every card, continuing past individual failures
// (duplicate ids included). Returns the subset that was actually inserted.
func (r *Repo) BulkCreate(ctx context.Context, userID string, cards []models.Flashcard) ([]models.Flashcard, error) {
	inserted := make([]models.Flashcard, 0, len(cards))
	var lastErr error

	for _, card := range cards {
		card.UserID = userID
		if err := r.Create(ctx, card); err != nil {
			lastErr = err
			continue
		}
		card.SyncStatus = models.SyncStatusSynced
		inserted = append(inserted, card)
	}

	if len(inserted) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return inserted, nil
}
