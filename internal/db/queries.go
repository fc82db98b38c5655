package db

import (
	"context"
	"crypto/rand"
	"database/sql"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/errors"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.CramError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// NewID generates a new ULID.
func NewID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// GetCreated returns the collection creation time (Unix seconds).
func GetCreated(ctx context.Context, q Querier) (int64, error) {
	var crt int64
	if err := q.QueryRowContext(ctx, "SELECT crt FROM col WHERE id = 1").Scan(&crt); err != nil {
		return 0, errors.NewInternal(err)
	}
	return crt, nil
}

// SetCreated overwrites the collection creation time.
func SetCreated(ctx context.Context, q Querier, crt int64) error {
	if _, err := q.ExecContext(ctx, "UPDATE col SET crt = ? WHERE id = 1", crt); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// InsertDeck stores a new regular deck.
func InsertDeck(ctx context.Context, q Querier, d *deck.Deck) error {
	query := `
		INSERT INTO decks (id, name, name_norm, dyn, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
	`
	_, err := q.ExecContext(ctx, query, d.ID, d.Name, d.NameNorm, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// GetDeckByID retrieves a deck by its ULID.
func GetDeckByID(ctx context.Context, q Querier, id string) (*deck.Deck, error) {
	query := `
		SELECT id, name, name_norm, dyn, created_at, updated_at
		FROM decks
		WHERE id = ?
	`
	d, err := scanDeck(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return d, nil
}

// GetDeckByName retrieves a deck by normalized name.
func GetDeckByName(ctx context.Context, q Querier, nameNorm string) (*deck.Deck, error) {
	query := `
		SELECT id, name, name_norm, dyn, created_at, updated_at
		FROM decks
		WHERE name_norm = ?
	`
	d, err := scanDeck(q.QueryRowContext(ctx, query, nameNorm))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(nameNorm)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return d, nil
}

// ListDecks returns every deck ordered by name.
func ListDecks(ctx context.Context, q Querier) ([]deck.Deck, error) {
	query := `
		SELECT id, name, name_norm, dyn, created_at, updated_at
		FROM decks
		ORDER BY name_norm
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	decks := make([]deck.Deck, 0)
	for rows.Next() {
		var (
			d   deck.Deck
			dyn int
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.NameNorm, &dyn, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		d.Dyn = dyn == 1
		decks = append(decks, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return decks, nil
}

// GetFilteredByName retrieves a filtered deck configuration by normalized name.
// A regular deck holding the name yields SESSION_CONFLICT.
func GetFilteredByName(ctx context.Context, q Querier, nameNorm string) (*deck.Filtered, error) {
	query := `
		SELECT id, name, dyn, config_json, study_option
		FROM decks
		WHERE name_norm = ?
	`
	var (
		id, name   string
		dyn        int
		configJSON sql.NullString
		option     sql.NullString
	)
	err := q.QueryRowContext(ctx, query, nameNorm).Scan(&id, &name, &dyn, &configJSON, &option)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(nameNorm)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if dyn != 1 || !configJSON.Valid {
		return nil, errors.NewSessionConflict(name)
	}

	f, err := deck.Decode([]byte(configJSON.String))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	f.ID = id
	f.Name = name
	f.Option = option.String
	return f, nil
}

// SaveFiltered inserts f when it has no ID yet, otherwise overwrites the stored
// configuration of the filtered deck with that ID. Returns the deck ID.
func SaveFiltered(ctx context.Context, q Querier, f *deck.Filtered) (string, error) {
	if err := f.Validate(); err != nil {
		return "", errors.NewInvalidRequest(err.Error())
	}

	now := time.Now().Unix()
	rec := f.Clone()

	if rec.ID == "" {
		id, err := NewID()
		if err != nil {
			return "", errors.NewInternal(err)
		}
		rec.ID = id

		data, err := deck.Encode(rec)
		if err != nil {
			return "", errors.NewInternal(err)
		}

		query := `
			INSERT INTO decks (id, name, name_norm, dyn, config_json, study_option, created_at, updated_at)
			VALUES (?, ?, ?, 1, ?, ?, ?, ?)
		`
		_, err = q.ExecContext(ctx, query,
			rec.ID, rec.Name, deck.Normalize(rec.Name), string(data), toNullString(rec.Option), now, now)
		if err != nil {
			if isUniqueConstraintError(err) {
				return "", errors.NewNameAlreadyExists(rec.Name)
			}
			return "", errors.NewInternal(err)
		}
		return rec.ID, nil
	}

	data, err := deck.Encode(rec)
	if err != nil {
		return "", errors.NewInternal(err)
	}

	query := `
		UPDATE decks
		SET name = ?, name_norm = ?, config_json = ?, study_option = ?, updated_at = ?
		WHERE id = ? AND dyn = 1
	`
	result, err := q.ExecContext(ctx, query,
		rec.Name, deck.Normalize(rec.Name), string(data), toNullString(rec.Option), now, rec.ID)
	if err != nil {
		if isUniqueConstraintError(err) {
			return "", errors.NewNameAlreadyExists(rec.Name)
		}
		return "", errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return "", errors.NewNotFound(rec.ID)
	}

	return rec.ID, nil
}

// InsertCard stores a card.
func InsertCard(ctx context.Context, q Querier, c *deck.Card) error {
	query := `
		INSERT INTO cards (id, deck_id, tags, queue, due, ivl, lapses, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		c.ID, c.DeckID, strings.Join(deck.NormalizeTags(c.Tags), " "),
		c.Queue, c.Due, c.Interval, c.Lapses, c.AddedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// InsertReview appends an answer to the review log.
func InsertReview(ctx context.Context, q Querier, r deck.Review) error {
	query := `INSERT INTO revlog (card_id, ease, reviewed_at) VALUES (?, ?, ?)`
	if _, err := q.ExecContext(ctx, query, r.CardID, r.Ease, r.ReviewedAt); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// CountCards counts cards matching a predicate produced by search.Compile.
func CountCards(ctx context.Context, q Querier, where string, args []any) (int, error) {
	query := "SELECT COUNT(*) FROM cards c WHERE " + where

	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// scanDeck scans a single row into a Deck struct.
func scanDeck(row *sql.Row) (*deck.Deck, error) {
	var (
		d   deck.Deck
		dyn int
	)
	if err := row.Scan(&d.ID, &d.Name, &d.NameNorm, &dyn, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Dyn = dyn == 1
	return &d, nil
}

// toNullString converts an empty string to NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
