package ops

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hpungsan/cram/internal/collection"
	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/errors"
)

// ImportMode controls how bad lines are handled during import.
type ImportMode string

const (
	ImportModeError ImportMode = "error" // import nothing if any line is bad (atomic)
	ImportModeSkip  ImportMode = "skip"  // import the good lines, report the bad ones
)

// Card states accepted in import files.
const (
	StateNew       = "new"
	StateLearn     = "learn"
	StateReview    = "review"
	StateSuspended = "suspended"
)

const secondsPerDay = 86400

// maxImportLine bounds a single JSONL line.
const maxImportLine = 1 << 20

// ImportInput contains parameters for the ImportCards operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the ImportCards operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError represents a line that could not be imported.
type ImportError struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CardRecord is one line of a card import file. Times are relative to the moment
// of import so fixtures stay valid.
type CardRecord struct {
	Deck         string         `json:"deck"`
	Tags         []string       `json:"tags,omitempty"`
	State        string         `json:"state"`
	DueIn        int            `json:"due_in,omitempty"`
	Interval     int            `json:"ivl,omitempty"`
	Lapses       int            `json:"lapses,omitempty"`
	AddedDaysAgo int            `json:"added_days_ago,omitempty"`
	Reviews      []ReviewRecord `json:"reviews,omitempty"`
}

// ReviewRecord is one past answer of an imported card.
type ReviewRecord struct {
	Ease    int `json:"ease"`
	DaysAgo int `json:"days_ago"`
}

// ImportCards adds cards from a JSONL file. Missing decks are created.
func ImportCards(ctx context.Context, rt *Runtime, input ImportInput) (*ImportOutput, error) {
	if input.Path == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeSkip {
		return nil, errors.NewInvalidRequest("mode must be one of: error, skip")
	}

	if err := ValidateImportPath(input.Path, rt.ImportsDir(), rt.Config); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if _, ok := err.(*errors.CramError); ok {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	if err := rt.Coll.Ready(); err != nil {
		return nil, errors.NewSchedulerUnavailable(err)
	}
	env, err := rt.Coll.Env(ctx)
	if err != nil {
		return nil, err
	}
	now := rt.Coll.Now().Unix()

	records, importErrors := parseCardFile(file)

	if input.Mode == ImportModeError && len(importErrors) > 0 {
		return &ImportOutput{Imported: 0, Skipped: 0, Errors: importErrors}, nil
	}

	cards := make([]collection.NewCard, 0, len(records))
	for i, rec := range records {
		cards = append(cards, rec.record.toNewCard(env.Today, now, i))
	}

	imported := 0
	if len(cards) > 0 {
		imported, err = rt.Coll.AddCards(ctx, cards)
		if err != nil {
			return nil, err
		}
	}

	if importErrors == nil {
		importErrors = []ImportError{}
	}
	return &ImportOutput{
		Imported: imported,
		Skipped:  len(importErrors),
		Errors:   importErrors,
	}, nil
}

type parsedRecord struct {
	line   int
	record CardRecord
}

// parseCardFile parses and validates every line, collecting per-line errors.
func parseCardFile(r io.Reader) ([]parsedRecord, []ImportError) {
	var records []parsedRecord
	var importErrors []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var record CardRecord
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&record); err != nil {
			importErrors = append(importErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		if err := record.validate(); err != nil {
			importErrors = append(importErrors, ImportError{
				Line:    lineNum,
				Code:    "INVALID_RECORD",
				Message: err.Error(),
			})
			continue
		}

		records = append(records, parsedRecord{line: lineNum, record: record})
	}

	if err := scanner.Err(); err != nil {
		importErrors = append(importErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, importErrors
}

func (r *CardRecord) validate() error {
	if deck.Normalize(r.Deck) == "" {
		return fmt.Errorf("deck is required")
	}
	if deck.Normalize(r.Deck) == deck.Normalize(deck.CustomStudyName) {
		return fmt.Errorf("cannot import into %q", deck.CustomStudyName)
	}
	switch r.State {
	case "", StateNew, StateLearn, StateReview, StateSuspended:
	default:
		return fmt.Errorf("unknown state %q (want new, learn, review or suspended)", r.State)
	}
	for _, t := range r.Tags {
		if strings.ContainsAny(strings.TrimSpace(t), " \t\r\n\"") {
			return fmt.Errorf("tag %q must not contain whitespace or quotes", t)
		}
	}
	if r.Interval < 0 || r.Lapses < 0 || r.AddedDaysAgo < 0 {
		return fmt.Errorf("ivl, lapses and added_days_ago must not be negative")
	}
	for i, rv := range r.Reviews {
		if rv.Ease < 1 || rv.Ease > 4 {
			return fmt.Errorf("review %d: ease must be between 1 and 4", i)
		}
		if rv.DaysAgo < 0 {
			return fmt.Errorf("review %d: days_ago must not be negative", i)
		}
	}
	return nil
}

// toNewCard converts relative times against today (day index) and now (Unix
// seconds). New cards are positioned in file order.
func (r *CardRecord) toNewCard(today int, now int64, position int) collection.NewCard {
	card := deck.Card{
		Tags:     r.Tags,
		Interval: r.Interval,
		Lapses:   r.Lapses,
		AddedAt:  now - int64(r.AddedDaysAgo)*secondsPerDay,
	}

	switch r.State {
	case StateLearn:
		card.Queue = deck.QueueLearn
		card.Due = today + r.DueIn
	case StateReview:
		card.Queue = deck.QueueReview
		card.Due = today + r.DueIn
	case StateSuspended:
		card.Queue = deck.QueueSuspended
		card.Due = today + r.DueIn
	default:
		card.Queue = deck.QueueNew
		card.Due = position
	}

	reviews := make([]deck.Review, 0, len(r.Reviews))
	for _, rv := range r.Reviews {
		reviews = append(reviews, deck.Review{
			Ease:       rv.Ease,
			ReviewedAt: now - int64(rv.DaysAgo)*secondsPerDay,
		})
	}

	return collection.NewCard{DeckName: r.Deck, Card: card, Reviews: reviews}
}
