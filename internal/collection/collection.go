// Package collection is the ready handle over a sqlite collection. It answers
// scheduler counts and stores filtered decks, and it carries the collection's
// single logical write lock.
package collection

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hpungsan/cram/internal/config"
	"github.com/hpungsan/cram/internal/db"
	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/errors"
	"github.com/hpungsan/cram/internal/search"
)

// ErrClosed is reported by Ready once the collection has been closed.
var ErrClosed = stderrors.New("collection is closed")

// Collection is an opened collection. The zero value is not usable; build one
// with Open or New.
//
// Lock and Unlock guard the collection as a whole. The port methods (NewCount,
// ReviewCount, MatchingCount, Deck, FindDeckByName, Save) expect the caller to
// hold the lock; CreateDeck and AddCards take it themselves.
type Collection struct {
	mu     sync.Mutex
	db     *sql.DB
	owned  bool
	closed atomic.Bool

	now          func() time.Time
	rolloverHour int
}

// Option configures a Collection built by New.
type Option func(*Collection)

// WithClock replaces the wall clock used for day boundaries.
func WithClock(now func() time.Time) Option {
	return func(c *Collection) { c.now = now }
}

// WithRolloverHour sets the local hour at which a new study day begins.
func WithRolloverHour(hour int) Option {
	return func(c *Collection) { c.rolloverHour = hour }
}

// Open initializes the collection under baseDir and returns a ready handle that
// owns the database.
func Open(baseDir string, cfg *config.Config, opts ...Option) (*Collection, error) {
	database, err := db.Init(baseDir)
	if err != nil {
		return nil, err
	}
	db.ConfigurePool(database, cfg)

	if cfg != nil {
		opts = append([]Option{WithRolloverHour(cfg.DayRolloverHour)}, opts...)
	}
	c := New(database, opts...)
	c.owned = true
	return c, nil
}

// New wraps an already initialized database. Closing the collection does not
// close database.
func New(database *sql.DB, opts ...Option) *Collection {
	c := &Collection{
		db:           database,
		now:          time.Now,
		rolloverHour: config.DefaultConfig().DayRolloverHour,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lock acquires the collection write lock.
func (c *Collection) Lock() { c.mu.Lock() }

// Unlock releases the collection write lock.
func (c *Collection) Unlock() { c.mu.Unlock() }

// Ready reports whether the collection can serve queries.
func (c *Collection) Ready() error {
	if c == nil || c.db == nil || c.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Close marks the collection closed and releases the database if Open created it.
func (c *Collection) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.owned {
		return c.db.Close()
	}
	return nil
}

// DB returns the underlying database.
func (c *Collection) DB() *sql.DB {
	return c.db
}

// Now returns the collection's current time.
func (c *Collection) Now() time.Time {
	return c.now()
}

// Env returns the day state search queries are evaluated against.
func (c *Collection) Env(ctx context.Context) (search.Env, error) {
	crt, err := db.GetCreated(ctx, c.db)
	if err != nil {
		return search.Env{}, err
	}
	return DayEnv(crt, c.now(), c.rolloverHour), nil
}

// DayEnv computes the day index of now relative to the collection creation time
// crt, and the Unix time at which that day ends. Days start at rolloverHour local time.
func DayEnv(crt int64, now time.Time, rolloverHour int) search.Env {
	loc := now.Location()
	shift := time.Duration(rolloverHour) * time.Hour

	start := time.Unix(crt, 0).In(loc).Add(-shift)
	cur := now.Add(-shift)

	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	curDay := time.Date(cur.Year(), cur.Month(), cur.Day(), 0, 0, 0, 0, time.UTC)
	today := int(curDay.Sub(startDay).Hours() / 24)
	if today < 0 {
		today = 0
	}

	cutoff := time.Date(cur.Year(), cur.Month(), cur.Day()+1, rolloverHour, 0, 0, 0, loc)
	return search.Env{Today: today, DayCutoff: cutoff.Unix()}
}

// NewCount returns the number of new cards in the deck and its subdecks.
func (c *Collection) NewCount(ctx context.Context, deckID string) (int, error) {
	return c.deckCount(ctx, deckID, search.IsNew)
}

// ReviewCount returns the number of cards due for review today in the deck and
// its subdecks.
func (c *Collection) ReviewCount(ctx context.Context, deckID string) (int, error) {
	return c.deckCount(ctx, deckID, search.IsDue)
}

// MatchingCount returns the number of cards matching query.
func (c *Collection) MatchingCount(ctx context.Context, query string) (int, error) {
	if err := c.Ready(); err != nil {
		return 0, err
	}
	env, err := c.Env(ctx)
	if err != nil {
		return 0, err
	}
	where, args, err := search.Compile(query, env)
	if err != nil {
		return 0, err
	}
	return db.CountCards(ctx, c.db, where, args)
}

func (c *Collection) deckCount(ctx context.Context, deckID, term string) (int, error) {
	d, err := c.Deck(ctx, deckID)
	if err != nil {
		return 0, err
	}
	return c.MatchingCount(ctx, search.All(search.Deck(d.Name), term))
}

// Deck returns the deck with the given id.
func (c *Collection) Deck(ctx context.Context, id string) (*deck.Deck, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}
	return db.GetDeckByID(ctx, c.db, id)
}

// DeckByName returns the deck with the given name.
func (c *Collection) DeckByName(ctx context.Context, name string) (*deck.Deck, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}
	return db.GetDeckByName(ctx, c.db, deck.Normalize(name))
}

// FindDeckByName returns the filtered deck called name, or nil when no deck has
// that name.
func (c *Collection) FindDeckByName(ctx context.Context, name string) (*deck.Filtered, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}
	f, err := db.GetFilteredByName(ctx, c.db, deck.Normalize(name))
	if errors.Is(err, errors.ErrNotFound) {
		return nil, nil
	}
	return f, err
}

// Save writes a filtered deck and returns its id.
func (c *Collection) Save(ctx context.Context, cfg *deck.Filtered) (string, error) {
	if err := c.Ready(); err != nil {
		return "", err
	}
	return db.SaveFiltered(ctx, c.db, cfg)
}

// Decks lists every deck.
func (c *Collection) Decks(ctx context.Context) ([]deck.Deck, error) {
	if err := c.Ready(); err != nil {
		return nil, errors.NewSchedulerUnavailable(err)
	}
	return db.ListDecks(ctx, c.db)
}

// CreateDeck adds a regular deck. It acquires the collection lock.
func (c *Collection) CreateDeck(ctx context.Context, name string) (*deck.Deck, error) {
	if err := c.Ready(); err != nil {
		return nil, errors.NewSchedulerUnavailable(err)
	}

	c.Lock()
	defer c.Unlock()

	return createDeck(ctx, c.db, name)
}

func createDeck(ctx context.Context, q db.Querier, name string) (*deck.Deck, error) {
	name = strings.TrimSpace(name)
	norm := deck.Normalize(name)
	if norm == "" {
		return nil, errors.NewInvalidRequest("deck name is required")
	}
	if norm == deck.Normalize(deck.CustomStudyName) {
		return nil, errors.NewInvalidRequest("deck name is reserved for the custom study session")
	}

	id, err := db.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := time.Now().Unix()
	d := &deck.Deck{ID: id, Name: name, NameNorm: norm, CreatedAt: now, UpdatedAt: now}
	if err := db.InsertDeck(ctx, q, d); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewNameAlreadyExists(name)
		}
		return nil, err
	}
	return d, nil
}

// NewCard is a card to add together with its review history. DeckName selects
// the destination deck, which is created when missing.
type NewCard struct {
	DeckName string
	Card     deck.Card
	Reviews  []deck.Review
}

// AddCards stores cards and their reviews in one transaction and returns the
// number of cards added. It acquires the collection lock.
func (c *Collection) AddCards(ctx context.Context, cards []NewCard) (int, error) {
	if err := c.Ready(); err != nil {
		return 0, errors.NewSchedulerUnavailable(err)
	}

	c.Lock()
	defer c.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	deckIDs := make(map[string]string)
	for i := range cards {
		nc := &cards[i]
		norm := deck.Normalize(nc.DeckName)

		deckID, ok := deckIDs[norm]
		if !ok {
			deckID, err = resolveImportDeck(ctx, tx, nc.DeckName)
			if err != nil {
				return 0, err
			}
			deckIDs[norm] = deckID
		}

		card := nc.Card
		card.DeckID = deckID
		if card.ID == "" {
			if card.ID, err = db.NewID(); err != nil {
				return 0, errors.NewInternal(err)
			}
		}
		if err := db.InsertCard(ctx, tx, &card); err != nil {
			if err == db.ErrUniqueConstraint {
				return 0, errors.NewInvalidRequest(fmt.Sprintf("card %s already exists", card.ID))
			}
			return 0, err
		}
		for _, r := range nc.Reviews {
			r.CardID = card.ID
			if err := db.InsertReview(ctx, tx, r); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewInternal(err)
	}
	return len(cards), nil
}

func resolveImportDeck(ctx context.Context, q db.Querier, name string) (string, error) {
	d, err := db.GetDeckByName(ctx, q, deck.Normalize(name))
	if errors.Is(err, errors.ErrNotFound) {
		d, err = createDeck(ctx, q, name)
	}
	if err != nil {
		return "", err
	}
	if d.Dyn {
		return "", errors.NewInvalidRequest(fmt.Sprintf("cannot add cards to filtered deck %q", d.Name))
	}
	return d.ID, nil
}
