package study

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/errors"
)

// fakeCollection is an in-memory Collection with canned counts. It records
// every call and whether the lock was held at the time.
type fakeCollection struct {
	decks   map[string]*deck.Deck
	counts  map[string]Counts
	session *deck.Filtered

	notReady    error
	countErr    error
	saveErr     error
	findErr     error
	locked      bool
	lockCount   int
	calls       []string
	unlockedUse int
	nextID      int
}

func newFake(base ...*deck.Deck) *fakeCollection {
	f := &fakeCollection{
		decks:  make(map[string]*deck.Deck),
		counts: make(map[string]Counts),
	}
	for _, d := range base {
		f.decks[d.ID] = d
	}
	return f
}

func (f *fakeCollection) setCounts(deckID string, newCount, review, marked int) {
	f.counts[deckID] = Counts{DeckID: deckID, New: newCount, Review: review, Marked: marked}
}

func (f *fakeCollection) record(call string) {
	f.calls = append(f.calls, call)
	if !f.locked {
		f.unlockedUse++
	}
}

func (f *fakeCollection) Lock() {
	if f.locked {
		panic("fakeCollection: lock already held")
	}
	f.locked = true
	f.lockCount++
}

func (f *fakeCollection) Unlock() {
	if !f.locked {
		panic("fakeCollection: unlock of unlocked collection")
	}
	f.locked = false
}

func (f *fakeCollection) Ready() error { return f.notReady }

func (f *fakeCollection) NewCount(_ context.Context, deckID string) (int, error) {
	f.record("NewCount")
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.counts[deckID].New, nil
}

func (f *fakeCollection) ReviewCount(_ context.Context, deckID string) (int, error) {
	f.record("ReviewCount")
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.counts[deckID].Review, nil
}

func (f *fakeCollection) MatchingCount(_ context.Context, query string) (int, error) {
	f.record("MatchingCount")
	if f.countErr != nil {
		return 0, f.countErr
	}
	for id, d := range f.decks {
		if query == fmt.Sprintf(`deck:"%s" tag:marked`, d.Name) {
			return f.counts[id].Marked, nil
		}
	}
	return 0, nil
}

func (f *fakeCollection) Deck(_ context.Context, id string) (*deck.Deck, error) {
	f.record("Deck")
	d, ok := f.decks[id]
	if !ok {
		return nil, errors.NewNotFound(id)
	}
	return d, nil
}

func (f *fakeCollection) FindDeckByName(_ context.Context, name string) (*deck.Filtered, error) {
	f.record("FindDeckByName")
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.session == nil || deck.Normalize(f.session.Name) != deck.Normalize(name) {
		return nil, nil
	}
	return f.session.Clone(), nil
}

func (f *fakeCollection) Save(_ context.Context, cfg *deck.Filtered) (string, error) {
	f.record("Save")
	if f.saveErr != nil {
		return "", f.saveErr
	}
	rec := cfg.Clone()
	if rec.ID == "" {
		if f.session != nil {
			return "", stderrors.New("fake: duplicate session")
		}
		f.nextID++
		rec.ID = fmt.Sprintf("session-%d", f.nextID)
	}
	f.session = rec
	return rec.ID, nil
}

func (f *fakeCollection) saves() int {
	n := 0
	for _, c := range f.calls {
		if c == "Save" {
			n++
		}
	}
	return n
}
