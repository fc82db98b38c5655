package deck

import (
	"encoding/json"
	"fmt"
)

// CustomStudyName is the fixed name of the single custom study session deck.
const CustomStudyName = "Custom study session"

// MaxSize is the card limit used when a term should take every matching card.
const MaxSize = 99999

// UnsyncedUSN marks a record that no sync peer has acknowledged yet.
const UnsyncedUSN = -1

// Counter is a per-day counter stored as [day index, count].
type Counter [2]int

// Preview holds the timing used when previewing cards in a filtered deck that does
// not reschedule. Delay is in minutes; the rest are seconds until the card is shown
// again after each answer.
type Preview struct {
	Delay     int `json:"previewDelay"`
	AgainSecs int `json:"previewAgainSecs"`
	HardSecs  int `json:"previewHardSecs"`
	GoodSecs  int `json:"previewGoodSecs"`
}

// DefaultPreview returns the preview timing written when the option does not
// override it.
func DefaultPreview() Preview {
	return Preview{Delay: 0, AgainSecs: 60, HardSecs: 600, GoodSecs: 0}
}

// Filtered is the configuration record of a filtered (dynamic) deck. Its JSON
// form is the wire contract shared with the rest of the collection; fields tagged
// "-" are kept beside the record, never inside it.
type Filtered struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Terms []Term `json:"terms"`

	// Resched controls whether answers inside the deck update the normal schedule.
	Resched bool `json:"resched"`

	NewToday  Counter `json:"newToday"`
	RevToday  Counter `json:"revToday"`
	LrnToday  Counter `json:"lrnToday"`
	TimeToday Counter `json:"timeToday"`

	Preview

	BrowserCollapsed bool   `json:"browserCollapsed"`
	Collapsed        bool   `json:"collapsed"`
	Separate         bool   `json:"separate"`
	USN              int    `json:"usn"`
	Desc             string `json:"desc"`
	Dyn              int    `json:"dyn"`

	// Option is the study option that produced the record.
	Option string `json:"-"`
}

// NewFiltered returns a custom study session record with every creation default
// applied and no terms.
func NewFiltered() *Filtered {
	return &Filtered{
		Name:     CustomStudyName,
		Terms:    []Term{},
		Resched:  true,
		Preview:  DefaultPreview(),
		Separate: true,
		USN:      UnsyncedUSN,
		Desc:     "",
		Dyn:      1,
	}
}

// ResetCounters zeroes every per-day counter.
func (f *Filtered) ResetCounters() {
	f.NewToday = Counter{}
	f.RevToday = Counter{}
	f.LrnToday = Counter{}
	f.TimeToday = Counter{}
}

// Counters returns the four per-day counters in key order.
func (f *Filtered) Counters() [4]Counter {
	return [4]Counter{f.NewToday, f.RevToday, f.LrnToday, f.TimeToday}
}

// Validate checks the invariants every stored filtered deck must hold.
func (f *Filtered) Validate() error {
	if f.Dyn != 1 {
		return fmt.Errorf("filtered deck must have dyn=1, got %d", f.Dyn)
	}
	if len(f.Terms) == 0 {
		return fmt.Errorf("filtered deck must have at least one term")
	}
	for i, t := range f.Terms {
		if t.Query == "" {
			return fmt.Errorf("term %d: empty query", i)
		}
		if t.Limit < 0 {
			return fmt.Errorf("term %d: negative limit %d", i, t.Limit)
		}
		if !t.Order.Valid() {
			return fmt.Errorf("term %d: invalid order %d", i, int(t.Order))
		}
	}
	return nil
}

// Clone returns a deep copy of f.
func (f *Filtered) Clone() *Filtered {
	c := *f
	c.Terms = append([]Term(nil), f.Terms...)
	return &c
}

// Encode serializes f to its wire form.
func Encode(f *Filtered) ([]byte, error) {
	return json.Marshal(f)
}

// Decode parses the wire form written by Encode.
func Decode(data []byte) (*Filtered, error) {
	f := &Filtered{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, err
	}
	if f.Terms == nil {
		f.Terms = []Term{}
	}
	return f, nil
}
