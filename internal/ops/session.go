package ops

import (
	"context"

	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/study"
)

// SessionOutput contains the result of the Session operation.
type SessionOutput struct {
	Exists bool           `json:"exists"`
	Option study.Option   `json:"option,omitempty"`
	Config *deck.Filtered `json:"config,omitempty"`
}

// Session returns the current custom study session, if any.
func Session(ctx context.Context, rt *Runtime) (*SessionOutput, error) {
	f, err := rt.Study.Session(ctx)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return &SessionOutput{Exists: false}, nil
	}
	return &SessionOutput{
		Exists: true,
		Option: study.Option(f.Option),
		Config: f,
	}, nil
}
