package ops

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/hpungsan/cram/internal/collection"
	"github.com/hpungsan/cram/internal/config"
	"github.com/hpungsan/cram/internal/deck"
	"github.com/hpungsan/cram/internal/errors"
	"github.com/hpungsan/cram/internal/study"
)

// Runtime bundles what every operation needs: the opened collection, the study
// service built on it, the configuration and the data directory.
type Runtime struct {
	Coll    *collection.Collection
	Study   *study.Service
	Config  *config.Config
	BaseDir string
}

// NewRuntime wires a study service over coll using cfg.
func NewRuntime(coll *collection.Collection, cfg *config.Config, baseDir string) *Runtime {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	builder := study.NewBuilder(study.DefaultsFromConfig(cfg))
	return &Runtime{
		Coll:    coll,
		Study:   study.NewService(coll, builder, study.CounterPolicy(cfg.CounterPolicy)),
		Config:  cfg,
		BaseDir: baseDir,
	}
}

// ImportsDir is the default directory card files are imported from.
func (rt *Runtime) ImportsDir() string {
	return filepath.Join(rt.BaseDir, "imports")
}

// DeckAddress identifies a base deck by id or by name.
type DeckAddress struct {
	ByID bool
	ID   string
	Name string // as given, trimmed
}

// ValidateDeckAddress validates deck addressing parameters.
// Rules:
// - Must specify exactly one of id or name
// - If both are provided → ErrInvalidRequest
func ValidateDeckAddress(id, name string) (*DeckAddress, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)

	if id != "" && name != "" {
		return nil, errors.NewInvalidRequest("specify either deck_id or deck, not both")
	}
	if id == "" && name == "" {
		return nil, errors.NewInvalidRequest("must specify either deck_id or deck")
	}
	if id != "" {
		return &DeckAddress{ByID: true, ID: id}, nil
	}
	if deck.Normalize(name) == "" {
		return nil, errors.NewInvalidRequest("deck name must not be empty")
	}
	return &DeckAddress{Name: name}, nil
}

// resolveDeckID turns an address into a deck id.
func resolveDeckID(ctx context.Context, rt *Runtime, id, name string) (string, error) {
	addr, err := ValidateDeckAddress(id, name)
	if err != nil {
		return "", err
	}
	if addr.ByID {
		return addr.ID, nil
	}
	if err := rt.Coll.Ready(); err != nil {
		return "", errors.NewSchedulerUnavailable(err)
	}
	d, err := rt.Coll.DeckByName(ctx, addr.Name)
	if err != nil {
		return "", err
	}
	return d.ID, nil
}
