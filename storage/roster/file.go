package rosterdb

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/jferreira/maitrenotifie/core/roster"
)

// fileRepository persists the roster as one JSON document at a fixed
// path. There is no versioning and no partial write: the whole
// aggregate is rewritten on every save, last writer wins.
type fileRepository struct {
	mu   sync.Mutex
	path string
}

var _ roster.Repository = (*fileRepository)(nil)

func NewFileRepository(path string) roster.Repository {
	return &fileRepository{path: path}
}

func (repo *fileRepository) LoadRoster(_ context.Context) (roster.Roster, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	data, err := os.ReadFile(repo.path)
	if os.IsNotExist(err) {
		return roster.Seed(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading roster file")
	}

	var r roster.Roster
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "decoding roster file")
	}
	return r, nil
}

func (repo *fileRepository) SaveRoster(_ context.Context, r roster.Roster) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encoding roster")
	}
	if err := os.MkdirAll(filepath.Dir(repo.path), 0o755); err != nil {
		return errors.Wrap(err, "creating roster dir")
	}
	return errors.Wrap(os.WriteFile(repo.path, data, 0o644), "writing roster file")
}
