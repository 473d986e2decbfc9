package rosterdb

import (
	"context"
	"sync"

	"github.com/jferreira/maitrenotifie/core/roster"
)

// dummyRepository is an in-memory store for tests. Unlike the durable
// stores, it holds exactly what it was given: pass roster.Seed() to
// mimic a fresh install or nothing for an empty roster.
type dummyRepository struct {
	sync.RWMutex
	classes roster.Roster
	saves   int
}

var _ roster.Repository = (*dummyRepository)(nil)

func NewDummyRepository(initial ...roster.Class) *dummyRepository {
	return &dummyRepository{classes: roster.Roster(initial)}
}

func (repo *dummyRepository) LoadRoster(_ context.Context) (roster.Roster, error) {
	repo.RLock()
	defer repo.RUnlock()
	return append(roster.Roster(nil), repo.classes...), nil
}

func (repo *dummyRepository) SaveRoster(_ context.Context, r roster.Roster) error {
	repo.Lock()
	defer repo.Unlock()
	repo.classes = append(roster.Roster(nil), r...)
	repo.saves++
	return nil
}

// Saves reports how many write-throughs happened.
func (repo *dummyRepository) Saves() int {
	repo.RLock()
	defer repo.RUnlock()
	return repo.saves
}
