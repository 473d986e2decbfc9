package rosterdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jferreira/maitrenotifie/core/roster"
)

func Test_fileRepository_seedsOnFirstLoad(t *testing.T) {
	repo := NewFileRepository(filepath.Join(t.TempDir(), "data", "roster.json"))

	classes, err := repo.LoadRoster(context.Background())
	require.NoError(t, err)
	assert.Equal(t, roster.Seed(), classes)
}

func Test_fileRepository_roundTrip(t *testing.T) {
	tests := []struct {
		name    string
		classes roster.Roster
	}{
		{"regular roster", roster.Roster{
			{ID: "1", Name: "Piano", Students: []roster.Student{
				{ID: "s1", Name: "Léa", ParentEmail: "l@p.com", ParentPhone: "0601020304"},
			}},
		}},
		{"class without students", roster.Roster{
			{ID: "1", Name: "Chant", Students: []roster.Student{}},
		}},
		{"empty roster", roster.Roster{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "roster.json")
			repo := NewFileRepository(path)

			require.NoError(t, repo.SaveRoster(context.Background(), tt.classes))
			got, err := repo.LoadRoster(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.classes, got)
		})
	}
}

func Test_fileRepository_lastWriterWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.json")
	repo := NewFileRepository(path)

	first := roster.Roster{{ID: "1", Name: "Piano", Students: []roster.Student{}}}
	second := roster.Roster{{ID: "2", Name: "Violon", Students: []roster.Student{}}}
	require.NoError(t, repo.SaveRoster(context.Background(), first))
	require.NoError(t, repo.SaveRoster(context.Background(), second))

	got, err := repo.LoadRoster(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func Test_fileRepository_corruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileRepository(path).LoadRoster(context.Background())
	assert.Error(t, err)
}

func Test_dummyRepository(t *testing.T) {
	repo := NewDummyRepository()

	classes, err := repo.LoadRoster(context.Background())
	require.NoError(t, err)
	assert.Empty(t, classes)

	saved := roster.Roster{{ID: "1", Name: "Piano", Students: []roster.Student{}}}
	require.NoError(t, repo.SaveRoster(context.Background(), saved))
	got, err := repo.LoadRoster(context.Background())
	require.NoError(t, err)
	assert.Equal(t, saved, got)
	assert.Equal(t, 1, repo.Saves())
}
