package mongostore

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupman/internal/domain"
)

// openTestStore connects to MONGO_URI with a throwaway database that is
// dropped when the test ends. Tests are skipped without MONGO_URI.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping MongoDB integration test")
	}

	database := "groupman_test_" + strings.ReplaceAll(domain.NewID(), "-", "")
	s, err := Connect(context.Background(), uri, database, "groups")
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx := context.Background()
		_ = s.collection.Database().Drop(ctx)
		_ = s.Close(ctx)
	})
	return s
}

func newGroup(name, createdBy string) *domain.Group {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Group{
		Name:       name,
		CreatedBy:  createdBy,
		CreatedAt:  &now,
		ModifiedAt: &now,
		Owners:     []string{createdBy},
		Members:    []string{"anna"},
	}
}

func TestStore_SaveInsertsAndUpdates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g, err := s.Save(ctx, newGroup("TestGroup1", "molly"))
	require.NoError(t, err)
	require.NotEmpty(t, g.ID)
	assert.Equal(t, int64(0), g.Version)
	assert.Equal(t, domain.SourceInternal, g.Source)

	g.Description = "updated"
	updated, err := s.Save(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Version)

	stored, err := s.FindByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated", stored.Description)
	assert.Equal(t, int64(1), stored.Version)
	assert.Equal(t, []string{"anna"}, stored.Members)

	n, err := s.CountOwned(ctx, "molly")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_SaveStaleVersionConflicts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	g, err := s.Save(ctx, newGroup("TestGroup1", "molly"))
	require.NoError(t, err)
	_, err = s.Save(ctx, g)
	require.NoError(t, err)

	stale := *g
	stale.Version = 0
	_, err = s.Save(ctx, &stale)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Message, "version mismatch")
}

func TestStore_SaveMissingIDNotFound(t *testing.T) {
	s := openTestStore(t)

	g := newGroup("ghost", "molly")
	g.ID = "does-not-exist"
	_, err := s.Save(context.Background(), g)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestStore_SaveDuplicateNameConflicts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, newGroup("TestGroup1", "molly"))
	require.NoError(t, err)

	_, err = s.Save(ctx, newGroup("TestGroup1", "molly"))
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Message, "already exists")

	_, err = s.Save(ctx, newGroup("TestGroup1", "anna"))
	require.NoError(t, err, "names are unique per creator")
}

func TestStore_FindByIDMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.FindByID(context.Background(), "missing")
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
