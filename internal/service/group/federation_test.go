package group

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupman/internal/domain"
	"groupman/internal/testutil"
)

func TestFederation_ResolveByID(t *testing.T) {
	ctx := context.Background()

	t.Run("store_hit_skips_directory", func(t *testing.T) {
		f := newFixture(Unlimited, internalGroup("g1", "TestGroup1", "molly", []string{"molly"}, nil))

		g, err := f.fed.ResolveByID(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, "TestGroup1", g.Name)
		assert.Equal(t, domain.SourceInternal, g.Source)
		assert.Equal(t, []string{}, g.Members)
		assert.Zero(t, f.directory.CallCount())
	})

	t.Run("directory_fallback", func(t *testing.T) {
		f := newFixture(Unlimited)

		g, err := f.fed.ResolveByID(ctx, "developers")
		require.NoError(t, err)
		assert.Equal(t, domain.SourceDirectory, g.Source)
		assert.Equal(t, []string{"Administrator"}, g.Owners)
		assert.Equal(t, []string{"anna", "hans", "leopold"}, g.Members)
		assert.Equal(t, domain.DirectoryVersion, g.Version)
	})

	t.Run("missing_everywhere", func(t *testing.T) {
		f := newFixture(Unlimited)

		_, err := f.fed.ResolveByID(ctx, "nothing")
		var notFound *domain.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("idempotent", func(t *testing.T) {
		f := newFixture(Unlimited, internalGroup("g1", "TestGroup1", "molly", []string{"molly"}, []string{"anna"}))

		first, err := f.fed.ResolveByID(ctx, "g1")
		require.NoError(t, err)
		second, err := f.fed.ResolveByID(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("directory_failure_is_not_a_miss", func(t *testing.T) {
		store := testutil.NewMemoryGroupStore()
		dir := &testutil.MockDirectory{
			FindByNameFn: func(context.Context, string) (*domain.Group, error) {
				return nil, errors.New("connection refused")
			},
		}
		f := newFixtureWith(store, nil, Unlimited, store, dir)

		_, err := f.fed.ResolveByID(ctx, "developers")
		var up *domain.UpstreamError
		require.ErrorAs(t, err, &up)
		assert.Equal(t, domain.UpstreamDirectory, up.Source)
		var notFound *domain.NotFoundError
		assert.False(t, errors.As(err, &notFound))
	})

	t.Run("store_failure_skips_directory", func(t *testing.T) {
		store := &testutil.MockGroupStore{
			FindByIDFn: func(context.Context, string) (*domain.Group, error) {
				return nil, errors.New("database is locked")
			},
		}
		dir := &testutil.MockDirectory{}
		f := newFixtureWith(nil, nil, Unlimited, store, dir)

		_, err := f.fed.ResolveByID(ctx, "g1")
		var up *domain.UpstreamError
		require.ErrorAs(t, err, &up)
		assert.Equal(t, domain.UpstreamStore, up.Source)
	})
}

func TestFederation_ResolveByIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(Unlimited,
		internalGroup("g1", "zeta", "molly", []string{"molly"}, nil),
		internalGroup("g2", "alpha", "molly", []string{"molly"}, nil),
	)

	groups, err := f.fed.ResolveByIDs(ctx, []string{"g1", "developers", "g2", "g1", "unknown"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "developers", "zeta"}, names(groups))

	calls := f.directory.CallCount()
	empty, err := f.fed.ResolveByIDs(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
	assert.Equal(t, calls, f.directory.CallCount(), "no directory call for empty input")
}

func TestFederation_ListAll_Interleaves(t *testing.T) {
	f := newFixture(Unlimited,
		internalGroup("g1", "Zoo", "molly", []string{"molly"}, nil),
		internalGroup("g2", "Admins", "anna", []string{"anna"}, nil),
		internalGroup("g3", "admins", "Molly", []string{"Molly"}, nil),
	)

	groups, err := f.fed.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 4)
	assert.Equal(t, []string{"Admins", "admins", "developers", "Zoo"}, names(groups))
	assert.Equal(t, "anna", groups[0].CreatedBy)
	for i := 1; i < len(groups); i++ {
		assert.LessOrEqual(t, domain.CompareGroups(groups[i-1], groups[i]), 0)
	}
}

func TestFederation_ListOwnedBy_StoreOnly(t *testing.T) {
	f := newFixture(Unlimited,
		internalGroup("g1", "mine", "molly", []string{"molly"}, nil),
		internalGroup("g2", "theirs", "anna", []string{"anna"}, []string{"molly"}),
	)

	groups, err := f.fed.ListOwnedBy(context.Background(), "molly")
	require.NoError(t, err)
	assert.Equal(t, []string{"mine"}, names(groups))
	assert.Zero(t, f.directory.CallCount())
}

func TestFederation_ListUsableBy_Gating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(Unlimited,
		internalGroup("g1", "local", "molly", []string{"molly"}, []string{"leopold"}),
	)

	without, err := f.fed.ListUsableBy(ctx, "leopold", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"local"}, names(without))
	assert.Zero(t, f.directory.CallCount())

	with, err := f.fed.ListUsableBy(ctx, "leopold", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"developers", "local"}, names(with))
}

func TestFederation_ListMembershipOf(t *testing.T) {
	ctx := context.Background()
	f := newFixture(Unlimited,
		internalGroup("g1", "owned", "anna", []string{"anna"}, nil),
		internalGroup("g2", "joined", "molly", []string{"molly"}, []string{"anna"}),
	)

	groups, err := f.fed.ListMembershipOf(ctx, "anna", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"developers", "joined"}, names(groups))

	ids, err := f.fed.MembershipIDs(ctx, "anna", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"developers", "g2"}, ids)

	local, err := f.fed.ListMembershipOf(ctx, "anna", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"joined"}, names(local))
}

func TestFederation_FanOutFailure(t *testing.T) {
	store := testutil.NewMemoryGroupStore()
	dir := &testutil.MockDirectory{
		FindAllFn: func(context.Context) ([]domain.Group, error) { return nil, errors.New("timeout") },
	}
	f := newFixtureWith(store, nil, Unlimited, store, dir)

	_, err := f.fed.ListAll(context.Background())
	var up *domain.UpstreamError
	require.ErrorAs(t, err, &up)
	assert.Equal(t, domain.UpstreamDirectory, up.Source)
	assert.Equal(t, "find all", up.Op)
}

func TestFederation_AllowsDirectory(t *testing.T) {
	logger := discardLogger()

	gated := NewFederation(nil, nil, localRole, logger)
	assert.True(t, gated.AllowsDirectory(anna()))
	assert.False(t, gated.AllowsDirectory(leopold()))

	open := NewFederation(nil, nil, "", logger)
	assert.True(t, open.AllowsDirectory(leopold()))
}
