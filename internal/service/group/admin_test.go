package group

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupman/internal/domain"
	"groupman/internal/service/auditutil"
	"groupman/internal/testutil"
)

func admin() domain.Caller { return domain.Caller{Name: "admin", Roles: []string{"ROLE_ADMIN"}} }

func TestAdmin_Add(t *testing.T) {
	ctx := context.Background()

	t.Run("creator_and_owners_as_given", func(t *testing.T) {
		f := newFixture(0)

		g, err := f.admin.Add(ctx, admin(), domain.CreateGroupRequest{
			Name:      "ops",
			CreatedBy: "molly",
			Owners:    []string{"anna"},
		})
		require.NoError(t, err)
		assert.Equal(t, "molly", g.CreatedBy)
		assert.Equal(t, []string{"anna"}, g.Owners)
		assert.Equal(t, domain.SourceInternal, g.Source)
		assert.True(t, f.audit.HasAction(auditutil.ActionAdminAdd, domain.AuditAllowed))
	})

	t.Run("creator_defaults_to_caller", func(t *testing.T) {
		f := newFixture(Unlimited)

		g, err := f.admin.Add(ctx, admin(), domain.CreateGroupRequest{Name: "ops"})
		require.NoError(t, err)
		assert.Equal(t, "admin", g.CreatedBy)
		assert.Equal(t, []string{}, g.Owners)
	})

	t.Run("directory_source_unsupported", func(t *testing.T) {
		f := newFixture(Unlimited)

		_, err := f.admin.Add(ctx, admin(), domain.CreateGroupRequest{Name: "ops", Source: domain.SourceDirectory})
		var unsupported *domain.UnsupportedError
		assert.ErrorAs(t, err, &unsupported)
	})
}

func TestAdmin_Modify(t *testing.T) {
	ctx := context.Background()
	seed := internalGroup("g1", "TestGroup1", "molly", []string{"molly"}, nil)

	t.Run("no_owner_check_and_creator_override", func(t *testing.T) {
		f := newFixture(Unlimited, seed)

		g, err := f.admin.Modify(ctx, admin(), "g1", domain.GroupInput{
			Name:      "Taken",
			CreatedBy: "anna",
			Owners:    []string{"anna"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Taken", g.Name)
		assert.Equal(t, "anna", g.CreatedBy)
		assert.Equal(t, []string{"anna"}, g.Owners)
		assert.Equal(t, fixedNow, *g.ModifiedAt)
	})

	t.Run("store_lookup_only", func(t *testing.T) {
		f := newFixture(Unlimited, seed)

		_, err := f.admin.Modify(ctx, admin(), "developers", domain.GroupInput{Name: "developers"})
		var notFound *domain.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("invalid_input_on_missing_id_not_found", func(t *testing.T) {
		f := newFixture(Unlimited, seed)

		_, err := f.admin.Modify(ctx, admin(), "missing", domain.GroupInput{Name: "x"})
		var notFound *domain.NotFoundError
		assert.ErrorAs(t, err, &notFound)

		_, err = f.admin.Modify(ctx, admin(), "g1", domain.GroupInput{Name: "x"})
		var validation *domain.ValidationError
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("directory_source_unsupported", func(t *testing.T) {
		f := newFixture(Unlimited, seed)

		_, err := f.admin.Modify(ctx, admin(), "g1", domain.GroupInput{Name: "x-y-z", Source: domain.SourceDirectory})
		var unsupported *domain.UnsupportedError
		assert.ErrorAs(t, err, &unsupported)
	})
}

func TestAdmin_Remove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(Unlimited, internalGroup("g1", "TestGroup1", "molly", []string{"molly"}, nil))

	require.NoError(t, f.admin.Remove(ctx, admin(), "g1"))
	require.NoError(t, f.admin.Remove(ctx, admin(), "g1"), "removal is idempotent")

	n, _ := f.store.Count(ctx)
	assert.Zero(t, n)
	assert.True(t, f.audit.HasAction(auditutil.ActionAdminRemove, domain.AuditAllowed))
}

func TestAdmin_RemoveStoreFailure(t *testing.T) {
	store := &testutil.MockGroupStore{
		FindByIDFn: func(context.Context, string) (*domain.Group, error) {
			return &domain.Group{ID: "g1"}, nil
		},
		DeleteFn: func(context.Context, *domain.Group) error { return errors.New("readonly database") },
	}
	f := newFixtureWith(nil, nil, Unlimited, store, testutil.NewStaticDirectory("Administrator"))

	err := f.admin.Remove(context.Background(), admin(), "g1")
	var up *domain.UpstreamError
	require.ErrorAs(t, err, &up)
	assert.True(t, f.audit.HasAction(auditutil.ActionAdminRemove, domain.AuditError))
}

func TestAdmin_ReadsAndAudit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(Unlimited, internalGroup("g1", "TestGroup1", "molly", []string{"molly"}, nil))

	all, err := f.admin.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"developers", "TestGroup1"}, names(all))

	g, err := f.admin.Get(ctx, "developers")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceDirectory, g.Source)

	byIDs, err := f.admin.GetByIDs(ctx, []string{"g1"})
	require.NoError(t, err)
	assert.Len(t, byIDs, 1)

	_, err = f.mutation.Create(ctx, molly(), domain.CreateGroupRequest{Name: "another"})
	require.NoError(t, err)

	entries, total, err := f.admin.Audit(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, auditutil.ActionCreate, entries[0].Action)
}
