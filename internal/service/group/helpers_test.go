package group

import (
	"io"
	"log/slog"
	"time"

	"groupman/internal/domain"
	"groupman/internal/service/auditutil"
	"groupman/internal/testutil"
)

const localRole = "ROLE_LOCAL_USER"

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func molly() domain.Caller { return domain.Caller{Name: "molly", Roles: []string{"ROLE_USER"}} }
func anna() domain.Caller { return domain.Caller{Name: "anna", Roles: []string{"ROLE_USER", localRole}} }
func leopold() domain.Caller { return domain.Caller{Name: "leopold", Roles: []string{"ROLE_USER"}} }

// developers is the directory group used throughout the tests.
func developers() domain.Group {
	return domain.Group{Name: "developers", Members: []string{"anna", "hans", "leopold"}}
}

type fixture struct {
	store     *testutil.MemoryGroupStore
	directory *testutil.StaticDirectory
	audit     *testutil.MockAuditRepo
	fed       *Federation
	mutation  *MutationService
	status    *StatusService
	admin     *AdminService
}

func newFixture(maxOwned int, seed ...domain.Group) *fixture {
	store := testutil.NewMemoryGroupStore(seed...)
	dir := testutil.NewStaticDirectory("Administrator", developers())
	return newFixtureWith(store, dir, maxOwned, store, dir)
}

func newFixtureWith(memStore *testutil.MemoryGroupStore, memDir *testutil.StaticDirectory, maxOwned int,
	store domain.GroupStore, dir domain.Directory,
) *fixture {
	logger := discardLogger()
	audit := &testutil.MockAuditRepo{}
	rec := auditutil.NewRecorder(audit, logger)
	fed := NewFederation(store, dir, localRole, logger)

	mutation := NewMutationService(fed, store, maxOwned, rec, logger)
	mutation.now = func() time.Time { return fixedNow }
	admin := NewAdminService(fed, store, audit, rec, logger)
	admin.now = func() time.Time { return fixedNow }

	return &fixture{
		store:     memStore,
		directory: memDir,
		audit:     audit,
		fed:       fed,
		mutation:  mutation,
		status:    NewStatusService(store, dir, maxOwned, logger),
		admin:     admin,
	}
}

func internalGroup(id, name, createdBy string, owners, members []string) domain.Group {
	return domain.Group{
		ID:        id,
		Name:      name,
		CreatedBy: createdBy,
		Source:    domain.SourceInternal,
		Owners:    owners,
		Members:   members,
	}
}

func names(groups []domain.Group) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Name
	}
	return out
}
