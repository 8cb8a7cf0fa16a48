// Package testutil provides in-memory and mock implementations of the domain
// gateways for tests across the codebase.
package testutil

import (
	"context"
	"slices"
	"sync"

	"groupman/internal/domain"
)

// === Record Store ===

// MemoryGroupStore is an in-memory domain.GroupStore with the same
// uniqueness and version semantics as the SQL store.
type MemoryGroupStore struct {
	mu     sync.Mutex
	groups map[string]domain.Group
}

var _ domain.GroupStore = (*MemoryGroupStore)(nil)

// NewMemoryGroupStore creates a store holding a copy of each seed group.
// Seeds without an id get one assigned.
func NewMemoryGroupStore(seed ...domain.Group) *MemoryGroupStore {
	s := &MemoryGroupStore{groups: make(map[string]domain.Group)}
	for _, g := range seed {
		if g.ID == "" {
			g.ID = domain.NewID()
		}
		if g.Source == "" {
			g.Source = domain.SourceInternal
		}
		s.groups[g.ID] = clone(g)
	}
	return s
}

func (s *MemoryGroupStore) FindByID(_ context.Context, id string) (*domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return nil, domain.ErrNotFound("group %q not found", id)
	}
	out := clone(g)
	return &out, nil
}

func (s *MemoryGroupStore) FindByIDs(_ context.Context, ids []string) ([]domain.Group, error) {
	return s.filter(func(g domain.Group) bool { return slices.Contains(ids, g.ID) }), nil
}

func (s *MemoryGroupStore) FindAll(context.Context) ([]domain.Group, error) {
	return s.filter(func(domain.Group) bool { return true }), nil
}

func (s *MemoryGroupStore) FindByOwnerContains(_ context.Context, user string) ([]domain.Group, error) {
	return s.filter(func(g domain.Group) bool { return g.IsOwner(user) }), nil
}

func (s *MemoryGroupStore) FindByMemberContains(_ context.Context, user string) ([]domain.Group, error) {
	return s.filter(func(g domain.Group) bool { return g.IsMember(user) }), nil
}

func (s *MemoryGroupStore) FindByOwnerOrMemberContains(_ context.Context, user string) ([]domain.Group, error) {
	return s.filter(func(g domain.Group) bool { return g.IsOwner(user) || g.IsMember(user) }), nil
}

func (s *MemoryGroupStore) CountOwned(ctx context.Context, user string) (int64, error) {
	groups, _ := s.FindByOwnerContains(ctx, user)
	return int64(len(groups)), nil
}

func (s *MemoryGroupStore) CountMembership(ctx context.Context, user string) (int64, error) {
	groups, _ := s.FindByMemberContains(ctx, user)
	return int64(len(groups)), nil
}

func (s *MemoryGroupStore) Count(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.groups)), nil
}

func (s *MemoryGroupStore) Save(_ context.Context, g *domain.Group) (*domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := clone(*g)
	if saved.Source == "" {
		saved.Source = domain.SourceInternal
	}
	for id, other := range s.groups {
		if id != saved.ID && other.CreatedBy == saved.CreatedBy && other.Name == saved.Name {
			return nil, domain.ErrConflict("group %q already exists for %q", saved.Name, saved.CreatedBy)
		}
	}

	if saved.ID == "" {
		saved.ID = domain.NewID()
		saved.Version = 0
	} else {
		stored, ok := s.groups[saved.ID]
		if !ok {
			return nil, domain.ErrNotFound("group %q not found", saved.ID)
		}
		if stored.Version != saved.Version {
			return nil, domain.ErrConflict("version mismatch for group %q: expected %d, stored %d",
				saved.ID, saved.Version, stored.Version)
		}
		saved.Version++
	}
	s.groups[saved.ID] = saved
	out := clone(saved)
	return &out, nil
}

func (s *MemoryGroupStore) Delete(_ context.Context, g *domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groups, g.ID)
	return nil
}

func (s *MemoryGroupStore) filter(keep func(domain.Group) bool) []domain.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Group, 0)
	for _, g := range s.groups {
		if keep(g) {
			out = append(out, clone(g))
		}
	}
	domain.SortGroups(out)
	return out
}

// === Directory ===

// StaticDirectory is a domain.Directory over a fixed set of groups. Groups
// are forced to DIRECTORY source and version 1, owned by AdminName.
type StaticDirectory struct {
	AdminName string
	groups    []domain.Group

	mu    sync.Mutex
	Calls int // number of gateway calls served
}

var _ domain.Directory = (*StaticDirectory)(nil)

// NewStaticDirectory creates a directory holding groups, keyed by name.
func NewStaticDirectory(adminName string, groups ...domain.Group) *StaticDirectory {
	d := &StaticDirectory{AdminName: adminName}
	for _, g := range groups {
		g.ID = g.Name
		g.CreatedBy = adminName
		g.Owners = []string{adminName}
		g.Source = domain.SourceDirectory
		g.Version = domain.DirectoryVersion
		d.groups = append(d.groups, clone(g))
	}
	return d
}

// CallCount returns the number of calls served so far.
func (d *StaticDirectory) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Calls
}

func (d *StaticDirectory) FindAll(context.Context) ([]domain.Group, error) {
	return d.filter(func(domain.Group) bool { return true }), nil
}

func (d *StaticDirectory) FindByName(_ context.Context, name string) (*domain.Group, error) {
	groups := d.filter(func(g domain.Group) bool { return g.Name == name })
	if len(groups) == 0 {
		return nil, domain.ErrNotFound("directory group %q not found", name)
	}
	return &groups[0], nil
}

func (d *StaticDirectory) FindByNames(_ context.Context, names []string) ([]domain.Group, error) {
	return d.filter(func(g domain.Group) bool { return slices.Contains(names, g.Name) }), nil
}

func (d *StaticDirectory) FindByMemberContains(_ context.Context, user string) ([]domain.Group, error) {
	return d.filter(func(g domain.Group) bool { return g.IsMember(user) }), nil
}

func (d *StaticDirectory) CountMembership(ctx context.Context, user string) (int64, error) {
	groups, _ := d.FindByMemberContains(ctx, user)
	return int64(len(groups)), nil
}

func (d *StaticDirectory) Count(ctx context.Context) (int64, error) {
	groups, _ := d.FindAll(ctx)
	return int64(len(groups)), nil
}

func (d *StaticDirectory) filter(keep func(domain.Group) bool) []domain.Group {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls++
	out := make([]domain.Group, 0)
	for _, g := range d.groups {
		if keep(g) {
			out = append(out, clone(g))
		}
	}
	domain.SortGroups(out)
	return out
}

func clone(g domain.Group) domain.Group {
	g.Owners = domain.NormalizeSet(g.Owners)
	g.Members = domain.NormalizeSet(g.Members)
	return g
}

// === Failure injection ===

// MockGroupStore implements domain.GroupStore with overridable functions.
// Calls to unset functions panic.
type MockGroupStore struct {
	FindByIDFn                    func(ctx context.Context, id string) (*domain.Group, error)
	FindByIDsFn                   func(ctx context.Context, ids []string) ([]domain.Group, error)
	FindAllFn                     func(ctx context.Context) ([]domain.Group, error)
	FindByOwnerContainsFn         func(ctx context.Context, user string) ([]domain.Group, error)
	FindByMemberContainsFn        func(ctx context.Context, user string) ([]domain.Group, error)
	FindByOwnerOrMemberContainsFn func(ctx context.Context, user string) ([]domain.Group, error)
	CountOwnedFn                  func(ctx context.Context, user string) (int64, error)
	CountMembershipFn             func(ctx context.Context, user string) (int64, error)
	CountFn                       func(ctx context.Context) (int64, error)
	SaveFn                        func(ctx context.Context, g *domain.Group) (*domain.Group, error)
	DeleteFn                      func(ctx context.Context, g *domain.Group) error
}

var _ domain.GroupStore = (*MockGroupStore)(nil)

func (m *MockGroupStore) FindByID(ctx context.Context, id string) (*domain.Group, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	panic("unexpected call to MockGroupStore.FindByID")
}

func (m *MockGroupStore) FindByIDs(ctx context.Context, ids []string) ([]domain.Group, error) {
	if m.FindByIDsFn != nil {
		return m.FindByIDsFn(ctx, ids)
	}
	panic("unexpected call to MockGroupStore.FindByIDs")
}

func (m *MockGroupStore) FindAll(ctx context.Context) ([]domain.Group, error) {
	if m.FindAllFn != nil {
		return m.FindAllFn(ctx)
	}
	panic("unexpected call to MockGroupStore.FindAll")
}

func (m *MockGroupStore) FindByOwnerContains(ctx context.Context, user string) ([]domain.Group, error) {
	if m.FindByOwnerContainsFn != nil {
		return m.FindByOwnerContainsFn(ctx, user)
	}
	panic("unexpected call to MockGroupStore.FindByOwnerContains")
}

func (m *MockGroupStore) FindByMemberContains(ctx context.Context, user string) ([]domain.Group, error) {
	if m.FindByMemberContainsFn != nil {
		return m.FindByMemberContainsFn(ctx, user)
	}
	panic("unexpected call to MockGroupStore.FindByMemberContains")
}

func (m *MockGroupStore) FindByOwnerOrMemberContains(ctx context.Context, user string) ([]domain.Group, error) {
	if m.FindByOwnerOrMemberContainsFn != nil {
		return m.FindByOwnerOrMemberContainsFn(ctx, user)
	}
	panic("unexpected call to MockGroupStore.FindByOwnerOrMemberContains")
}

func (m *MockGroupStore) CountOwned(ctx context.Context, user string) (int64, error) {
	if m.CountOwnedFn != nil {
		return m.CountOwnedFn(ctx, user)
	}
	panic("unexpected call to MockGroupStore.CountOwned")
}

func (m *MockGroupStore) CountMembership(ctx context.Context, user string) (int64, error) {
	if m.CountMembershipFn != nil {
		return m.CountMembershipFn(ctx, user)
	}
	panic("unexpected call to MockGroupStore.CountMembership")
}

func (m *MockGroupStore) Count(ctx context.Context) (int64, error) {
	if m.CountFn != nil {
		return m.CountFn(ctx)
	}
	panic("unexpected call to MockGroupStore.Count")
}

func (m *MockGroupStore) Save(ctx context.Context, g *domain.Group) (*domain.Group, error) {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, g)
	}
	panic("unexpected call to MockGroupStore.Save")
}

func (m *MockGroupStore) Delete(ctx context.Context, g *domain.Group) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, g)
	}
	panic("unexpected call to MockGroupStore.Delete")
}

// MockDirectory implements domain.Directory with overridable functions.
// Calls to unset functions panic.
type MockDirectory struct {
	FindAllFn              func(ctx context.Context) ([]domain.Group, error)
	FindByNameFn           func(ctx context.Context, name string) (*domain.Group, error)
	FindByNamesFn          func(ctx context.Context, names []string) ([]domain.Group, error)
	FindByMemberContainsFn func(ctx context.Context, user string) ([]domain.Group, error)
	CountMembershipFn      func(ctx context.Context, user string) (int64, error)
	CountFn                func(ctx context.Context) (int64, error)
}

var _ domain.Directory = (*MockDirectory)(nil)

func (m *MockDirectory) FindAll(ctx context.Context) ([]domain.Group, error) {
	if m.FindAllFn != nil {
		return m.FindAllFn(ctx)
	}
	panic("unexpected call to MockDirectory.FindAll")
}

func (m *MockDirectory) FindByName(ctx context.Context, name string) (*domain.Group, error) {
	if m.FindByNameFn != nil {
		return m.FindByNameFn(ctx, name)
	}
	panic("unexpected call to MockDirectory.FindByName")
}

func (m *MockDirectory) FindByNames(ctx context.Context, names []string) ([]domain.Group, error) {
	if m.FindByNamesFn != nil {
		return m.FindByNamesFn(ctx, names)
	}
	panic("unexpected call to MockDirectory.FindByNames")
}

func (m *MockDirectory) FindByMemberContains(ctx context.Context, user string) ([]domain.Group, error) {
	if m.FindByMemberContainsFn != nil {
		return m.FindByMemberContainsFn(ctx, user)
	}
	panic("unexpected call to MockDirectory.FindByMemberContains")
}

func (m *MockDirectory) CountMembership(ctx context.Context, user string) (int64, error) {
	if m.CountMembershipFn != nil {
		return m.CountMembershipFn(ctx, user)
	}
	panic("unexpected call to MockDirectory.CountMembership")
}

func (m *MockDirectory) Count(ctx context.Context) (int64, error) {
	if m.CountFn != nil {
		return m.CountFn(ctx)
	}
	panic("unexpected call to MockDirectory.Count")
}

// === Audit Repository ===

// MockAuditRepo implements domain.AuditRepository and collects inserted entries.
type MockAuditRepo struct {
	InsertFn func(ctx context.Context, e *domain.AuditEntry) error
	ListFn   func(ctx context.Context, page domain.PageRequest) ([]domain.AuditEntry, int64, error)

	mu      sync.Mutex
	Entries []*domain.AuditEntry
}

var _ domain.AuditRepository = (*MockAuditRepo)(nil)

// Insert records e unless InsertFn fails.
func (m *MockAuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if m.InsertFn != nil {
		if err := m.InsertFn(ctx, e); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, e)
	return nil
}

// List returns the collected entries newest first unless ListFn is set.
func (m *MockAuditRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.AuditEntry, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, page)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditEntry, 0, len(m.Entries))
	for i := len(m.Entries) - 1; i >= 0; i-- {
		out = append(out, *m.Entries[i])
	}
	return out, int64(len(out)), nil
}

// LastEntry returns the last collected entry, or nil if none.
func (m *MockAuditRepo) LastEntry() *domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Entries) == 0 {
		return nil
	}
	return m.Entries[len(m.Entries)-1]
}

// HasAction reports whether any collected entry has action and status.
func (m *MockAuditRepo) HasAction(action, status string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.Action == action && e.Status == status {
			return true
		}
	}
	return false
}
