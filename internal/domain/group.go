package domain

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// Source identifies the backing store a group lives in.
type Source string

const (
	// SourceInternal marks groups persisted in the mutable record store.
	SourceInternal Source = "INTERNAL"
	// SourceDirectory marks read-only groups projected from the external directory.
	SourceDirectory Source = "DIRECTORY"
)

// DirectoryVersion is the constant version reported for directory groups.
const DirectoryVersion int64 = 1

// Name and description limits for groups.
const (
	MinNameLength        = 3
	MaxNameLength        = 75
	MaxDescriptionLength = 255
)

// Group is the shape shared by record-store and directory groups.
// Source is the tag that decides mutability.
type Group struct {
	ID          string
	Name        string
	Description string
	CreatedBy   string
	CreatedAt   *time.Time
	ModifiedAt  *time.Time
	Source      Source
	Version     int64
	Owners      []string
	Members     []string
}

// IsDirectory reports whether the group is a read-only directory projection.
func (g *Group) IsDirectory() bool {
	return g.Source == SourceDirectory
}

// IsOwner reports whether user is in the group's owners set.
func (g *Group) IsOwner(user string) bool {
	return user != "" && slices.Contains(g.Owners, user)
}

// IsMember reports whether user is in the group's members set.
func (g *Group) IsMember(user string) bool {
	return user != "" && slices.Contains(g.Members, user)
}

// Normalize turns owners and members into sorted, duplicate-free, non-nil sets.
func (g *Group) Normalize() *Group {
	g.Owners = NormalizeSet(g.Owners)
	g.Members = NormalizeSet(g.Members)
	return g
}

// NormalizeSet returns a sorted copy of values without blanks or duplicates.
// The result is never nil.
func NormalizeSet(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// AddToSet returns values with v added when it is not yet present.
func AddToSet(values []string, v string) []string {
	if v == "" || slices.Contains(values, v) {
		return NormalizeSet(values)
	}
	return NormalizeSet(append(slices.Clone(values), v))
}

// CompareGroups orders groups by case-insensitive name, then case-insensitive createdBy.
func CompareGroups(a, b Group) int {
	if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
		return c
	}
	return strings.Compare(strings.ToLower(a.CreatedBy), strings.ToLower(b.CreatedBy))
}

// SortGroups sorts groups in place using CompareGroups.
func SortGroups(groups []Group) {
	slices.SortStableFunc(groups, CompareGroups)
}

// MergeGroups concatenates the given sequences, drops repeated (source, id)
// pairs and returns the result in canonical order. The result is never nil.
func MergeGroups(parts ...[]Group) []Group {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	out := make([]Group, 0, size)
	seen := make(map[string]struct{}, size)
	for _, p := range parts {
		for _, g := range p {
			key := string(g.Source) + "\x00" + g.ID
			if _, ok := seen[key]; ok && g.ID != "" {
				continue
			}
			seen[key] = struct{}{}
			g.Normalize()
			out = append(out, g)
		}
	}
	SortGroups(out)
	return out
}

// GroupIDs returns the ids of groups as a sorted set.
func GroupIDs(groups []Group) []string {
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	return NormalizeSet(ids)
}

// CreateGroupRequest holds the client-settable fields of a new group.
// Source is only inspected to reject directory groups.
type CreateGroupRequest struct {
	Name        string
	Description string
	CreatedBy   string
	Source      Source
	Owners      []string
	Members     []string
}

// Validate checks that the request is well-formed.
func (r *CreateGroupRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	return validateNameAndDescription(r.Name, r.Description)
}

// GroupInput carries a full replacement of a group's mutable fields.
// A non-nil Version is the version the caller expects to overwrite.
type GroupInput struct {
	Name        string
	Description string
	CreatedBy   string
	Source      Source
	Owners      []string
	Members     []string
	Version     *int64
}

// Validate checks that the input is well-formed.
func (in *GroupInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	return validateNameAndDescription(in.Name, in.Description)
}

// GroupPatch carries a partial update. Nil fields are left untouched.
type GroupPatch struct {
	Name        *string
	Description *string
	Source      Source
	Owners      []string
	Members     []string
	Version     *int64
}

// Validate checks the fields that are present.
func (p *GroupPatch) Validate() error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
		if err := validateName(name); err != nil {
			return err
		}
	}
	if p.Description != nil && utf8.RuneCountInString(*p.Description) > MaxDescriptionLength {
		return ErrValidation("description must not exceed %d characters", MaxDescriptionLength)
	}
	return nil
}

func validateNameAndDescription(name, description string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return ErrValidation("description must not exceed %d characters", MaxDescriptionLength)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return ErrValidation("group name is required")
	}
	n := utf8.RuneCountInString(name)
	if n < MinNameLength || n > MaxNameLength {
		return ErrValidation("group name must be between %d and %d characters", MinNameLength, MaxNameLength)
	}
	return nil
}

// Status summarizes a caller's group footprint.
type Status struct {
	OwnedCount      int64
	MembershipCount int64
	MaxOwnedGroups  int
}
