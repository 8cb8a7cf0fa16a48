package api

import (
	"time"

	"groupman/internal/domain"
)

// Group is the wire form of a group.
type Group struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	CreatedBy   string        `json:"createdBy"`
	CreatedAt   *time.Time    `json:"createdAt,omitempty"`
	ModifiedAt  *time.Time    `json:"modifiedAt,omitempty"`
	Source      domain.Source `json:"source"`
	Version     int64         `json:"version"`
	Owners      []string      `json:"owners"`
	Members     []string      `json:"members"`
}

// GroupRequest is the body of create, full replace and admin writes.
type GroupRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	CreatedBy   string        `json:"createdBy"`
	Source      domain.Source `json:"source"`
	Owners      []string      `json:"owners"`
	Members     []string      `json:"members"`
	Version     *int64        `json:"version"`
}

// GroupPatchRequest is the body of a partial update. Absent fields are kept.
type GroupPatchRequest struct {
	Name        *string       `json:"name"`
	Description *string       `json:"description"`
	Source      domain.Source `json:"source"`
	Owners      *[]string     `json:"owners"`
	Members     *[]string     `json:"members"`
	Version     *int64        `json:"version"`
}

// StatusResponse reports a caller's counts and the quota.
type StatusResponse struct {
	OwnedCount      int64 `json:"ownedCount"`
	MembershipCount int64 `json:"membershipCount"`
	MaxOwnedGroups  int   `json:"maxOwnedGroups"`
}

// AuditEntry is the wire form of an audit record.
type AuditEntry struct {
	ID            string    `json:"id"`
	PrincipalName string    `json:"principalName"`
	Action        string    `json:"action"`
	GroupID       string    `json:"groupId,omitempty"`
	Status        string    `json:"status"`
	Detail        string    `json:"detail,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AuditPage is one page of the audit listing.
type AuditPage struct {
	Entries       []AuditEntry `json:"entries"`
	NextPageToken string       `json:"nextPageToken,omitempty"`
	Total         int64        `json:"total"`
}

// === Mapping helpers ===

func groupToAPI(g domain.Group) Group {
	g.Normalize()
	return Group{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		CreatedBy:   g.CreatedBy,
		CreatedAt:   g.CreatedAt,
		ModifiedAt:  g.ModifiedAt,
		Source:      g.Source,
		Version:     g.Version,
		Owners:      g.Owners,
		Members:     g.Members,
	}
}

func groupsToAPI(groups []domain.Group) []Group {
	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = groupToAPI(g)
	}
	return out
}

func (r GroupRequest) toCreate() domain.CreateGroupRequest {
	return domain.CreateGroupRequest{
		Name:        r.Name,
		Description: r.Description,
		CreatedBy:   r.CreatedBy,
		Source:      r.Source,
		Owners:      r.Owners,
		Members:     r.Members,
	}
}

func (r GroupRequest) toInput() domain.GroupInput {
	return domain.GroupInput{
		Name:        r.Name,
		Description: r.Description,
		CreatedBy:   r.CreatedBy,
		Source:      r.Source,
		Owners:      r.Owners,
		Members:     r.Members,
		Version:     r.Version,
	}
}

func (r GroupPatchRequest) toPatch() domain.GroupPatch {
	return domain.GroupPatch{
		Name:        r.Name,
		Description: r.Description,
		Source:      r.Source,
		Owners:      presentSet(r.Owners),
		Members:     presentSet(r.Members),
		Version:     r.Version,
	}
}

// presentSet keeps absent as nil and turns a present set into a non-nil slice.
func presentSet(v *[]string) []string {
	if v == nil {
		return nil
	}
	if *v == nil {
		return []string{}
	}
	return *v
}

func auditEntryToAPI(e domain.AuditEntry) AuditEntry {
	return AuditEntry{
		ID:            e.ID,
		PrincipalName: e.PrincipalName,
		Action:        e.Action,
		GroupID:       e.GroupID,
		Status:        e.Status,
		Detail:        e.Detail,
		CreatedAt:     e.CreatedAt,
	}
}
