package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"groupman/internal/domain"
)

// groupModel is the BSON document stored in the groups collection.
type groupModel struct {
	ID          string     `bson:"_id"`
	Version     int64      `bson:"version"`
	CreatedBy   string     `bson:"createdBy"`
	CreatedAt   *time.Time `bson:"createdAt,omitempty"`
	ModifiedAt  *time.Time `bson:"modifiedAt,omitempty"`
	Source      string     `bson:"source"`
	Name        string     `bson:"name"`
	Description string     `bson:"description,omitempty"`
	Members     []string   `bson:"members"`
	Owners      []string   `bson:"owners"`
}

func newGroupModel(g *domain.Group) *groupModel {
	n := *g
	n.Normalize()
	source := n.Source
	if source == "" {
		source = domain.SourceInternal
	}
	return &groupModel{
		ID:          n.ID,
		Version:     n.Version,
		CreatedBy:   n.CreatedBy,
		CreatedAt:   utc(n.CreatedAt),
		ModifiedAt:  utc(n.ModifiedAt),
		Source:      string(source),
		Name:        n.Name,
		Description: n.Description,
		Members:     n.Members,
		Owners:      n.Owners,
	}
}

// toDomain converts the document back into a group with normalized sets.
func (m *groupModel) toDomain() domain.Group {
	g := domain.Group{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		CreatedBy:   m.CreatedBy,
		CreatedAt:   utc(m.CreatedAt),
		ModifiedAt:  utc(m.ModifiedAt),
		Source:      domain.Source(m.Source),
		Version:     m.Version,
		Owners:      m.Owners,
		Members:     m.Members,
	}
	g.Normalize()
	return g
}

// updateDoc is the $set/$inc update that replaces every mutable field and
// bumps the version.
func (m *groupModel) updateDoc() bson.D {
	return bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "createdBy", Value: m.CreatedBy},
			{Key: "createdAt", Value: m.CreatedAt},
			{Key: "modifiedAt", Value: m.ModifiedAt},
			{Key: "source", Value: m.Source},
			{Key: "name", Value: m.Name},
			{Key: "description", Value: m.Description},
			{Key: "members", Value: m.Members},
			{Key: "owners", Value: m.Owners},
		}},
		{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
	}
}

func ownerFilter(user string) bson.D {
	return bson.D{{Key: "owners", Value: user}}
}

func memberFilter(user string) bson.D {
	return bson.D{{Key: "members", Value: user}}
}

func ownerOrMemberFilter(user string) bson.D {
	return bson.D{{Key: "$or", Value: bson.A{ownerFilter(user), memberFilter(user)}}}
}

func idsFilter(ids []string) bson.D {
	return bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
}

func versionFilter(id string, version int64) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: "version", Value: version}}
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC().Truncate(time.Millisecond)
	return &u
}
