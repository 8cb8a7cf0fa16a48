package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"groupman/internal/domain"
)

type auditModel struct {
	ID            string    `bson:"_id"`
	PrincipalName string    `bson:"principalName"`
	Action        string    `bson:"action"`
	GroupID       string    `bson:"groupId,omitempty"`
	Status        string    `bson:"status"`
	Detail        string    `bson:"detail,omitempty"`
	CreatedAt     time.Time `bson:"createdAt"`
}

// AuditLog stores mutation decisions in a MongoDB collection.
type AuditLog struct {
	collection *mongo.Collection
}

var _ domain.AuditRepository = (*AuditLog)(nil)

// AuditLog returns the audit log kept next to the groups collection, named
// "<collection>_audit", and ensures its createdAt index.
func (s *Store) AuditLog(ctx context.Context) (*AuditLog, error) {
	coll := s.collection.Database().Collection(s.collection.Name() + "_audit")
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("createdAt"),
	})
	if err != nil {
		return nil, fmt.Errorf("create mongodb audit index: %w", err)
	}
	return &AuditLog{collection: coll}, nil
}

// Insert records e, assigning an id and timestamp when they are unset.
func (a *AuditLog) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = domain.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := a.collection.InsertOne(ctx, auditModel{
		ID:            e.ID,
		PrincipalName: e.PrincipalName,
		Action:        e.Action,
		GroupID:       e.GroupID,
		Status:        e.Status,
		Detail:        e.Detail,
		CreatedAt:     e.CreatedAt.UTC().Truncate(time.Millisecond),
	})
	return err
}

// List returns one page of entries, newest first, and the total entry count.
func (a *AuditLog) List(ctx context.Context, page domain.PageRequest) ([]domain.AuditEntry, int64, error) {
	total, err := a.collection.CountDocuments(ctx, bson.D{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(page.Offset())).
		SetLimit(int64(page.Limit()))
	cursor, err := a.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, 0, err
	}
	var models []auditModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, 0, err
	}

	entries := make([]domain.AuditEntry, len(models))
	for i, m := range models {
		entries[i] = domain.AuditEntry{
			ID:            m.ID,
			PrincipalName: m.PrincipalName,
			Action:        m.Action,
			GroupID:       m.GroupID,
			Status:        m.Status,
			Detail:        m.Detail,
			CreatedAt:     m.CreatedAt.UTC(),
		}
	}
	return entries, total, nil
}
