// Package mongostore implements the record-store gateway on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"groupman/internal/domain"
)

const connectTimeout = 10 * time.Second

// Store keeps INTERNAL groups in one MongoDB collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

var _ domain.GroupStore = (*Store)(nil)

// Connect dials uri, verifies the primary is reachable and ensures the
// (createdBy, name) unique index on database.collection.
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &Store{client: client, collection: client.Database(database).Collection(collection)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdBy", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("createdBy_name"),
		},
		{Keys: bson.D{{Key: "owners", Value: 1}}, Options: options.Index().SetName("owners")},
		{Keys: bson.D{{Key: "members", Value: 1}}, Options: options.Index().SetName("members")},
	})
	if err != nil {
		return fmt.Errorf("create mongodb indexes: %w", err)
	}
	return nil
}

// FindByID returns the group with id or a NotFoundError.
func (s *Store) FindByID(ctx context.Context, id string) (*domain.Group, error) {
	var m groupModel
	err := s.collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound("group %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	g := m.toDomain()
	return &g, nil
}

// FindByIDs returns the groups whose id is in ids.
func (s *Store) FindByIDs(ctx context.Context, ids []string) ([]domain.Group, error) {
	ids = domain.NormalizeSet(ids)
	if len(ids) == 0 {
		return []domain.Group{}, nil
	}
	return s.find(ctx, idsFilter(ids))
}

// FindAll returns every stored group.
func (s *Store) FindAll(ctx context.Context) ([]domain.Group, error) {
	return s.find(ctx, bson.D{})
}

// FindByOwnerContains returns the groups user owns.
func (s *Store) FindByOwnerContains(ctx context.Context, user string) ([]domain.Group, error) {
	return s.find(ctx, ownerFilter(user))
}

// FindByMemberContains returns the groups user is a member of.
func (s *Store) FindByMemberContains(ctx context.Context, user string) ([]domain.Group, error) {
	return s.find(ctx, memberFilter(user))
}

// FindByOwnerOrMemberContains returns the groups user owns or is a member of.
func (s *Store) FindByOwnerOrMemberContains(ctx context.Context, user string) ([]domain.Group, error) {
	return s.find(ctx, ownerOrMemberFilter(user))
}

// CountOwned counts the groups user owns.
func (s *Store) CountOwned(ctx context.Context, user string) (int64, error) {
	return s.collection.CountDocuments(ctx, ownerFilter(user))
}

// CountMembership counts the groups user is a member of.
func (s *Store) CountMembership(ctx context.Context, user string) (int64, error) {
	return s.collection.CountDocuments(ctx, memberFilter(user))
}

// Count returns the total number of stored groups.
func (s *Store) Count(ctx context.Context) (int64, error) {
	return s.collection.EstimatedDocumentCount(ctx)
}

// Save inserts g when it has no id and otherwise replaces it, provided the
// stored version still equals g.Version.
func (s *Store) Save(ctx context.Context, g *domain.Group) (*domain.Group, error) {
	m := newGroupModel(g)

	if m.ID == "" {
		m.ID = domain.NewID()
		m.Version = 0
		if _, err := s.collection.InsertOne(ctx, m); err != nil {
			return nil, duplicateConflict(err, m)
		}
		saved := m.toDomain()
		return &saved, nil
	}

	res, err := s.collection.UpdateOne(ctx, versionFilter(m.ID, m.Version), m.updateDoc())
	if err != nil {
		return nil, duplicateConflict(err, m)
	}
	if res.MatchedCount == 0 {
		return nil, s.missedUpdate(ctx, m)
	}
	m.Version++
	saved := m.toDomain()
	return &saved, nil
}

// Delete removes g.
func (s *Store) Delete(ctx context.Context, g *domain.Group) error {
	_, err := s.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: g.ID}})
	return err
}

func (s *Store) missedUpdate(ctx context.Context, m *groupModel) error {
	var stored groupModel
	err := s.collection.FindOne(ctx, bson.D{{Key: "_id", Value: m.ID}}).Decode(&stored)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound("group %q not found", m.ID)
	}
	if err != nil {
		return err
	}
	return domain.ErrConflict("version mismatch for group %q: expected %d, stored %d", m.ID, m.Version, stored.Version)
}

func (s *Store) find(ctx context.Context, filter bson.D) ([]domain.Group, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "createdBy", Value: 1}})
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var models []groupModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, err
	}
	groups := make([]domain.Group, 0, len(models))
	for i := range models {
		groups = append(groups, models[i].toDomain())
	}
	domain.SortGroups(groups)
	return groups, nil
}

func duplicateConflict(err error, m *groupModel) error {
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrConflict("group %q already exists for %q", m.Name, m.CreatedBy)
	}
	return err
}
