package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pickupsports/internal/domain"
)

type eventRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewEventRepository returns an EventRepository backed by the events collection of db.
func NewEventRepository(db *mongo.Database) domain.EventRepository {
	return &eventRepository{
		coll: db.Collection(eventsCollection),
		now:  time.Now,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	doc := newEventDocument(e)
	doc.Version = 1
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConflict
		}
		return err
	}
	e.Version = 1
	e.PlayerCount = len(e.Roster)
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	var doc eventDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startTime", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []eventDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	events := make([]*domain.Event, 0, len(docs))
	for _, d := range docs {
		events = append(events, d.toDomain())
	}
	return events, nil
}

func (r *eventRepository) UpdateRoster(ctx context.Context, id string, expectedVersion int64, roster []string) (*domain.Event, error) {
	roster = nonNil(roster)
	filter := bson.M{"_id": id, "version": expectedVersion}
	update := bson.M{
		"$set": bson.M{"roster": roster, "playerCount": len(roster), "updatedAt": r.now().UTC()},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc eventDocument
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrConcurrency
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *eventRepository) DeleteIfVersion(ctx context.Context, id string, expectedVersion int64) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "version": expectedVersion})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrConcurrency
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
