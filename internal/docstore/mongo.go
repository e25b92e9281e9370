package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const updatedAtField = "_updated_at"

// Mongo maps each collection onto a MongoDB collection of the same name,
// with the document id stored in _id.
type Mongo struct {
	db   *mongo.Database
	subs *feedSubscriptions
}

func NewMongo(database *mongo.Database, feed ChangeFeed) *Mongo {
	m := &Mongo{db: database}
	m.subs = newFeedSubscriptions(feed, m.List)
	return m
}

func (m *Mongo) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw bson.M
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return Document{}, err
	}
	return fromBSON(raw), nil
}

func (m *Mongo) MergeWrite(ctx context.Context, collection, id string, fields map[string]any) error {
	if id == "" {
		return fmt.Errorf("merge %s: empty id", collection)
	}
	_, err := m.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id}, mergeUpdate(fields), options.Update().SetUpsert(true))
	if err != nil {
		return err
	}
	m.subs.changed(collection, id)
	return nil
}

func (m *Mongo) QueryEqual(ctx context.Context, collection, field string, value any) ([]Document, error) {
	return m.find(ctx, collection, bson.M{field: value})
}

func (m *Mongo) List(ctx context.Context, collection string) ([]Document, error) {
	return m.find(ctx, collection, bson.M{})
}

func (m *Mongo) Append(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	if err := m.MergeWrite(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Mongo) Delete(ctx context.Context, collection, id string) error {
	if _, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return err
	}
	m.subs.changed(collection, id)
	return nil
}

func (m *Mongo) Subscribe(collection string, pred Predicate, onChange func([]Document)) (Unsubscribe, error) {
	return m.subs.subscribe(collection, pred, onChange)
}

func (m *Mongo) find(ctx context.Context, collection string, query bson.M) ([]Document, error) {
	cur, err := m.db.Collection(collection).Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		out = append(out, fromBSON(raw))
	}
	return out, cur.Err()
}

func mergeUpdate(fields map[string]any) bson.M {
	plain, stamped := splitServerFields(fields)
	stamp := bson.M{updatedAtField: true}
	for _, k := range stamped {
		stamp[k] = true
	}
	update := bson.M{"$currentDate": stamp}
	if len(plain) > 0 {
		set := bson.M{}
		for k, v := range plain {
			set[k] = v
		}
		update["$set"] = set
	}
	return update
}

func fromBSON(raw bson.M) Document {
	doc := Document{Data: make(map[string]any, len(raw))}
	for k, v := range raw {
		switch k {
		case "_id":
			doc.ID = fmt.Sprint(v)
		case updatedAtField:
			if t, ok := normalizeBSON(v).(time.Time); ok {
				doc.UpdatedAt = t
			}
		default:
			doc.Data[k] = normalizeBSON(v)
		}
	}
	return doc
}

func normalizeBSON(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case int32:
		return int64(t)
	case primitive.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeBSON(e)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeBSON(e)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	}
	return v
}
