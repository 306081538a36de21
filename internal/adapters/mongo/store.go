package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rovermx/groundstation/internal/domain"
	"github.com/rovermx/groundstation/internal/ports"
)

// Config locates the sample collection.
type Config struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// Store implements ports.SampleStore on a MongoDB collection. Each
// operation is a single document command; Mongo owns its atomicity.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// sampleDoc is the collection's wire shape. The domain type never carries
// bson tags; the mapping lives here.
type sampleDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Timestamp    time.Time          `bson:"timestamp"`
	Lat          float64            `bson:"lat"`
	Lng          float64            `bson:"lng"`
	Altitude     *float64           `bson:"altitude,omitempty"`
	Temperature  float64            `bson:"temperature"`
	Pressure     float64            `bson:"pressure"`
	Direction    string             `bson:"direction,omitempty"`
	LineTracking *bool              `bson:"lineTracking,omitempty"`
}

// Connect dials the server and pings it so a dead store fails at boot, not
// on the first insert.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (s *Store) Insert(ctx context.Context, sample *domain.Sample) (*domain.Sample, error) {
	doc := toDoc(sample)
	doc.ID = primitive.NewObjectID()

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("mongo insert: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.Sample, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var doc sampleDoc
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) Find(ctx context.Context, q ports.ListQuery) ([]*domain.Sample, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(q.Offset())
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cur, err := s.coll.Find(ctx, searchFilter(q.Search), opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	defer cur.Close(ctx)

	out := []*domain.Sample{}
	for cur.Next(ctx) {
		var doc sampleDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo decode: %w", err)
		}
		out = append(out, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo cursor: %w", err)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, q ports.ListQuery) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, searchFilter(q.Search))
	if err != nil {
		return 0, fmt.Errorf("mongo count: %w", err)
	}
	return n, nil
}

func (s *Store) UpdateByID(ctx context.Context, id string, u domain.Update) (*domain.Sample, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	set := bson.M{
		"lat":         u.Lat,
		"lng":         u.Lng,
		"temperature": u.Temperature,
		"pressure":    u.Pressure,
		"direction":   u.Direction,
	}
	unset := bson.M{}
	if u.Altitude != nil {
		set["altitude"] = *u.Altitude
	} else {
		unset["altitude"] = ""
	}
	if u.LineTracking != nil {
		set["lineTracking"] = *u.LineTracking
	} else {
		unset["lineTracking"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	var doc sampleDoc
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo update: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) DeleteByID(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// searchFilter matches the direction field case-insensitively, the same
// contract the dashboard's search box had against Mongoose.
func searchFilter(search string) bson.M {
	if search == "" {
		return bson.M{}
	}
	return bson.M{"direction": primitive.Regex{Pattern: regexQuote(search), Options: "i"}}
}

// regexQuote escapes regex metacharacters so a search term is a literal
// substring match.
func regexQuote(s string) string {
	const meta = `\.+*?()|[]{}^$`
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		for j := 0; j < len(meta); j++ {
			if s[i] == meta[j] {
				out = append(out, '\\')
				break
			}
		}
		out = append(out, s[i])
	}
	return string(out)
}

func toDoc(s *domain.Sample) *sampleDoc {
	return &sampleDoc{
		Timestamp:    s.Timestamp,
		Lat:          s.Lat,
		Lng:          s.Lng,
		Altitude:     s.Altitude,
		Temperature:  s.Temperature,
		Pressure:     s.Pressure,
		Direction:    s.Direction,
		LineTracking: s.LineTracking,
	}
}

func (d *sampleDoc) toDomain() *domain.Sample {
	return &domain.Sample{
		ID:           d.ID.Hex(),
		Timestamp:    d.Timestamp,
		Lat:          d.Lat,
		Lng:          d.Lng,
		Altitude:     d.Altitude,
		Temperature:  d.Temperature,
		Pressure:     d.Pressure,
		Direction:    d.Direction,
		LineTracking: d.LineTracking,
	}
}

var _ ports.SampleStore = (*Store)(nil)
