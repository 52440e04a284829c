package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tunecache/internal/config"
	"tunecache/internal/jobs"
)

// Store persists job records in a MongoDB collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

var _ jobs.Repository = (*Store)(nil)

// Open connects to the configured MongoDB deployment and prepares the
// records collection.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("mongostore: config is required")
	}
	uri := strings.TrimSpace(cfg.Store.MongoURL)
	if uri == "" {
		return nil, errors.New("mongostore: mongo_url is required")
	}
	timeout := time.Duration(cfg.Store.MongoTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	clientOpts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetAppName("tunecache")
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}

	collection := client.Database(cfg.Store.MongoDatabase).Collection(cfg.Store.MongoCollection)
	store := &Store{client: client, collection: collection, timeout: timeout}
	if err := store.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "state", Value: 1}}},
		{Keys: bson.D{{Key: "updated_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("mongostore: create indexes: %w", err)
	}
	return nil
}

// Backend reports the store implementation name.
func (s *Store) Backend() string {
	return config.BackendMongo
}

// Close disconnects from the deployment.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Get fetches the record for contentID, returning nil when absent.
func (s *Store) Get(ctx context.Context, contentID string) (*jobs.Record, error) {
	var doc document
	err := s.collection.FindOne(ctx, bson.M{"_id": contentID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return doc.record(), nil
}

// Create inserts a processing record owned by attempt.
func (s *Store) Create(ctx context.Context, contentID string, meta jobs.Metadata, attempt string) error {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return errors.New("create record: content id is required")
	}
	if attempt == "" {
		return errors.New("create record: attempt token is required")
	}
	_, err := s.collection.InsertOne(ctx, newDocument(contentID, meta, attempt, now()))
	if mongo.IsDuplicateKeyError(err) {
		return jobs.ErrExists
	}
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

// Retry moves a failed record back to processing under a new attempt token.
func (s *Store) Retry(ctx context.Context, contentID, attempt string) error {
	if attempt == "" {
		return errors.New("retry record: attempt token is required")
	}
	ts := now()
	return s.transition(ctx, "retry record",
		bson.M{"_id": contentID, "state": string(jobs.StateFailed)},
		bson.M{
			"$set": bson.M{
				"state":          string(jobs.StateProcessing),
				"attempt":        attempt,
				"last_heartbeat": ts,
				"updated_at":     ts,
			},
			"$unset": bson.M{"error_detail": "", "artifact_url": ""},
			"$inc":   bson.M{"attempts": 1},
		},
	)
}

// TakeOver reassigns a stale processing record to a new attempt.
func (s *Store) TakeOver(ctx context.Context, contentID, previousAttempt, attempt string, cutoff time.Time) error {
	if attempt == "" {
		return errors.New("take over record: attempt token is required")
	}
	ts := now()
	cutoff = cutoff.UTC()
	return s.transition(ctx, "take over record",
		bson.M{
			"_id":     contentID,
			"state":   string(jobs.StateProcessing),
			"attempt": previousAttempt,
			"$or": bson.A{
				bson.M{"last_heartbeat": bson.M{"$lt": cutoff}},
				bson.M{"last_heartbeat": nil, "updated_at": bson.M{"$lt": cutoff}},
			},
		},
		bson.M{
			"$set": bson.M{
				"attempt":        attempt,
				"last_heartbeat": ts,
				"updated_at":     ts,
			},
			"$inc": bson.M{"attempts": 1},
		},
	)
}

// Complete moves an owned processing record to completed.
func (s *Store) Complete(ctx context.Context, contentID, attempt, artifactURL string) error {
	if strings.TrimSpace(artifactURL) == "" {
		return errors.New("complete record: artifact url is required")
	}
	return s.transition(ctx, "complete record",
		ownedFilter(contentID, attempt),
		bson.M{
			"$set": bson.M{
				"state":        string(jobs.StateCompleted),
				"artifact_url": artifactURL,
				"updated_at":   now(),
			},
			"$unset": bson.M{"error_detail": ""},
		},
	)
}

// Fail moves an owned processing record to failed with detail.
func (s *Store) Fail(ctx context.Context, contentID, attempt, detail string) error {
	if strings.TrimSpace(detail) == "" {
		detail = jobs.DefaultFailureDetail
	}
	return s.transition(ctx, "fail record",
		ownedFilter(contentID, attempt),
		bson.M{
			"$set": bson.M{
				"state":        string(jobs.StateFailed),
				"error_detail": detail,
				"updated_at":   now(),
			},
			"$unset": bson.M{"artifact_url": ""},
		},
	)
}

// Heartbeat refreshes the liveness timestamp of an owned processing record.
func (s *Store) Heartbeat(ctx context.Context, contentID, attempt string) error {
	ts := now()
	return s.transition(ctx, "update heartbeat",
		ownedFilter(contentID, attempt),
		bson.M{"$set": bson.M{"last_heartbeat": ts, "updated_at": ts}},
	)
}

// EnrichMetadata fills empty descriptive fields, one conditional update per field.
func (s *Store) EnrichMetadata(ctx context.Context, contentID string, meta jobs.Metadata) error {
	fields := map[string]string{
		"title":         meta.Title,
		"thumbnail_url": meta.ThumbnailURL,
		"channel":       meta.Channel,
		"duration":      meta.Duration,
	}
	for field, value := range fields {
		if value == "" {
			continue
		}
		if _, err := s.collection.UpdateOne(ctx,
			bson.M{"_id": contentID, field: ""},
			bson.M{"$set": bson.M{field: value}},
		); err != nil {
			return fmt.Errorf("enrich metadata %s: %w", field, err)
		}
	}
	return nil
}

// List returns records in the requested states, newest first.
func (s *Store) List(ctx context.Context, states ...jobs.State) ([]*jobs.Record, error) {
	filter := bson.M{}
	if len(states) > 0 {
		values := make(bson.A, 0, len(states))
		for _, st := range states {
			values = append(values, string(st))
		}
		filter["state"] = bson.M{"$in": values}
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := s.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*jobs.Record
	for cursor.Next(ctx) {
		var doc document
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, doc.record())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Stats counts records per state.
func (s *Store) Stats(ctx context.Context) (jobs.Stats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$state"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("record stats: %w", err)
	}
	defer cursor.Close(ctx)

	stats := make(jobs.Stats)
	for _, st := range jobs.AllStates() {
		stats[st] = 0
	}
	for cursor.Next(ctx) {
		var row struct {
			State string `bson:"_id"`
			Count int    `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode stats: %w", err)
		}
		stats[jobs.State(row.State)] = row.Count
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

// CountStale counts processing records whose last activity predates cutoff.
func (s *Store) CountStale(ctx context.Context, cutoff time.Time) (int, error) {
	cutoff = cutoff.UTC()
	count, err := s.collection.CountDocuments(ctx, bson.M{
		"state": string(jobs.StateProcessing),
		"$or": bson.A{
			bson.M{"last_heartbeat": bson.M{"$lt": cutoff}},
			bson.M{"last_heartbeat": nil, "updated_at": bson.M{"$lt": cutoff}},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("count stale records: %w", err)
	}
	return int(count), nil
}

// PurgeFailed deletes every failed record.
func (s *Store) PurgeFailed(ctx context.Context) (int64, error) {
	res, err := s.collection.DeleteMany(ctx, bson.M{"state": string(jobs.StateFailed)})
	if err != nil {
		return 0, fmt.Errorf("purge failed records: %w", err)
	}
	return res.DeletedCount, nil
}

func (s *Store) transition(ctx context.Context, op string, filter, update bson.M) error {
	res, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return jobs.ErrConflict
	}
	return nil
}

func ownedFilter(contentID, attempt string) bson.M {
	return bson.M{
		"_id":     contentID,
		"state":   string(jobs.StateProcessing),
		"attempt": attempt,
	}
}

// BSON dates carry millisecond precision.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
