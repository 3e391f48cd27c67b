package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoFlightFareRecordRepository implements FlightFareRecordRepository
type MongoFlightFareRecordRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoFlightFareRecordRepository creates a new flight fare record repository
func NewMongoFlightFareRecordRepository(db *mongo.Database, collectionName string) repository.FlightFareRecordRepository {
	collection := db.Collection(collectionName)

	// Create unique index on flightKey
	ctx := context.Background()
	indexModel := mongo.IndexModel{
		Keys:    bson.M{"flightKey": 1},
		Options: options.Index().SetUnique(true),
	}
	collection.Indexes().CreateOne(ctx, indexModel)

	// Create index on host and departure for reporting queries
	routeIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "hostCarrier", Value: 1}, {Key: "outboundDate", Value: 1}},
	}
	collection.Indexes().CreateOne(ctx, routeIndex)

	return &MongoFlightFareRecordRepository{
		collection: collection,
		now:        time.Now,
	}
}

// FindWithRecentHistory loads a record with its history trimmed to entries scraped at or after since
func (r *MongoFlightFareRecordRepository) FindWithRecentHistory(ctx context.Context, flightKey string, since time.Time) (*entity.FlightFareRecord, error) {
	cursor, err := r.collection.Aggregate(ctx, recentHistoryPipeline(flightKey, since))
	if err != nil {
		return nil, fmt.Errorf("failed to load flight fare record: %w", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var record entity.FlightFareRecord
	if err := cursor.Decode(&record); err != nil {
		return nil, fmt.Errorf("failed to decode flight fare record: %w", err)
	}
	return &record, nil
}

// BulkUpsert writes every update in one unordered bulk write
func (r *MongoFlightFareRecordRepository) BulkUpsert(ctx context.Context, updates []*entity.FlightFareUpdate) (repository.BulkWriteResult, error) {
	if len(updates) == 0 {
		return repository.BulkWriteResult{}, nil
	}

	now := r.now()
	models := make([]mongo.WriteModel, 0, len(updates))
	for _, u := range updates {
		models = append(models, upsertModel(u, now))
	}

	result, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if result == nil {
		result = &mongo.BulkWriteResult{}
	}
	out := repository.BulkWriteResult{
		Inserted: result.UpsertedCount,
		Updated:  result.MatchedCount,
	}
	if err != nil {
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) {
			return out, fmt.Errorf("bulk upsert failed for %d of %d records: %w", len(bulkErr.WriteErrors), len(updates), err)
		}
		return out, fmt.Errorf("bulk upsert failed: %w", err)
	}
	return out, nil
}

func recentHistoryPipeline(flightKey string, since time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "flightKey", Value: flightKey}}}},
		{{Key: "$limit", Value: 1}},
		{{Key: "$set", Value: bson.D{{Key: "historicalFares", Value: bson.D{{Key: "$filter", Value: bson.D{
			{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$historicalFares", bson.A{}}}}},
			{Key: "as", Value: "h"},
			{Key: "cond", Value: bson.D{{Key: "$gte", Value: bson.A{"$$h.scrapedAt", since}}}},
		}}}}}}},
	}
}

func literal(v interface{}) bson.D {
	return bson.D{{Key: "$literal", Value: v}}
}

// upsertModel replaces the record's scalar fields and, in the same update, swaps every
// history entry at or after WindowStart for the merged window.
func upsertModel(u *entity.FlightFareUpdate, now time.Time) mongo.WriteModel {
	rec := u.Record

	merged := u.MergedWindow
	if merged == nil {
		merged = []entity.HistoricalFare{}
	}
	minimums := rec.MinimumFares
	if minimums == nil {
		minimums = []entity.MinimumFare{}
	}

	olderThanWindow := bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$historicalFares", bson.A{}}}}},
		{Key: "as", Value: "h"},
		{Key: "cond", Value: bson.D{{Key: "$lt", Value: bson.A{"$$h.scrapedAt", u.WindowStart}}}},
	}}}

	set := bson.D{
		{Key: "flightKey", Value: literal(rec.FlightKey)},
		{Key: "hostCarrier", Value: literal(rec.HostCarrier)},
		{Key: "carrierCode", Value: literal(rec.CarrierCode)},
		{Key: "flightNumber", Value: literal(rec.FlightNumber)},
		{Key: "tripType", Value: literal(rec.TripType)},
		{Key: "origin", Value: literal(rec.Origin)},
		{Key: "destination", Value: literal(rec.Destination)},
		{Key: "outboundDate", Value: rec.OutboundDate},
		{Key: "returnDate", Value: literal(rec.ReturnDate)},
		{Key: "dayOfWeek", Value: rec.DayOfWeek},
		{Key: "minimumFares", Value: literal(minimums)},
		{Key: "roundTripRate", Value: rec.RoundTripRate},
		{Key: "state", Value: literal(rec.State)},
		{Key: "historicalFares", Value: bson.D{{Key: "$concatArrays", Value: bson.A{olderThanWindow, literal(merged)}}}},
		{Key: "createdAt", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$createdAt", now}}}},
		{Key: "updatedAt", Value: now},
	}

	return mongo.NewUpdateOneModel().
		SetFilter(bson.D{{Key: "flightKey", Value: rec.FlightKey}}).
		SetUpdate(mongo.Pipeline{{{Key: "$set", Value: set}}}).
		SetUpsert(true)
}
