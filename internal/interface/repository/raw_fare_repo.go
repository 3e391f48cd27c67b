package repository

import (
	"context"
	"fmt"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRawFareRepository reads scraper output
type MongoRawFareRepository struct {
	collection *mongo.Collection
}

// NewMongoRawFareRepository creates a new raw fare repository
func NewMongoRawFareRepository(db *mongo.Database, collectionName string) repository.RawFareRepository {
	collection := db.Collection(collectionName)

	ctx := context.Background()
	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "hostCarrier", Value: 1}, {Key: "fares.scrapedAt", Value: 1}}},
		{Keys: bson.D{{Key: "loadingBatchId", Value: 1}}},
	})

	return &MongoRawFareRepository{
		collection: collection,
	}
}

// Find streams bundles matching query, with nested fares narrowed to matching entries
func (r *MongoRawFareRepository) Find(ctx context.Context, query repository.RawFareQuery) (repository.BundleCursor, error) {
	opts := options.Aggregate().SetAllowDiskUse(true).SetBatchSize(500)
	cursor, err := r.collection.Aggregate(ctx, buildRawFarePipeline(query), opts)
	if err != nil {
		return nil, fmt.Errorf("raw fare aggregation failed: %w", err)
	}
	return &mongoBundleCursor{cursor: cursor}, nil
}

func buildRawFarePipeline(q repository.RawFareQuery) mongo.Pipeline {
	match := bson.D{{Key: "hostCarrier", Value: q.HostCarrier}}

	if q.BatchID != "" {
		match = append(match, bson.E{Key: "loadingBatchId", Value: q.BatchID})
		return mongo.Pipeline{
			{{Key: "$match", Value: match}},
			{{Key: "$sort", Value: bson.D{{Key: "scrapedAt", Value: 1}, {Key: "_id", Value: 1}}}},
		}
	}

	fareMatch := bson.D{{Key: "scrapedAt", Value: bson.D{
		{Key: "$gte", Value: q.ScrapedAfter},
		{Key: "$lt", Value: q.ScrapedBefore},
	}}}
	if q.Source != "" {
		fareMatch = append(fareMatch, bson.E{Key: "source", Value: q.Source})
	}
	match = append(match, bson.E{Key: "fares", Value: bson.D{{Key: "$elemMatch", Value: fareMatch}}})

	for _, f := range []struct {
		key   string
		value string
	}{
		{"origin", q.Origin},
		{"destination", q.Destination},
		{"carrierCode", q.CarrierCode},
		{"direction", q.Direction},
	} {
		if f.value != "" {
			match = append(match, bson.E{Key: f.key, Value: f.value})
		}
	}
	if q.StayDuration > 0 {
		match = append(match, bson.E{Key: "stayDuration", Value: q.StayDuration})
	}

	inWindow := bson.A{
		bson.D{{Key: "$gte", Value: bson.A{"$$f.scrapedAt", q.ScrapedAfter}}},
		bson.D{{Key: "$lt", Value: bson.A{"$$f.scrapedAt", q.ScrapedBefore}}},
	}
	if q.Source != "" {
		inWindow = append(inWindow, bson.D{{Key: "$eq", Value: bson.A{"$$f.source", q.Source}}})
	}
	// fares without a scrape time pass through and are counted downstream
	cond := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$$f.scrapedAt", nil}}}, nil}}},
		bson.D{{Key: "$and", Value: inWindow}},
	}}}

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$set", Value: bson.D{{Key: "fares", Value: bson.D{{Key: "$filter", Value: bson.D{
			{Key: "input", Value: "$fares"},
			{Key: "as", Value: "f"},
			{Key: "cond", Value: cond},
		}}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "scrapedAt", Value: 1}, {Key: "_id", Value: 1}}}},
	}
}

type mongoBundleCursor struct {
	cursor *mongo.Cursor
}

func (c *mongoBundleCursor) Next(ctx context.Context) bool {
	return c.cursor.Next(ctx)
}

func (c *mongoBundleCursor) Decode(bundle *entity.ScrapedFareBundle) error {
	return c.cursor.Decode(bundle)
}

func (c *mongoBundleCursor) Err() error {
	return c.cursor.Err()
}

func (c *mongoBundleCursor) Close(ctx context.Context) error {
	return c.cursor.Close(ctx)
}
