// Package reconciliation adapts C10's reconciliation.Repository onto
// MongoDB, grounded on the teacher's metadata.mongodb.go: batches are
// semi-structured append-heavy documents, a better fit for a document
// store than a relational schema (spec.md §4.10).
package reconciliation

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/google/uuid"

	"github.com/atlaspay/aggregator-core/internal/reconciliation"
)

const collectionName = "reconciliation_batches"

// Repository is a MongoDB-backed implementation of reconciliation.Repository.
type Repository struct {
	db *mongo.Database
}

// New builds a Repository over db.
func New(db *mongo.Database) *Repository {
	return &Repository{db: db}
}

var _ reconciliation.Repository = (*Repository)(nil)

func (r *Repository) collection() *mongo.Collection {
	return r.db.Collection(collectionName)
}

func (r *Repository) SaveBatch(ctx context.Context, b *reconciliation.Batch) error {
	if b.RunAt.IsZero() {
		b.RunAt = time.Now()
	}

	_, err := r.collection().InsertOne(ctx, b)

	return err
}

func (r *Repository) FindBatch(ctx context.Context, tenant string, id uuid.UUID) (*reconciliation.Batch, error) {
	var b reconciliation.Batch

	err := r.collection().FindOne(ctx, bson.M{"tenant": tenant, "id": id}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &b, nil
}

func (r *Repository) FindBatchesInWindow(ctx context.Context, tenant, gateway string, from, to time.Time) ([]reconciliation.Batch, error) {
	filter := bson.M{
		"tenant":  tenant,
		"gateway": gateway,
		"runat":   bson.M{"$gte": from, "$lt": to},
	}

	cur, err := r.collection().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "runat", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var batches []reconciliation.Batch

	for cur.Next(ctx) {
		var b reconciliation.Batch
		if err := cur.Decode(&b); err != nil {
			return nil, err
		}

		batches = append(batches, b)
	}

	return batches, cur.Err()
}

func (r *Repository) HasCompletedBatch(ctx context.Context, tenant string, periodFrom, periodTo time.Time) (bool, error) {
	count, err := r.collection().CountDocuments(ctx, bson.M{
		"tenant":        tenant,
		"periodfrom":    bson.M{"$lte": periodFrom},
		"periodto":      bson.M{"$gte": periodTo},
		"summary.status": reconciliation.BatchStatusClean,
	})
	if err != nil {
		return false, err
	}

	return count > 0, nil
}
