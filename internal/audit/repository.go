// Package audit stores an append-only copy of every transfer event in
// MongoDB. It is fed by the audit worker from the broker.
package audit

import (
	"context"
	"fmt"
	"time"

	"paycore/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const collectionName = "transfer_events"

// Record is the stored form of a transfer event. The event id is the
// document id, so a redelivered event is stored once.
type Record struct {
	ID            string    `bson:"_id"`
	Type          string    `bson:"type"`
	TransferID    string    `bson:"transfer_id"`
	TransferType  string    `bson:"transfer_type"`
	Status        string    `bson:"status"`
	AdminStatus   string    `bson:"admin_status"`
	FromAccountID string    `bson:"from_account_id"`
	ToAccountID   string    `bson:"to_account_id,omitempty"`
	BeneficiaryID string    `bson:"beneficiary_id,omitempty"`
	Amount        string    `bson:"amount"`
	Currency      string    `bson:"currency"`
	Reference     string    `bson:"reference"`
	FailureCode   string    `bson:"failure_code,omitempty"`
	InitiatedBy   string    `bson:"initiated_by,omitempty"`
	ReviewedBy    string    `bson:"reviewed_by,omitempty"`
	OccurredAt    time.Time `bson:"occurred_at"`
	ProcessedAt   time.Time `bson:"processed_at"`
}

// FromEvent converts a transfer event into a Record.
func FromEvent(e models.TransferEvent) Record {
	return Record{
		ID:            e.EventID,
		Type:          e.Type,
		TransferID:    e.TransferID,
		TransferType:  string(e.TransferType),
		Status:        string(e.Status),
		AdminStatus:   string(e.AdminStatus),
		FromAccountID: e.FromAccountID,
		ToAccountID:   e.ToAccountID,
		BeneficiaryID: e.BeneficiaryID,
		Amount:        e.Amount.StringFixed(2),
		Currency:      e.Currency,
		Reference:     e.Reference,
		FailureCode:   e.FailureCode,
		InitiatedBy:   e.InitiatedBy,
		ReviewedBy:    e.ReviewedBy,
		OccurredAt:    e.OccurredAt,
	}
}

type Repository interface {
	Save(ctx context.Context, record Record) error
	ListByTransfer(ctx context.Context, transferID string) ([]Record, error)
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(client *mongo.Client, dbName string) *MongoRepository {
	return &MongoRepository{collection: client.Database(dbName).Collection(collectionName)}
}

// EnsureIndexes creates the lookup index on transfer_id.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "transfer_id", Value: 1}, {Key: "occurred_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create audit index: %w", err)
	}
	return nil
}

func (r *MongoRepository) Save(ctx context.Context, record Record) error {
	record.ProcessedAt = time.Now().UTC()
	if _, err := r.collection.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

func (r *MongoRepository) ListByTransfer(ctx context.Context, transferID string) ([]Record, error) {
	cursor, err := r.collection.Find(ctx,
		bson.D{{Key: "transfer_id", Value: transferID}},
		options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	var records []Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode audit records: %w", err)
	}
	return records, nil
}
