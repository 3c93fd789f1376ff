package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/printease/printease/internal/core/domain"
)

const (
	notificationsCollection = "notifications"
	notificationListLimit   = 100
)

// NotificationRepository implements ports.NotificationRepository using MongoDB.
type NotificationRepository struct {
	coll *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{coll: db.Collection(notificationsCollection)}
}

type notificationDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	RecipientID string             `bson:"recipient_id"`
	Kind        string             `bson:"kind"`
	Title       string             `bson:"title"`
	Body        string             `bson:"body,omitempty"`
	RefID       string             `bson:"ref_id,omitempty"`
	Read        bool               `bson:"read"`
	CreatedAt   time.Time          `bson:"created_at"`
}

// Insert persists n and assigns its id.
func (r *NotificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.InsertOne(ctx, notificationDoc{
		RecipientID: n.RecipientID,
		Kind:        string(n.Kind),
		Title:       n.Title,
		Body:        n.Body,
		RefID:       n.RefID,
		Read:        n.Read,
		CreatedAt:   n.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		n.ID = oid.Hex()
	}
	return nil
}

// ListByRecipient returns the newest notifications for recipientID.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]*domain.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"recipient_id": recipientID}
	if unreadOnly {
		filter["read"] = false
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(notificationListLimit)

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	var docs []notificationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}

	out := make([]*domain.Notification, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domain.Notification{
			ID:          d.ID.Hex(),
			RecipientID: d.RecipientID,
			Kind:        domain.NotificationKind(d.Kind),
			Title:       d.Title,
			Body:        d.Body,
			RefID:       d.RefID,
			Read:        d.Read,
			CreatedAt:   d.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotificationNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "recipient_id": recipientID},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}
