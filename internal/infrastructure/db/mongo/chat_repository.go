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

	"github.com/printease/printease/internal/core/domain"
	"github.com/printease/printease/internal/core/ports"
)

const (
	conversationsCollection = "conversations"
	messagesCollection      = "messages"
)

// ChatRepository implements ports.ChatRepository using MongoDB.
type ChatRepository struct {
	conversations *mongo.Collection
	messages      *mongo.Collection
	now           func() time.Time
}

func NewChatRepository(db *mongo.Database) *ChatRepository {
	return &ChatRepository{
		conversations: db.Collection(conversationsCollection),
		messages:      db.Collection(messagesCollection),
		now:           time.Now,
	}
}

type conversationDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID     string             `bson:"owner_id"`
	CustomerID  string             `bson:"customer_id"`
	LastMessage string             `bson:"last_message,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (d *conversationDoc) toDomain() *domain.Conversation {
	return &domain.Conversation{
		ID:          d.ID.Hex(),
		OwnerID:     d.OwnerID,
		CustomerID:  d.CustomerID,
		LastMessage: d.LastMessage,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

type messageDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `bson:"conversation_id"`
	SenderID       string             `bson:"sender_id"`
	Text           string             `bson:"text"`
	CreatedAt      time.Time          `bson:"created_at"`
}

// FindOrCreateConversation upserts the (owner, customer) pair. Two concurrent
// first contacts race on the unique index; the loser re-reads the winner's row.
func (r *ChatRepository) FindOrCreateConversation(ctx context.Context, ownerID, customerID string) (*domain.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := r.now().UTC()
	filter := bson.M{"owner_id": ownerID, "customer_id": customerID}
	update := bson.M{"$setOnInsert": bson.M{"created_at": now, "updated_at": now}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc conversationDoc
	err := r.conversations.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		err = r.conversations.FindOne(ctx, filter).Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert conversation: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ChatRepository) FindConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrConversationNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc conversationDoc
	if err := r.conversations.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ChatRepository) ListConversations(ctx context.Context, f ports.ConversationFilter) ([]*domain.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.OwnerID != "" {
		filter["owner_id"] = f.OwnerID
	}
	if f.CustomerID != "" {
		filter["customer_id"] = f.CustomerID
	}

	cur, err := r.conversations.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	var docs []conversationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}

	out := make([]*domain.Conversation, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

// InsertMessage stores m, assigns its id and refreshes the conversation summary.
func (r *ChatRepository) InsertMessage(ctx context.Context, m *domain.Message) error {
	convID, err := primitive.ObjectIDFromHex(m.ConversationID)
	if err != nil {
		return domain.ErrConversationNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.messages.InsertOne(ctx, messageDoc{
		ConversationID: convID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		CreatedAt:      m.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		m.ID = oid.Hex()
	}

	_, err = r.conversations.UpdateOne(ctx,
		bson.M{"_id": convID},
		bson.M{"$set": bson.M{"last_message": m.Text, "updated_at": m.CreatedAt}},
	)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

func (r *ChatRepository) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	convID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, domain.ErrConversationNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.messages.Find(ctx,
		bson.M{"conversation_id": convID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	var docs []messageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	out := make([]*domain.Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, &domain.Message{
			ID:             d.ID.Hex(),
			ConversationID: d.ConversationID.Hex(),
			SenderID:       d.SenderID,
			Text:           d.Text,
			CreatedAt:      d.CreatedAt.UTC(),
		})
	}
	return out, nil
}

// EnsureIndexes creates the pair uniqueness and lookup indexes.
func (r *ChatRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.conversations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "customer_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "customer_id", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = r.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return err
}
