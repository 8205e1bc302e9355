package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"StoryBranch/internal/data"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const relayBatchSize = 100

// Outbox stores notifications durably before delivery. Enqueue runs inside the
// caller's transaction session, so a notification row commits if and only if
// the chapter creation it announces does. Delivery happens later via the relay.
type Outbox struct {
	coll *mongo.Collection
}

func NewOutbox(db *mongo.Database) *Outbox {
	return &Outbox{coll: db.Collection("notifications")}
}

func (o *Outbox) Enqueue(ctx context.Context, userID primitive.ObjectID, notifType string, payload map[string]any) error {
	n := data.Notification{
		UserID:    userID,
		Type:      notifType,
		Payload:   payload,
		Status:    data.NotificationPending,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := o.coll.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("enqueueing %s notification for user %s: %w", notifType, userID.Hex(), err)
	}
	return nil
}

// RelayPending delivers up to one batch of pending notifications and marks them
// delivered. Delivery here is a log line; email/push transports hang off this
// point. Returns how many rows were relayed.
func (o *Outbox) RelayPending(ctx context.Context) (int, error) {
	cursor, err := o.coll.Find(ctx,
		bson.M{"status": data.NotificationPending},
		options.Find().SetSort(bson.M{"created_at": 1}).SetLimit(relayBatchSize),
	)
	if err != nil {
		return 0, fmt.Errorf("fetching pending notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var pending []data.Notification
	if err := cursor.All(ctx, &pending); err != nil {
		return 0, fmt.Errorf("decoding pending notifications: %w", err)
	}

	relayed := 0
	for _, n := range pending {
		log.Printf("notify user=%s type=%s payload=%v", n.UserID.Hex(), n.Type, n.Payload)

		now := time.Now().UTC()
		_, err := o.coll.UpdateOne(ctx,
			bson.M{"_id": n.ID, "status": data.NotificationPending},
			bson.M{"$set": bson.M{"status": data.NotificationDelivered, "delivered_at": now}},
		)
		if err != nil {
			return relayed, fmt.Errorf("marking notification %s delivered: %w", n.ID.Hex(), err)
		}
		relayed++
	}
	return relayed, nil
}
