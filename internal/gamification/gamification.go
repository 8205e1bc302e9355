package gamification

import (
	"context"
	"fmt"
	"time"

	"StoryBranch/internal/data"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Service maintains per-user XP, stat counters and badges in the userstats
// collection. All writes join whatever transaction session ctx carries.
type Service struct {
	users *mongo.Collection
}

func New(db *mongo.Database) *Service {
	return &Service{users: db.Collection("userstats")}
}

// AwardXP bumps XP and stat counters in one atomic upsert and returns the
// post-award stats, so callers can evaluate badge thresholds.
func (s *Service) AwardXP(ctx context.Context, userID primitive.ObjectID, amount int, deltas data.UserStatDeltas) (*data.UserStats, error) {
	update := bson.M{
		"$inc": bson.M{
			"xp":               amount,
			"chapters_written": deltas.ChaptersWritten,
			"branches_created": deltas.BranchesCreated,
		},
		"$set":         bson.M{"updated_at": time.Now().UTC()},
		"$setOnInsert": bson.M{"user_id": userID},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stats data.UserStats
	if err := s.users.FindOneAndUpdate(ctx, bson.M{"user_id": userID}, update, opts).Decode(&stats); err != nil {
		return nil, fmt.Errorf("awarding xp to user %s: %w", userID.Hex(), err)
	}
	return &stats, nil
}

// GrantBadgeIfAbsent adds badge to the user's set unless already held and
// reports whether this call granted it.
func (s *Service) GrantBadgeIfAbsent(ctx context.Context, userID primitive.ObjectID, badge string) (bool, error) {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"user_id": userID, "badges": bson.M{"$ne": badge}},
		bson.M{
			"$addToSet": bson.M{"badges": badge},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, fmt.Errorf("granting badge %q to user %s: %w", badge, userID.Hex(), err)
	}
	return res.ModifiedCount > 0, nil
}
