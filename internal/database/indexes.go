package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the pipeline's lookups and uniqueness
// guarantees rely on. Safe to run on every startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collChapters: {
			{Keys: bson.D{{Key: "story_id", Value: 1}}},
			{
				Keys:    bson.D{{Key: "story_id", Value: 1}, {Key: "parent_chapter_id", Value: 1}},
				Options: options.Index().SetName("story_parent"),
			},
		},
		collCollaborators: {
			{
				Keys:    bson.D{{Key: "story_id", Value: 1}, {Key: "user_id", Value: 1}},
				Options: options.Index().SetName("uniq_story_user").SetUnique(true),
			},
		},
		collPullRequests: {
			{
				Keys:    bson.D{{Key: "chapter_id", Value: 1}},
				Options: options.Index().SetName("uniq_chapter").SetUnique(true),
			},
			{Keys: bson.D{{Key: "story_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		"userstats": {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().SetName("uniq_user").SetUnique(true),
			},
		},
		"notifications": {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", coll, err)
		}
	}
	return nil
}
