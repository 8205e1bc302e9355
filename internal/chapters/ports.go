package chapters

import (
	"context"

	"StoryBranch/internal/data"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the storage port the creation pipeline runs against. All methods
// honor the transaction session bound to ctx; lookups return (nil, nil) when
// the document does not exist.
type Store interface {
	FindStoryByID(ctx context.Context, id primitive.ObjectID) (*data.Story, error)
	FindChapterByID(ctx context.Context, id primitive.ObjectID) (*data.Chapter, error)
	FindAcceptedCollaborator(ctx context.Context, storyID, userID primitive.ObjectID) (*data.StoryCollaborator, error)
	ListAcceptedCollaborators(ctx context.Context, storyID primitive.ObjectID) ([]data.StoryCollaborator, error)

	// IncrementChildBranches atomically bumps the parent's child counter and
	// returns the post-increment value.
	IncrementChildBranches(ctx context.Context, chapterID primitive.ObjectID) (int, error)
	// IncrementStoryStat atomically bumps one story stat field (see data.Stat*
	// field paths) and refreshes the story's last-activity timestamp.
	IncrementStoryStat(ctx context.Context, storyID primitive.ObjectID, field string, by int) error

	InsertChapter(ctx context.Context, chapter *data.Chapter) error
	InsertPullRequest(ctx context.Context, pr *data.PullRequest) error
	SetChapterPullRequest(ctx context.Context, chapterID, prID primitive.ObjectID) error

	// WithTransaction runs fn inside one transaction; fn's ctx carries the
	// session. Any error from fn aborts the whole transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Gamification awards XP and badges to contributors.
type Gamification interface {
	// AwardXP bumps the user's XP and stat counters, returning the updated stats.
	AwardXP(ctx context.Context, userID primitive.ObjectID, amount int, deltas data.UserStatDeltas) (*data.UserStats, error)
	// GrantBadgeIfAbsent grants badge unless already held; reports whether it granted.
	GrantBadgeIfAbsent(ctx context.Context, userID primitive.ObjectID, badge string) (bool, error)
}

// Notifier enqueues a notification for later delivery. Enqueue happens inside
// the creation transaction, so a failure here aborts the creation.
type Notifier interface {
	Enqueue(ctx context.Context, userID primitive.ObjectID, notifType string, payload map[string]any) error
}
