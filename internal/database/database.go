package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"StoryBranch/internal/chapters"
	"StoryBranch/internal/data"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	databaseName = "storybranch"

	collStories       = "stories"
	collChapters      = "chapters"
	collCollaborators = "collaborators"
	collPullRequests  = "pullrequests"

	// Transactions must commit within this window; past it the caller gets a
	// retryable error and no partial state is visible.
	txnTimeout = 10 * time.Second
)

var (
	dbUsername       = os.Getenv("DB_USERNAME")
	dbPassword       = os.Getenv("DB_PASSWORD")
	connectionString = os.Getenv("DB_CONNECTION_STRING")
)

// Store is the mongo-backed storage collaborator for the creation pipeline and
// the read endpoints around it.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ chapters.Store = (*Store)(nil)

func New() *Store {
	uri := fmt.Sprintf("mongodb+srv://%s:%s%s", dbUsername, dbPassword, connectionString)
	store, err := NewWithURI(uri)
	if err != nil {
		log.Fatal(err)
	}
	return store
}

func NewWithURI(uri string) (*Store, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	return &Store{
		client: client,
		db:     client.Database(databaseName),
	}, nil
}

// Database exposes the underlying handle for collaborators that keep their own
// collections (gamification, notification outbox).
func (s *Store) Database() *mongo.Database {
	return s.db
}

// WithTransaction runs fn in one causally-consistent transaction. Domain
// errors from fn pass through unchanged; timeouts and transient commit
// failures surface as retryable.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return data.WrapError(data.KindInternal, "starting session", err)
	}
	defer session.EndSession(ctx)

	txnCtx, cancel := context.WithTimeout(ctx, txnTimeout)
	defer cancel()

	_, err = session.WithTransaction(txnCtx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	if err == nil {
		return nil
	}

	var domainErr *data.Error
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) {
		return data.WrapError(data.KindTransient, "transaction timed out", err)
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.HasErrorLabel("TransientTransactionError") {
		return data.WrapError(data.KindTransient, "transaction aborted, retry", err)
	}
	return data.WrapError(data.KindInternal, "transaction failed", err)
}

func (s *Store) FindStoryByID(ctx context.Context, id primitive.ObjectID) (*data.Story, error) {
	var story data.Story
	err := s.db.Collection(collStories).FindOne(ctx, bson.M{"_id": id}).Decode(&story)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching story %s: %w", id.Hex(), err)
	}
	return &story, nil
}

func (s *Store) FindChapterByID(ctx context.Context, id primitive.ObjectID) (*data.Chapter, error) {
	var chapter data.Chapter
	err := s.db.Collection(collChapters).FindOne(ctx, bson.M{"_id": id}).Decode(&chapter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching chapter %s: %w", id.Hex(), err)
	}
	return &chapter, nil
}

func (s *Store) FindAcceptedCollaborator(ctx context.Context, storyID, userID primitive.ObjectID) (*data.StoryCollaborator, error) {
	filter := bson.M{"story_id": storyID, "user_id": userID, "status": data.CollaboratorAccepted}

	var collab data.StoryCollaborator
	err := s.db.Collection(collCollaborators).FindOne(ctx, filter).Decode(&collab)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching collaborator: %w", err)
	}
	return &collab, nil
}

func (s *Store) ListAcceptedCollaborators(ctx context.Context, storyID primitive.ObjectID) ([]data.StoryCollaborator, error) {
	cursor, err := s.db.Collection(collCollaborators).Find(ctx, bson.M{
		"story_id": storyID,
		"status":   data.CollaboratorAccepted,
	})
	if err != nil {
		return nil, fmt.Errorf("listing collaborators: %w", err)
	}
	defer cursor.Close(ctx)

	var collabs []data.StoryCollaborator
	if err := cursor.All(ctx, &collabs); err != nil {
		return nil, fmt.Errorf("decoding collaborators: %w", err)
	}
	return collabs, nil
}

// IncrementChildBranches is the single atomic increment-and-read the branch
// limit is enforced against.
func (s *Store) IncrementChildBranches(ctx context.Context, chapterID primitive.ObjectID) (int, error) {
	update := bson.M{
		"$inc": bson.M{"stats.child_branches": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var chapter data.Chapter
	err := s.db.Collection(collChapters).FindOneAndUpdate(ctx, bson.M{"_id": chapterID}, update, opts).Decode(&chapter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, data.NewError(data.KindNotFound, "parent chapter not found")
	}
	if err != nil {
		return 0, fmt.Errorf("incrementing child branches for %s: %w", chapterID.Hex(), err)
	}
	return chapter.Stats.ChildBranches, nil
}

func (s *Store) IncrementStoryStat(ctx context.Context, storyID primitive.ObjectID, field string, by int) error {
	now := time.Now().UTC()
	_, err := s.db.Collection(collStories).UpdateOne(ctx,
		bson.M{"_id": storyID},
		bson.M{
			"$inc": bson.M{field: by},
			"$set": bson.M{"last_activity_at": now, "updated_at": now},
		},
	)
	if err != nil {
		return fmt.Errorf("incrementing %s on story %s: %w", field, storyID.Hex(), err)
	}
	return nil
}

func (s *Store) InsertChapter(ctx context.Context, chapter *data.Chapter) error {
	res, err := s.db.Collection(collChapters).InsertOne(ctx, chapter)
	if err != nil {
		return fmt.Errorf("inserting chapter: %w", err)
	}
	chapter.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *Store) InsertPullRequest(ctx context.Context, pr *data.PullRequest) error {
	res, err := s.db.Collection(collPullRequests).InsertOne(ctx, pr)
	if err != nil {
		return fmt.Errorf("inserting pull request: %w", err)
	}
	pr.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *Store) SetChapterPullRequest(ctx context.Context, chapterID, prID primitive.ObjectID) error {
	_, err := s.db.Collection(collChapters).UpdateOne(ctx,
		bson.M{"_id": chapterID},
		bson.M{"$set": bson.M{
			"pull_request.pr_id":  prID,
			"pull_request.status": data.PROpen,
			"updated_at":          time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("linking chapter %s to pull request: %w", chapterID.Hex(), err)
	}
	return nil
}

// CreateStory inserts the story and seeds its creator as an accepted owner
// collaborator in one transaction.
func (s *Store) CreateStory(ctx context.Context, story *data.Story) error {
	now := time.Now().UTC()
	story.CreatedAt = now
	story.UpdatedAt = now
	story.LastActivityAt = now
	if story.Status == "" {
		story.Status = data.StoryDraft
	}

	return s.WithTransaction(ctx, func(ctx context.Context) error {
		res, err := s.db.Collection(collStories).InsertOne(ctx, story)
		if err != nil {
			return data.WrapError(data.KindInternal, "inserting story", err)
		}
		story.ID = res.InsertedID.(primitive.ObjectID)

		owner := data.StoryCollaborator{
			StoryID:   story.ID,
			UserID:    story.CreatorID,
			Role:      data.RoleOwner,
			Status:    data.CollaboratorAccepted,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := s.db.Collection(collCollaborators).InsertOne(ctx, owner); err != nil {
			return data.WrapError(data.KindInternal, "inserting owner collaborator", err)
		}
		return nil
	})
}

// AddCollaborator records a story membership; invites and role changes go
// through here.
func (s *Store) AddCollaborator(ctx context.Context, collab *data.StoryCollaborator) error {
	now := time.Now().UTC()
	collab.CreatedAt = now
	collab.UpdatedAt = now
	collab.Role = data.NormalizeRole(string(collab.Role))

	res, err := s.db.Collection(collCollaborators).InsertOne(ctx, collab)
	if err != nil {
		return fmt.Errorf("inserting collaborator: %w", err)
	}
	collab.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *Store) ListChaptersByStory(ctx context.Context, storyID primitive.ObjectID) ([]data.Chapter, error) {
	filter := bson.M{"story_id": storyID, "status": bson.M{"$ne": data.ChapterDeleted}}
	cursor, err := s.db.Collection(collChapters).Find(ctx, filter, options.Find().SetSort(bson.M{"created_at": 1}))
	if err != nil {
		return nil, fmt.Errorf("listing chapters: %w", err)
	}
	defer cursor.Close(ctx)

	var result []data.Chapter
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("decoding chapters: %w", err)
	}
	return result, nil
}

func (s *Store) ListPullRequests(ctx context.Context, storyID primitive.ObjectID, status data.PullRequestStatus) ([]data.PullRequest, error) {
	filter := bson.M{"story_id": storyID}
	if status != "" {
		filter["status"] = status
	}

	cursor, err := s.db.Collection(collPullRequests).Find(ctx, filter, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, fmt.Errorf("listing pull requests: %w", err)
	}
	defer cursor.Close(ctx)

	var result []data.PullRequest
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("decoding pull requests: %w", err)
	}
	return result, nil
}

func (s *Store) Health(ctx context.Context) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("db down: %w", err)
	}
	return map[string]string{"message": "It's healthy"}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
