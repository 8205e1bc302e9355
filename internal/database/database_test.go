package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"StoryBranch/internal/chapters"
	"StoryBranch/internal/data"
	"StoryBranch/internal/database"
	"StoryBranch/internal/gamification"
	"StoryBranch/internal/notify"
)

// Spins up a real replica-set mongo; transactions need one.
func startMongo(t *testing.T) *database.Store {
	t.Helper()
	ctx := context.Background()

	ctr, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	store, err := database.NewWithURI(uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	require.NoError(t, store.EnsureIndexes(ctx))
	return store
}

func TestCreationPipelineAgainstMongo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mongo integration test in short mode")
	}

	ctx := context.Background()
	store := startMongo(t)
	svc := chapters.NewService(
		store,
		gamification.New(store.Database()),
		notify.NewOutbox(store.Database()),
	)

	creator := primitive.NewObjectID()
	story := &data.Story{
		Title:     "Integration Saga",
		CreatorID: creator,
		Settings:  data.StorySettings{IsPublic: true, AllowBranching: true},
		Status:    data.StoryPublished,
	}
	require.NoError(t, store.CreateStory(ctx, story))

	// creator was seeded as an accepted owner collaborator
	collab, err := store.FindAcceptedCollaborator(ctx, story.ID, creator)
	require.NoError(t, err)
	require.NotNil(t, collab)
	require.Equal(t, data.RoleOwner, collab.Role)

	root, err := svc.CreateChapter(ctx, chapters.CreateChapterRequest{
		StoryID: story.ID,
		Title:   "Prologue",
		Content: "The integration test began, as all good stories do, with an empty database.",
		UserID:  creator,
	})
	require.NoError(t, err)
	require.NotNil(t, root.Direct)
	require.Equal(t, data.XPCreateRootChapter, root.Direct.XPAwarded)
	rootID := root.Direct.Chapter.ID

	branch, err := svc.CreateChapter(ctx, chapters.CreateChapterRequest{
		StoryID:         story.ID,
		ParentChapterID: &rootID,
		Title:           "First Branch",
		Content:         "A branch grew from the prologue, carrying its ancestry along with it.",
		UserID:          creator,
	})
	require.NoError(t, err)
	require.Equal(t, 1, branch.Direct.Chapter.Depth)
	require.Empty(t, branch.Direct.BadgesEarned)

	// counters landed atomically
	got, err := store.FindStoryByID(ctx, story.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.Stats.TotalChapters)
	require.Equal(t, 0, got.Stats.TotalBranches)

	parent, err := store.FindChapterByID(ctx, rootID)
	require.NoError(t, err)
	require.Equal(t, 1, parent.Stats.ChildBranches)

	// increment-and-return sees its own write
	n, err := store.IncrementChildBranches(ctx, rootID)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestPRGateAgainstMongo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mongo integration test in short mode")
	}

	ctx := context.Background()
	store := startMongo(t)
	outbox := notify.NewOutbox(store.Database())
	svc := chapters.NewService(store, gamification.New(store.Database()), outbox)

	creator := primitive.NewObjectID()
	contributor := primitive.NewObjectID()
	story := &data.Story{
		Title:     "Gated Saga",
		CreatorID: creator,
		Settings:  data.StorySettings{IsPublic: true, AllowBranching: true, RequireApproval: true},
		Status:    data.StoryPublished,
	}
	require.NoError(t, store.CreateStory(ctx, story))

	root, err := svc.CreateChapter(ctx, chapters.CreateChapterRequest{
		StoryID: story.ID,
		Title:   "Prologue",
		Content: "A story that trusts no one begins with an approval requirement in place.",
		UserID:  creator,
	})
	require.NoError(t, err)
	rootID := root.Direct.Chapter.ID

	require.NoError(t, store.AddCollaborator(ctx, &data.StoryCollaborator{
		StoryID: story.ID,
		UserID:  contributor,
		Role:    data.RoleContributor,
		Status:  data.CollaboratorAccepted,
	}))

	gated, err := svc.CreateChapter(ctx, chapters.CreateChapterRequest{
		StoryID:         story.ID,
		ParentChapterID: &rootID,
		Title:           "Suspicious Addition",
		Content:         "The contributor proposed a twist that only a moderator could wave through.",
		UserID:          contributor,
	})
	require.NoError(t, err)
	require.NotNil(t, gated.PRGate)
	require.Equal(t, data.PROpen, gated.PRGate.PullRequest.Status)

	prs, err := store.ListPullRequests(ctx, story.ID, data.PROpen)
	require.NoError(t, err)
	require.Len(t, prs, 1)
	require.Equal(t, "[NEW] Chapter 2: Suspicious Addition", prs[0].Title)

	chapter, err := store.FindChapterByID(ctx, gated.PRGate.Chapter.ID)
	require.NoError(t, err)
	require.Equal(t, data.ChapterPendingApproval, chapter.Status)
	require.True(t, chapter.PullRequest.IsPR)
	require.NotNil(t, chapter.PullRequest.PRID)

	// the outbox row committed with the transaction; relay drains it
	relayed, err := outbox.RelayPending(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, relayed, 1)
}
