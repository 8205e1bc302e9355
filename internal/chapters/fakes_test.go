package chapters

import (
	"context"
	"errors"
	"time"

	"StoryBranch/internal/data"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeEnv is an in-memory stand-in for the storage, gamification and
// notification collaborators. One struct backs all three ports so a
// transaction rollback restores every side effect at once.
type fakeEnv struct {
	stories       map[primitive.ObjectID]*data.Story
	chapters      map[primitive.ObjectID]*data.Chapter
	collaborators []data.StoryCollaborator
	pullRequests  map[primitive.ObjectID]*data.PullRequest
	userStats     map[primitive.ObjectID]*data.UserStats
	notifications []data.Notification

	failEnqueue bool
	// called just before IncrementChildBranches applies, to simulate a
	// concurrent writer racing the pre-check
	beforeIncrement func(parent *data.Chapter)
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		stories:      map[primitive.ObjectID]*data.Story{},
		chapters:     map[primitive.ObjectID]*data.Chapter{},
		pullRequests: map[primitive.ObjectID]*data.PullRequest{},
		userStats:    map[primitive.ObjectID]*data.UserStats{},
	}
}

func (f *fakeEnv) addStory(creatorID primitive.ObjectID, settings data.StorySettings) *data.Story {
	story := &data.Story{
		ID:        primitive.NewObjectID(),
		Title:     "The Winding Path",
		CreatorID: creatorID,
		Settings:  settings,
		Status:    data.StoryPublished,
	}
	f.stories[story.ID] = story
	return story
}

func (f *fakeEnv) addChapter(storyID, authorID primitive.ObjectID, parent *data.Chapter) *data.Chapter {
	ch := &data.Chapter{
		ID:          primitive.NewObjectID(),
		StoryID:     storyID,
		AuthorID:    authorID,
		Title:       "Chapter",
		Status:      data.ChapterPublished,
		AncestorIDs: []primitive.ObjectID{},
	}
	if parent != nil {
		id := parent.ID
		ch.ParentChapterID = &id
		ch.AncestorIDs = append(append([]primitive.ObjectID{}, parent.AncestorIDs...), parent.ID)
		ch.Depth = len(ch.AncestorIDs)
	}
	f.chapters[ch.ID] = ch
	return ch
}

func (f *fakeEnv) addCollaborator(storyID, userID primitive.ObjectID, role data.Role, status data.CollaboratorStatus) {
	f.collaborators = append(f.collaborators, data.StoryCollaborator{
		ID:      primitive.NewObjectID(),
		StoryID: storyID,
		UserID:  userID,
		Role:    role,
		Status:  status,
	})
}

type fakeSnapshot struct {
	stories       map[primitive.ObjectID]*data.Story
	chapters      map[primitive.ObjectID]*data.Chapter
	collaborators []data.StoryCollaborator
	pullRequests  map[primitive.ObjectID]*data.PullRequest
	userStats     map[primitive.ObjectID]*data.UserStats
	notifications []data.Notification
}

func (f *fakeEnv) snapshot() fakeSnapshot {
	snap := fakeSnapshot{
		stories:       map[primitive.ObjectID]*data.Story{},
		chapters:      map[primitive.ObjectID]*data.Chapter{},
		pullRequests:  map[primitive.ObjectID]*data.PullRequest{},
		userStats:     map[primitive.ObjectID]*data.UserStats{},
		collaborators: append([]data.StoryCollaborator{}, f.collaborators...),
		notifications: append([]data.Notification{}, f.notifications...),
	}
	for id, s := range f.stories {
		copied := *s
		snap.stories[id] = &copied
	}
	for id, c := range f.chapters {
		copied := *c
		copied.AncestorIDs = append([]primitive.ObjectID{}, c.AncestorIDs...)
		snap.chapters[id] = &copied
	}
	for id, pr := range f.pullRequests {
		copied := *pr
		snap.pullRequests[id] = &copied
	}
	for id, st := range f.userStats {
		copied := *st
		copied.Badges = append([]string{}, st.Badges...)
		snap.userStats[id] = &copied
	}
	return snap
}

func (f *fakeEnv) restore(snap fakeSnapshot) {
	f.stories = snap.stories
	f.chapters = snap.chapters
	f.collaborators = snap.collaborators
	f.pullRequests = snap.pullRequests
	f.userStats = snap.userStats
	f.notifications = snap.notifications
}

func (f *fakeEnv) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := f.snapshot()
	if err := fn(ctx); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

func (f *fakeEnv) FindStoryByID(_ context.Context, id primitive.ObjectID) (*data.Story, error) {
	story, ok := f.stories[id]
	if !ok {
		return nil, nil
	}
	copied := *story
	return &copied, nil
}

func (f *fakeEnv) FindChapterByID(_ context.Context, id primitive.ObjectID) (*data.Chapter, error) {
	ch, ok := f.chapters[id]
	if !ok {
		return nil, nil
	}
	copied := *ch
	copied.AncestorIDs = append([]primitive.ObjectID{}, ch.AncestorIDs...)
	return &copied, nil
}

func (f *fakeEnv) FindAcceptedCollaborator(_ context.Context, storyID, userID primitive.ObjectID) (*data.StoryCollaborator, error) {
	for _, c := range f.collaborators {
		if c.StoryID == storyID && c.UserID == userID && c.Status == data.CollaboratorAccepted {
			copied := c
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeEnv) ListAcceptedCollaborators(_ context.Context, storyID primitive.ObjectID) ([]data.StoryCollaborator, error) {
	var out []data.StoryCollaborator
	for _, c := range f.collaborators {
		if c.StoryID == storyID && c.Status == data.CollaboratorAccepted {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeEnv) IncrementChildBranches(_ context.Context, chapterID primitive.ObjectID) (int, error) {
	ch, ok := f.chapters[chapterID]
	if !ok {
		return 0, data.NewError(data.KindNotFound, "parent chapter not found")
	}
	if f.beforeIncrement != nil {
		f.beforeIncrement(ch)
	}
	ch.Stats.ChildBranches++
	return ch.Stats.ChildBranches, nil
}

func (f *fakeEnv) IncrementStoryStat(_ context.Context, storyID primitive.ObjectID, field string, by int) error {
	story, ok := f.stories[storyID]
	if !ok {
		return errors.New("story not found")
	}
	switch field {
	case data.StatTotalChapters:
		story.Stats.TotalChapters += by
	case data.StatTotalBranches:
		story.Stats.TotalBranches += by
	default:
		return errors.New("unknown stat field " + field)
	}
	story.LastActivityAt = time.Now().UTC()
	return nil
}

func (f *fakeEnv) InsertChapter(_ context.Context, chapter *data.Chapter) error {
	chapter.ID = primitive.NewObjectID()
	copied := *chapter
	copied.AncestorIDs = append([]primitive.ObjectID{}, chapter.AncestorIDs...)
	f.chapters[chapter.ID] = &copied
	return nil
}

func (f *fakeEnv) InsertPullRequest(_ context.Context, pr *data.PullRequest) error {
	pr.ID = primitive.NewObjectID()
	copied := *pr
	f.pullRequests[pr.ID] = &copied
	return nil
}

func (f *fakeEnv) SetChapterPullRequest(_ context.Context, chapterID, prID primitive.ObjectID) error {
	ch, ok := f.chapters[chapterID]
	if !ok {
		return errors.New("chapter not found")
	}
	id := prID
	ch.PullRequest.PRID = &id
	ch.PullRequest.Status = data.PROpen
	return nil
}

func (f *fakeEnv) AwardXP(_ context.Context, userID primitive.ObjectID, amount int, deltas data.UserStatDeltas) (*data.UserStats, error) {
	st, ok := f.userStats[userID]
	if !ok {
		st = &data.UserStats{UserID: userID}
		f.userStats[userID] = st
	}
	st.XP += amount
	st.ChaptersWritten += deltas.ChaptersWritten
	st.BranchesCreated += deltas.BranchesCreated
	copied := *st
	copied.Badges = append([]string{}, st.Badges...)
	return &copied, nil
}

func (f *fakeEnv) GrantBadgeIfAbsent(_ context.Context, userID primitive.ObjectID, badge string) (bool, error) {
	st, ok := f.userStats[userID]
	if !ok {
		st = &data.UserStats{UserID: userID}
		f.userStats[userID] = st
	}
	for _, b := range st.Badges {
		if b == badge {
			return false, nil
		}
	}
	st.Badges = append(st.Badges, badge)
	return true, nil
}

func (f *fakeEnv) Enqueue(_ context.Context, userID primitive.ObjectID, notifType string, payload map[string]any) error {
	if f.failEnqueue {
		return errors.New("enqueue failed")
	}
	f.notifications = append(f.notifications, data.Notification{
		UserID:  userID,
		Type:    notifType,
		Payload: payload,
	})
	return nil
}

func newTestService(env *fakeEnv) *Service {
	return NewService(env, env, env)
}
