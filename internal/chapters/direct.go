package chapters

import (
	"context"

	"StoryBranch/internal/data"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const notifChapterPublished = "chapter_published"

// publishDirect applies the direct-publish side effects: counters, the chapter
// insert, XP and badge awards, and collaborator notifications. Any failure
// aborts the surrounding transaction.
func (s *Service) publishDirect(ctx context.Context, story *data.Story, placement *TreePlacement, chapter *data.Chapter) (*DirectPublishResult, error) {
	branchPoint := false
	if !placement.IsRoot {
		children, err := s.store.IncrementChildBranches(ctx, placement.Parent.ID)
		if err != nil {
			return nil, data.WrapError(data.KindInternal, "incrementing branch counter", err)
		}
		if children > data.MaxBranchesPerChapter {
			// Lost a race: the pre-check passed but a concurrent writer took the
			// last slot. Aborting here rolls the increment back.
			return nil, data.Errorf(data.KindValidation, "chapter already has the maximum of %d branches", data.MaxBranchesPerChapter)
		}
		// A parent's first child is a continuation, not a branch point.
		branchPoint = children > 1
	}

	if err := s.store.IncrementStoryStat(ctx, story.ID, data.StatTotalChapters, 1); err != nil {
		return nil, data.WrapError(data.KindInternal, "incrementing chapter counter", err)
	}
	if branchPoint {
		if err := s.store.IncrementStoryStat(ctx, story.ID, data.StatTotalBranches, 1); err != nil {
			return nil, data.WrapError(data.KindInternal, "incrementing branch-point counter", err)
		}
	}

	if err := s.store.InsertChapter(ctx, chapter); err != nil {
		return nil, data.WrapError(data.KindInternal, "persisting chapter", err)
	}

	xp := data.XPCreateRootChapter
	deltas := data.UserStatDeltas{ChaptersWritten: 1}
	if !placement.IsRoot {
		xp = data.XPCreateBranchChapter
		deltas.BranchesCreated = 1
	}

	stats, err := s.gamification.AwardXP(ctx, chapter.AuthorID, xp, deltas)
	if err != nil {
		return nil, data.WrapError(data.KindInternal, "awarding xp", err)
	}

	badges := []string{}
	if placement.IsRoot {
		granted, err := s.gamification.GrantBadgeIfAbsent(ctx, chapter.AuthorID, data.BadgeStoryStarter)
		if err != nil {
			return nil, data.WrapError(data.KindInternal, "granting badge", err)
		}
		if granted {
			badges = append(badges, data.BadgeStoryStarter)
		}
	} else if stats.BranchesCreated >= data.BranchCreatorThreshold {
		granted, err := s.gamification.GrantBadgeIfAbsent(ctx, chapter.AuthorID, data.BadgeBranchCreator)
		if err != nil {
			return nil, data.WrapError(data.KindInternal, "granting badge", err)
		}
		if granted {
			badges = append(badges, data.BadgeBranchCreator)
		}
	}

	if err := s.notifyPublished(ctx, story, chapter); err != nil {
		return nil, err
	}

	return &DirectPublishResult{
		Chapter:      chapter,
		XPAwarded:    xp,
		BadgesEarned: badges,
		Stats: CreationStats{
			TotalChapters: story.Stats.TotalChapters + 1,
			Depth:         chapter.Depth,
			IsRoot:        placement.IsRoot,
		},
	}, nil
}

// notifyPublished enqueues one notification per accepted collaborator (plus the
// creator), skipping the author of the new chapter.
func (s *Service) notifyPublished(ctx context.Context, story *data.Story, chapter *data.Chapter) error {
	collabs, err := s.store.ListAcceptedCollaborators(ctx, story.ID)
	if err != nil {
		return data.WrapError(data.KindInternal, "listing collaborators", err)
	}

	recipients := make([]primitive.ObjectID, 0, len(collabs)+1)
	seen := map[primitive.ObjectID]bool{chapter.AuthorID: true}
	for _, c := range collabs {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			recipients = append(recipients, c.UserID)
		}
	}
	if !seen[story.CreatorID] {
		recipients = append(recipients, story.CreatorID)
	}

	payload := map[string]any{
		"story_id":   story.ID.Hex(),
		"chapter_id": chapter.ID.Hex(),
		"title":      chapter.Title,
		"depth":      chapter.Depth,
	}
	for _, userID := range recipients {
		if err := s.notifier.Enqueue(ctx, userID, notifChapterPublished, payload); err != nil {
			return data.WrapError(data.KindInternal, "enqueueing notification", err)
		}
	}
	return nil
}
