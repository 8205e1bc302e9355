package chapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"StoryBranch/internal/data"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const notifPullRequestOpen = "chapter_pr_open"

// gatePullRequest applies the review-gate side effects: the pending chapter,
// its pull-request record, the chapter↔PR link and moderator notifications.
func (s *Service) gatePullRequest(ctx context.Context, story *data.Story, placement *TreePlacement, chapter *data.Chapter) (*PRGateResult, error) {
	// totalChapters counts every committed creation, gated or not.
	if err := s.store.IncrementStoryStat(ctx, story.ID, data.StatTotalChapters, 1); err != nil {
		return nil, data.WrapError(data.KindInternal, "incrementing chapter counter", err)
	}

	if err := s.store.InsertChapter(ctx, chapter); err != nil {
		return nil, data.WrapError(data.KindInternal, "persisting chapter", err)
	}

	now := time.Now().UTC()
	pr := &data.PullRequest{
		StoryID:         story.ID,
		ChapterID:       chapter.ID,
		ParentChapterID: chapter.ParentChapterID,
		AuthorID:        chapter.AuthorID,
		PRType:          data.PRNewChapter,
		Title:           pullRequestTitle(chapter.Depth, chapter.Title),
		Changes:         data.PullRequestChanges{Proposed: chapter.Content},
		Status:          data.PROpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.InsertPullRequest(ctx, pr); err != nil {
		return nil, data.WrapError(data.KindInternal, "persisting pull request", err)
	}

	if err := s.store.SetChapterPullRequest(ctx, chapter.ID, pr.ID); err != nil {
		return nil, data.WrapError(data.KindInternal, "linking chapter to pull request", err)
	}
	chapter.PullRequest.PRID = &pr.ID
	chapter.PullRequest.Status = data.PROpen

	if err := s.notifyModerators(ctx, story, chapter, pr); err != nil {
		return nil, err
	}

	return &PRGateResult{
		Chapter: ChapterStub{
			ID:      chapter.ID,
			StoryID: chapter.StoryID,
			Status:  chapter.Status,
		},
		PullRequest: pr,
	}, nil
}

// notifyModerators enqueues one notification per approver. The creator is
// always included, so the recipient list is never empty.
func (s *Service) notifyModerators(ctx context.Context, story *data.Story, chapter *data.Chapter, pr *data.PullRequest) error {
	collabs, err := s.store.ListAcceptedCollaborators(ctx, story.ID)
	if err != nil {
		return data.WrapError(data.KindInternal, "listing collaborators", err)
	}

	recipients := make([]primitive.ObjectID, 0, len(collabs)+1)
	seen := make(map[primitive.ObjectID]bool, len(collabs)+1)
	for _, c := range collabs {
		if data.CanApprove(c.Role) && !seen[c.UserID] {
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
		"pr_id":      pr.ID.Hex(),
		"title":      pr.Title,
	}
	for _, userID := range recipients {
		if err := s.notifier.Enqueue(ctx, userID, notifPullRequestOpen, payload); err != nil {
			return data.WrapError(data.KindInternal, "enqueueing notification", err)
		}
	}
	return nil
}

// pullRequestTitle renders "[NEW] Chapter {n}: {title}" where n is the
// chapter's 1-based position in its chain.
func pullRequestTitle(depth int, title string) string {
	number := depth + 1
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Sprintf("[NEW] Chapter %d", number)
	}
	return fmt.Sprintf("[NEW] Chapter %d: %s", number, title)
}
