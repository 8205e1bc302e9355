package chapters

import (
	"context"
	"strings"

	"StoryBranch/internal/data"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Service runs the chapter-creation pipeline. All collaborators are injected
// so tests can substitute them.
type Service struct {
	store        Store
	gamification Gamification
	notifier     Notifier
}

func NewService(store Store, gamification Gamification, notifier Notifier) *Service {
	return &Service{
		store:        store,
		gamification: gamification,
		notifier:     notifier,
	}
}

type CreateChapterRequest struct {
	StoryID         primitive.ObjectID
	ParentChapterID *primitive.ObjectID
	Title           string `validate:"required,min=1,max=200"`
	Content         string `validate:"required,min=50,max=10000"`
	UserID          primitive.ObjectID
}

// CreationStats is the snapshot returned after a direct publish.
type CreationStats struct {
	TotalChapters int  `json:"total_chapters"`
	Depth         int  `json:"depth"`
	IsRoot        bool `json:"is_root"`
}

type DirectPublishResult struct {
	Chapter      *data.Chapter `json:"chapter"`
	XPAwarded    int           `json:"xp_awarded"`
	BadgesEarned []string      `json:"badges_earned"`
	Stats        CreationStats `json:"stats"`
}

// ChapterStub is the trimmed chapter view returned on the PR path.
type ChapterStub struct {
	ID      primitive.ObjectID `json:"id"`
	StoryID primitive.ObjectID `json:"story_id"`
	Status  data.ChapterStatus `json:"status"`
}

type PRGateResult struct {
	Chapter     ChapterStub       `json:"chapter"`
	PullRequest *data.PullRequest `json:"pull_request"`
}

// CreationResult holds exactly one of the two terminal outcomes.
type CreationResult struct {
	Direct *DirectPublishResult `json:"direct,omitempty"`
	PRGate *PRGateResult        `json:"pr_gate,omitempty"`
}

// CreateChapter validates placement, resolves the publish mode and applies all
// resulting state changes in one transaction: either every mutation (chapter,
// story counters, parent branch counter, XP, badges, notifications and, on the
// PR path, the pull-request record) commits, or none do.
func (s *Service) CreateChapter(ctx context.Context, req CreateChapterRequest) (*CreationResult, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)

	if req.StoryID.IsZero() || req.UserID.IsZero() {
		return nil, data.NewError(data.KindValidation, "story id and user id are required")
	}
	if req.ParentChapterID != nil && req.ParentChapterID.IsZero() {
		return nil, data.NewError(data.KindValidation, "parent chapter id is malformed")
	}
	if err := data.ValidateStruct(req); err != nil {
		return nil, err
	}

	var result *CreationResult
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		story, err := s.store.FindStoryByID(ctx, req.StoryID)
		if err != nil {
			return data.WrapError(data.KindInternal, "fetching story", err)
		}
		if story == nil {
			return data.NewError(data.KindNotFound, "story not found")
		}
		if story.Status == data.StoryDeleted {
			return data.NewError(data.KindBadRequest, "story deleted")
		}

		placement, err := s.resolvePlacement(ctx, story, req.ParentChapterID)
		if err != nil {
			return err
		}

		if !placement.IsRoot {
			if err := validateBranching(story, placement.Parent); err != nil {
				return err
			}
		}

		collab, err := s.authorize(ctx, story, placement, req.UserID)
		if err != nil {
			return err
		}

		decision := resolvePublishMode(story, req.UserID, placement.IsRoot, collab)
		chapter := buildChapter(story, placement, req.UserID, req.Title, req.Content, decision)

		if decision.IsPR {
			gated, err := s.gatePullRequest(ctx, story, placement, chapter)
			if err != nil {
				return err
			}
			result = &CreationResult{PRGate: gated}
			return nil
		}

		published, err := s.publishDirect(ctx, story, placement, chapter)
		if err != nil {
			return err
		}
		result = &CreationResult{Direct: published}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// authorize enforces who may create the chapter: root chapters are creator-only,
// non-root chapters need an accepted collaborator record (the creator implicitly
// qualifies). Returns the collaborator record when one was fetched.
func (s *Service) authorize(ctx context.Context, story *data.Story, placement *TreePlacement, userID primitive.ObjectID) (*data.StoryCollaborator, error) {
	if placement.IsRoot {
		if userID != story.CreatorID {
			return nil, data.NewError(data.KindForbidden, "only the story creator may add a root chapter")
		}
		return nil, nil
	}

	if userID == story.CreatorID {
		return nil, nil
	}

	collab, err := s.store.FindAcceptedCollaborator(ctx, story.ID, userID)
	if err != nil {
		return nil, data.WrapError(data.KindInternal, "fetching collaborator", err)
	}
	if collab == nil {
		return nil, data.NewError(data.KindForbidden, "user is not a collaborator on this story")
	}
	return collab, nil
}
