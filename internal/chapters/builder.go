package chapters

import (
	"strings"
	"time"

	"StoryBranch/internal/data"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// buildChapter assembles the not-yet-persisted chapter document from validated
// inputs and the resolved publish decision. Stats and votes start zeroed;
// engagement events own them afterwards.
func buildChapter(story *data.Story, placement *TreePlacement, authorID primitive.ObjectID, title, content string, decision publishDecision) *data.Chapter {
	now := time.Now().UTC()

	var parentID *primitive.ObjectID
	if !placement.IsRoot {
		id := placement.Parent.ID
		parentID = &id
	}

	return &data.Chapter{
		StoryID:         story.ID,
		ParentChapterID: parentID,
		AncestorIDs:     placement.AncestorIDs,
		Depth:           placement.Depth,
		AuthorID:        authorID,
		Title:           strings.TrimSpace(title),
		Content:         strings.TrimSpace(content),
		Status:          decision.Status,
		PullRequest:     data.ChapterPullRequest{IsPR: decision.IsPR},
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
