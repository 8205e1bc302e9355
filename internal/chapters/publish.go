package chapters

import (
	"StoryBranch/internal/data"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// publishDecision is the resolved publish mode for a new chapter: either it
// goes live immediately or it is gated behind a pull request.
type publishDecision struct {
	Status data.ChapterStatus
	IsPR   bool
}

var (
	decideDirect = publishDecision{Status: data.ChapterPublished, IsPR: false}
	decidePRGate = publishDecision{Status: data.ChapterPendingApproval, IsPR: true}
)

// resolvePublishMode applies the decision rules in order; the first match wins.
// collab is the requester's accepted collaborator record, nil if none — the one
// external read is done by the caller so the decision itself stays pure.
func resolvePublishMode(story *data.Story, userID primitive.ObjectID, isRoot bool, collab *data.StoryCollaborator) publishDecision {
	switch {
	case isRoot:
		// Root chapters are creator-only (enforced upstream) and never gated.
		return decideDirect
	case !story.Settings.RequireApproval:
		return decideDirect
	case userID == story.CreatorID:
		return decideDirect
	case collab != nil && data.CanApprove(collab.Role):
		return decideDirect
	default:
		return decidePRGate
	}
}
