package chapters

import (
	"context"

	"StoryBranch/internal/data"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TreePlacement describes where a new chapter attaches in a story's tree.
type TreePlacement struct {
	IsRoot      bool
	AncestorIDs []primitive.ObjectID
	Depth       int
	Parent      *data.Chapter
}

// resolvePlacement computes the placement for a new chapter. Root placements
// need no lookup; branch placements fetch the parent and extend its ancestry.
func (s *Service) resolvePlacement(ctx context.Context, story *data.Story, parentChapterID *primitive.ObjectID) (*TreePlacement, error) {
	if parentChapterID == nil {
		return &TreePlacement{IsRoot: true, AncestorIDs: []primitive.ObjectID{}}, nil
	}

	parent, err := s.store.FindChapterByID(ctx, *parentChapterID)
	if err != nil {
		return nil, data.WrapError(data.KindInternal, "fetching parent chapter", err)
	}
	if parent == nil {
		return nil, data.NewError(data.KindNotFound, "parent chapter not found")
	}
	if parent.StoryID != story.ID {
		return nil, data.NewError(data.KindBadRequest, "parent chapter belongs to a different story")
	}

	ancestors := make([]primitive.ObjectID, 0, len(parent.AncestorIDs)+1)
	ancestors = append(ancestors, parent.AncestorIDs...)
	ancestors = append(ancestors, parent.ID)

	return &TreePlacement{
		AncestorIDs: ancestors,
		Depth:       len(ancestors),
		Parent:      parent,
	}, nil
}
