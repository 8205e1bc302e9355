package chapters

import (
	"StoryBranch/internal/data"
)

// validateBranching enforces the story-level and structural limits on where a
// branch may attach. Only called for non-root placements.
func validateBranching(story *data.Story, parent *data.Chapter) error {
	if !story.Settings.AllowBranching {
		return data.NewError(data.KindForbidden, "branching is disabled for this story")
	}
	if parent.Depth >= data.MaxDepth {
		return data.Errorf(data.KindValidation, "maximum chapter depth of %d reached", data.MaxDepth)
	}
	if parent.Stats.ChildBranches >= data.MaxBranchesPerChapter {
		return data.Errorf(data.KindValidation, "chapter already has the maximum of %d branches", data.MaxBranchesPerChapter)
	}
	return nil
}
