package chapters

import (
	"testing"

	"StoryBranch/internal/data"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestResolvePublishMode(t *testing.T) {
	creator := primitive.NewObjectID()
	other := primitive.NewObjectID()

	cases := []struct {
		name            string
		requireApproval bool
		isRoot          bool
		userID          primitive.ObjectID
		role            data.Role
		hasCollab       bool
		want            publishDecision
	}{
		{name: "root always direct", requireApproval: true, isRoot: true, userID: creator, want: decideDirect},
		{name: "approval off", requireApproval: false, userID: other, role: data.RoleContributor, hasCollab: true, want: decideDirect},
		{name: "creator bypasses gate", requireApproval: true, userID: creator, want: decideDirect},
		{name: "moderator bypasses gate", requireApproval: true, userID: other, role: data.RoleModerator, hasCollab: true, want: decideDirect},
		{name: "co-author bypasses gate", requireApproval: true, userID: other, role: data.RoleCoAuthor, hasCollab: true, want: decideDirect},
		{name: "reviewer gated", requireApproval: true, userID: other, role: data.RoleReviewer, hasCollab: true, want: decidePRGate},
		{name: "contributor gated", requireApproval: true, userID: other, role: data.RoleContributor, hasCollab: true, want: decidePRGate},
		{name: "no collaborator record gated", requireApproval: true, userID: other, want: decidePRGate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			story := &data.Story{
				ID:        primitive.NewObjectID(),
				CreatorID: creator,
				Settings:  data.StorySettings{RequireApproval: tc.requireApproval},
			}
			var collab *data.StoryCollaborator
			if tc.hasCollab {
				collab = &data.StoryCollaborator{
					StoryID: story.ID,
					UserID:  tc.userID,
					Role:    tc.role,
					Status:  data.CollaboratorAccepted,
				}
			}

			// same inputs must resolve identically every time
			for i := 0; i < 3; i++ {
				got := resolvePublishMode(story, tc.userID, tc.isRoot, collab)
				if got != tc.want {
					t.Fatalf("resolvePublishMode() = %+v, want %+v", got, tc.want)
				}
			}
		})
	}
}

func TestPullRequestTitle(t *testing.T) {
	cases := []struct {
		name  string
		depth int
		title string
		want  string
	}{
		{name: "first branch", depth: 1, title: "The Hidden Door", want: "[NEW] Chapter 2: The Hidden Door"},
		{name: "deep branch", depth: 7, title: "Descent", want: "[NEW] Chapter 8: Descent"},
		{name: "missing title", depth: 3, title: "", want: "[NEW] Chapter 4"},
		{name: "whitespace title", depth: 0, title: "   ", want: "[NEW] Chapter 1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := pullRequestTitle(tc.depth, tc.title); got != tc.want {
				t.Fatalf("pullRequestTitle(%d, %q) = %q, want %q", tc.depth, tc.title, got, tc.want)
			}
		})
	}
}
