package data

type Role string

type Permission string

const (
	RoleOwner       Role = "owner"
	RoleCoAuthor    Role = "co_author"
	RoleModerator   Role = "moderator"
	RoleReviewer    Role = "reviewer"
	RoleContributor Role = "contributor"
)

const (
	PermWriteChapter   Permission = "write_chapter"
	PermApproveChapter Permission = "approve_chapter"
	PermReviewPR       Permission = "review_pr"
	PermManageStory    Permission = "manage_story"
)

// Rank orders roles: OWNER > CO_AUTHOR/MODERATOR > REVIEWER > CONTRIBUTOR.
// Unknown roles rank below everything.
func Rank(r Role) int {
	switch r {
	case RoleOwner:
		return 4
	case RoleCoAuthor, RoleModerator:
		return 3
	case RoleReviewer:
		return 2
	case RoleContributor:
		return 1
	default:
		return 0
	}
}

func Can(r Role, p Permission) bool {
	switch r {
	case RoleOwner:
		return true
	case RoleCoAuthor, RoleModerator:
		return p == PermWriteChapter || p == PermApproveChapter || p == PermReviewPR
	case RoleReviewer:
		return p == PermWriteChapter || p == PermReviewPR
	case RoleContributor:
		return p == PermWriteChapter
	default:
		return false
	}
}

// CanApprove reports whether a role may approve chapters, which also lets its
// holder publish directly past the review gate.
func CanApprove(r Role) bool {
	return Can(r, PermApproveChapter)
}

func NormalizeRole(role string) Role {
	switch Role(role) {
	case RoleOwner, RoleCoAuthor, RoleModerator, RoleReviewer, RoleContributor:
		return Role(role)
	default:
		return RoleContributor
	}
}
