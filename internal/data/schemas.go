package data

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Structural limits on the chapter tree.
const (
	MaxDepth              = 50
	MaxBranchesPerChapter = 10

	MinContentLength = 50
	MaxContentLength = 10000
	MinTitleLength   = 1
	MaxTitleLength   = 200
)

// XP awards per contribution kind.
const (
	XPCreateRootChapter   = 50
	XPCreateBranchChapter = 20
)

// Badges granted by the creation pipeline.
const (
	BadgeStoryStarter  = "story_starter"
	BadgeBranchCreator = "branch_creator"

	BranchCreatorThreshold = 10
)

type StoryStatus string

const (
	StoryDraft     StoryStatus = "draft"
	StoryPublished StoryStatus = "published"
	StoryArchived  StoryStatus = "archived"
	StoryDeleted   StoryStatus = "deleted"
)

type StorySettings struct {
	IsPublic        bool `json:"is_public" bson:"is_public"`
	AllowBranching  bool `json:"allow_branching" bson:"allow_branching"`
	RequireApproval bool `json:"require_approval" bson:"require_approval"`
	AllowComments   bool `json:"allow_comments" bson:"allow_comments"`
	AllowVoting     bool `json:"allow_voting" bson:"allow_voting"`
}

type StoryStats struct {
	TotalChapters      int     `json:"total_chapters" bson:"total_chapters"`
	TotalBranches      int     `json:"total_branches" bson:"total_branches"`
	TotalReads         int     `json:"total_reads" bson:"total_reads"`
	TotalVotes         int     `json:"total_votes" bson:"total_votes"`
	UniqueContributors int     `json:"unique_contributors" bson:"unique_contributors"`
	AverageRating      float64 `json:"average_rating" bson:"average_rating"`
}

// Mongo field paths for atomic story stat increments.
const (
	StatTotalChapters = "stats.total_chapters"
	StatTotalBranches = "stats.total_branches"
)

type Story struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title          string             `json:"title" bson:"title" validate:"required,min=3,max=100"`
	Description    string             `json:"description" bson:"description" validate:"max=500"`
	CreatorID      primitive.ObjectID `json:"creator_id" bson:"creator_id" validate:"required"`
	Settings       StorySettings      `json:"settings" bson:"settings"`
	Stats          StoryStats         `json:"stats" bson:"stats"`
	Status         StoryStatus        `json:"status" bson:"status"`
	LastActivityAt time.Time          `json:"last_activity_at" bson:"last_activity_at"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updated_at"`
}

type ChapterStatus string

const (
	ChapterPublished       ChapterStatus = "published"
	ChapterPendingApproval ChapterStatus = "pending_approval"
	ChapterRejected        ChapterStatus = "rejected"
	ChapterDeleted         ChapterStatus = "deleted"
)

type ChapterStats struct {
	Reads         int `json:"reads" bson:"reads"`
	Comments      int `json:"comments" bson:"comments"`
	ChildBranches int `json:"child_branches" bson:"child_branches"`
}

type ChapterVotes struct {
	Upvotes   int `json:"upvotes" bson:"upvotes"`
	Downvotes int `json:"downvotes" bson:"downvotes"`
	Score     int `json:"score" bson:"score"`
}

// ChapterPullRequest links a gated chapter to the pull request that proposed it.
type ChapterPullRequest struct {
	IsPR   bool                `json:"is_pr" bson:"is_pr"`
	PRID   *primitive.ObjectID `json:"pr_id,omitempty" bson:"pr_id,omitempty"`
	Status PullRequestStatus   `json:"status,omitempty" bson:"status,omitempty"`
}

// Chapter is a node in a story's tree. ParentChapterID is nil for root chapters;
// AncestorIDs is the full chain root→immediate parent and Depth == len(AncestorIDs).
type Chapter struct {
	ID              primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	StoryID         primitive.ObjectID   `json:"story_id" bson:"story_id" validate:"required"`
	ParentChapterID *primitive.ObjectID  `json:"parent_chapter_id,omitempty" bson:"parent_chapter_id,omitempty"`
	AncestorIDs     []primitive.ObjectID `json:"ancestor_ids" bson:"ancestor_ids"`
	Depth           int                  `json:"depth" bson:"depth"`
	AuthorID        primitive.ObjectID   `json:"author_id" bson:"author_id" validate:"required"`
	Title           string               `json:"title" bson:"title" validate:"required,min=1,max=200"`
	Content         string               `json:"content" bson:"content" validate:"required,min=50,max=10000"`
	Status          ChapterStatus        `json:"status" bson:"status"`
	PullRequest     ChapterPullRequest   `json:"pull_request" bson:"pull_request"`
	Stats           ChapterStats         `json:"stats" bson:"stats"`
	Votes           ChapterVotes         `json:"votes" bson:"votes"`
	Version         int                  `json:"version" bson:"version"`
	CreatedAt       time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at" bson:"updated_at"`
}

type PullRequestStatus string

const (
	PROpen     PullRequestStatus = "open"
	PRApproved PullRequestStatus = "approved"
	PRRejected PullRequestStatus = "rejected"
	PRClosed   PullRequestStatus = "closed"
	PRMerged   PullRequestStatus = "merged"
)

type PullRequestType string

const PRNewChapter PullRequestType = "new_chapter"

type PullRequestChanges struct {
	Proposed string `json:"proposed" bson:"proposed"`
}

type PullRequest struct {
	ID              primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	StoryID         primitive.ObjectID  `json:"story_id" bson:"story_id"`
	ChapterID       primitive.ObjectID  `json:"chapter_id" bson:"chapter_id"`
	ParentChapterID *primitive.ObjectID `json:"parent_chapter_id,omitempty" bson:"parent_chapter_id,omitempty"`
	AuthorID        primitive.ObjectID  `json:"author_id" bson:"author_id"`
	PRType          PullRequestType     `json:"pr_type" bson:"pr_type"`
	Title           string              `json:"title" bson:"title"`
	Changes         PullRequestChanges  `json:"changes" bson:"changes"`
	Status          PullRequestStatus   `json:"status" bson:"status"`
	CreatedAt       time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" bson:"updated_at"`
}

type CollaboratorStatus string

const (
	CollaboratorPending  CollaboratorStatus = "pending"
	CollaboratorAccepted CollaboratorStatus = "accepted"
	CollaboratorDeclined CollaboratorStatus = "declined"
	CollaboratorRemoved  CollaboratorStatus = "removed"
)

type StoryCollaborator struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	StoryID   primitive.ObjectID `json:"story_id" bson:"story_id"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	Role      Role               `json:"role" bson:"role"`
	Status    CollaboratorStatus `json:"status" bson:"status"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// UserStats is the per-user gamification document, keyed by user_id.
type UserStats struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID          primitive.ObjectID `json:"user_id" bson:"user_id"`
	XP              int                `json:"xp" bson:"xp"`
	ChaptersWritten int                `json:"chapters_written" bson:"chapters_written"`
	BranchesCreated int                `json:"branches_created" bson:"branches_created"`
	Badges          []string           `json:"badges" bson:"badges"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// UserStatDeltas are the counters an XP award bumps alongside the XP itself.
type UserStatDeltas struct {
	ChaptersWritten int
	BranchesCreated int
}

type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "pending"
	NotificationDelivered NotificationStatus = "delivered"
)

// Notification is an outbox row: written inside the creation transaction,
// delivered out-of-band by the relay loop.
type Notification struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID      primitive.ObjectID `json:"user_id" bson:"user_id"`
	Type        string             `json:"type" bson:"type"`
	Payload     map[string]any     `json:"payload" bson:"payload"`
	Status      NotificationStatus `json:"status" bson:"status"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	DeliveredAt *time.Time         `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`
}
