package server

import (
	"errors"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"StoryBranch/internal/chapters"
	"StoryBranch/internal/data"
)

var debug = os.Getenv("DEBUG") == "true"

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.Logger.SetLevel(log.INFO)
	if debug {
		e.Logger.SetLevel(log.DEBUG)
	}
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}\n",
	}))

	e.POST("/api/v1/create-story", s.CreateStory, s.JWTMiddleware())
	e.POST("/api/v1/create-chapter", s.CreateChapter, s.JWTMiddleware())
	e.POST("/api/v1/get-story-details", s.GetStoryDetails)
	e.POST("/api/v1/get-chapter-tree", s.GetChapterTree)
	e.POST("/api/v1/list-pull-requests", s.ListPullRequests, s.JWTMiddleware())
	e.POST("/api/v1/add-collaborator", s.AddCollaborator, s.JWTMiddleware())
	e.GET("/api/v1/health", s.healthHandler)
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Not found"})
	})

	return e
}

// httpStatus maps the core's error kinds to transport status codes.
func httpStatus(err error) int {
	switch data.KindOf(err) {
	case data.KindValidation:
		return http.StatusUnprocessableEntity
	case data.KindNotFound:
		return http.StatusNotFound
	case data.KindBadRequest:
		return http.StatusBadRequest
	case data.KindForbidden:
		return http.StatusForbidden
	case data.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorJSON(c echo.Context, err error) error {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		c.Logger().Error(err.Error())
		return c.JSON(status, map[string]string{"message": "Internal server error"})
	}

	message := err.Error()
	var domainErr *data.Error
	if errors.As(err, &domainErr) {
		message = domainErr.Message
	}
	return c.JSON(status, map[string]string{"message": message})
}

func (s *Server) CreateStory(c echo.Context) error {
	var story data.Story
	if err := c.Bind(&story); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	story.CreatorID = c.Get("user_id").(primitive.ObjectID)
	story.Stats = data.StoryStats{}

	if err := data.ValidateStruct(&story); err != nil {
		return errorJSON(c, err)
	}
	if err := s.db.CreateStory(c.Request().Context(), &story); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"message": "Story created successfully", "story": story})
}

func (s *Server) CreateChapter(c echo.Context) error {
	var request struct {
		StoryID         string `json:"story_id"`
		ParentChapterID string `json:"parent_chapter_id"`
		Title           string `json:"title"`
		Content         string `json:"content"`
	}
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	storyID, err := primitive.ObjectIDFromHex(request.StoryID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid story ID"})
	}

	var parentChapterID *primitive.ObjectID
	if request.ParentChapterID != "" {
		id, err := primitive.ObjectIDFromHex(request.ParentChapterID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid parent chapter ID"})
		}
		parentChapterID = &id
	}

	result, err := s.chapters.CreateChapter(c.Request().Context(), chapters.CreateChapterRequest{
		StoryID:         storyID,
		ParentChapterID: parentChapterID,
		Title:           request.Title,
		Content:         request.Content,
		UserID:          c.Get("user_id").(primitive.ObjectID),
	})
	if err != nil {
		return errorJSON(c, err)
	}

	if result.PRGate != nil {
		return c.JSON(http.StatusAccepted, map[string]any{
			"message":      "Chapter submitted for review",
			"chapter":      result.PRGate.Chapter,
			"pull_request": result.PRGate.PullRequest,
		})
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"message":       "Chapter published",
		"chapter":       result.Direct.Chapter,
		"xp_awarded":    result.Direct.XPAwarded,
		"badges_earned": result.Direct.BadgesEarned,
		"stats":         result.Direct.Stats,
	})
}

func (s *Server) GetStoryDetails(c echo.Context) error {
	var request struct {
		ID string `json:"id"`
	}
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	id, err := primitive.ObjectIDFromHex(request.ID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid story ID"})
	}
	story, err := s.db.FindStoryByID(c.Request().Context(), id)
	if err != nil {
		return errorJSON(c, err)
	}
	if story == nil || story.Status == data.StoryDeleted {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Story not found"})
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "Story found", "story": story})
}

// GetChapterTree returns the story's published chapters; with a valid bearer
// token, pending chapters the viewer authored or may approve are included.
func (s *Server) GetChapterTree(c echo.Context) error {
	var request struct {
		StoryID string `json:"story_id"`
	}
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	storyID, err := primitive.ObjectIDFromHex(request.StoryID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid story ID"})
	}

	ctx := c.Request().Context()
	story, err := s.db.FindStoryByID(ctx, storyID)
	if err != nil {
		return errorJSON(c, err)
	}
	if story == nil || story.Status == data.StoryDeleted {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Story not found"})
	}

	all, err := s.db.ListChaptersByStory(ctx, storyID)
	if err != nil {
		return errorJSON(c, err)
	}

	viewerID, authed := optionalUserID(c)
	canReview := false
	if authed && viewerID != story.CreatorID {
		collab, err := s.db.FindAcceptedCollaborator(ctx, storyID, viewerID)
		if err != nil {
			return errorJSON(c, err)
		}
		canReview = collab != nil && data.CanApprove(collab.Role)
	} else if authed {
		canReview = true
	}

	visible := make([]data.Chapter, 0, len(all))
	for _, ch := range all {
		switch ch.Status {
		case data.ChapterPublished:
			visible = append(visible, ch)
		case data.ChapterPendingApproval:
			if authed && (canReview || ch.AuthorID == viewerID) {
				visible = append(visible, ch)
			}
		}
	}

	return c.JSON(http.StatusOK, map[string]any{"message": "Chapters found", "chapters": visible})
}

func (s *Server) ListPullRequests(c echo.Context) error {
	var request struct {
		StoryID string `json:"story_id"`
		Status  string `json:"status"`
	}
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	storyID, err := primitive.ObjectIDFromHex(request.StoryID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid story ID"})
	}

	ctx := c.Request().Context()
	story, err := s.db.FindStoryByID(ctx, storyID)
	if err != nil {
		return errorJSON(c, err)
	}
	if story == nil || story.Status == data.StoryDeleted {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Story not found"})
	}

	userID := c.Get("user_id").(primitive.ObjectID)
	if userID != story.CreatorID {
		collab, err := s.db.FindAcceptedCollaborator(ctx, storyID, userID)
		if err != nil {
			return errorJSON(c, err)
		}
		if collab == nil || !data.Can(collab.Role, data.PermReviewPR) {
			return c.JSON(http.StatusForbidden, map[string]string{"message": "Not allowed to view pull requests"})
		}
	}

	prs, err := s.db.ListPullRequests(ctx, storyID, data.PullRequestStatus(request.Status))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "Pull requests found", "pull_requests": prs})
}

func (s *Server) AddCollaborator(c echo.Context) error {
	var request struct {
		StoryID string `json:"story_id"`
		UserID  string `json:"user_id"`
		Role    string `json:"role"`
	}
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	storyID, err := primitive.ObjectIDFromHex(request.StoryID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid story ID"})
	}
	userID, err := primitive.ObjectIDFromHex(request.UserID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid user ID"})
	}

	ctx := c.Request().Context()
	story, err := s.db.FindStoryByID(ctx, storyID)
	if err != nil {
		return errorJSON(c, err)
	}
	if story == nil || story.Status == data.StoryDeleted {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Story not found"})
	}

	requester := c.Get("user_id").(primitive.ObjectID)
	if requester != story.CreatorID {
		collab, err := s.db.FindAcceptedCollaborator(ctx, storyID, requester)
		if err != nil {
			return errorJSON(c, err)
		}
		if collab == nil || !data.Can(collab.Role, data.PermManageStory) {
			return c.JSON(http.StatusForbidden, map[string]string{"message": "Not allowed to manage collaborators"})
		}
	}

	invite := data.StoryCollaborator{
		StoryID: storyID,
		UserID:  userID,
		Role:    data.NormalizeRole(request.Role),
		Status:  data.CollaboratorPending,
	}
	if err := s.db.AddCollaborator(ctx, &invite); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"message": "Collaborator invited", "collaborator": invite})
}

func (s *Server) healthHandler(c echo.Context) error {
	health, err := s.db.Health(c.Request().Context())
	if err != nil {
		c.Logger().Error(err.Error())
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
	return c.JSON(http.StatusOK, health)
}
