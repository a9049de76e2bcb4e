// Package api defines the HTTP surface: simulated auth, resume
// extraction, the studio tools, the portfolio CRUD, and the live
// interview websocket endpoint.
package api

import (
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/zera-labs/zera-server/domain/entities"
	"github.com/zera-labs/zera-server/domain/repositories"
	"github.com/zera-labs/zera-server/internal/auth"
	"github.com/zera-labs/zera-server/internal/websocket"
	"github.com/zera-labs/zera-server/usecase"
)

// Handlers bundles the collaborators the HTTP layer dispatches to
type Handlers struct {
	Extractor repositories.ResumeExtractor
	Content   repositories.ContentStudio
	Design    repositories.DesignStudio
	Portfolio *usecase.PortfolioService
	Hub       *websocket.Hub
	Logger    *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, h *Handlers) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "zera-server",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.POST("/auth/login", h.login)

	v1.POST("/resume/extract", h.extractResume)

	v1.POST("/studio/article", h.writeArticle)
	v1.POST("/studio/blog-titles", h.generateBlogTitles)
	v1.POST("/studio/resume-review", h.reviewResume)
	v1.POST("/studio/image", h.generateImage)
	v1.POST("/studio/image/edit", h.editImage)

	v1.POST("/contact", h.acknowledgeContact)

	v1.GET("/projects", h.listProjects)
	v1.POST("/projects", h.createProject)
	v1.DELETE("/projects/:id", h.deleteProject)

	// WebSocket endpoint with JWT validation
	e.GET("/ws", h.websocketWithAuth)
}

// login issues a session token. Authentication is simulated: any login
// with an email and password succeeds.
func (h *Handlers) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Email and password are required",
		})
	}

	token, err := auth.GenerateUserToken(uuid.NewString(), req.Name, req.Email)
	if err != nil {
		h.Logger.Error("failed to generate user token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	h.Logger.Info("user logged in", zap.String("email", req.Email))
	return c.JSON(http.StatusOK, LoginResponse{Token: token, Name: req.Name, Email: req.Email})
}

// extractResume accepts a multipart resume upload and returns the plain
// text extracted from it.
func (h *Handlers) extractResume(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_file",
			Message: "A resume file is required",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unreadable_file",
			Message: "Could not read the uploaded file",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unreadable_file",
			Message: "Could not read the uploaded file",
		})
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	text, err := h.Extractor.ExtractResume(c.Request().Context(), data, mimeType)
	if err != nil {
		h.Logger.Error("resume extraction failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "extraction_failed",
			Message: "Failed to parse resume. Please try pasting the text manually.",
		})
	}
	return c.JSON(http.StatusOK, ExtractResumeResponse{Text: text})
}

func (h *Handlers) writeArticle(c echo.Context) error {
	var req ArticleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request"})
	}
	if strings.TrimSpace(req.Topic) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Topic is required",
		})
	}
	if req.Length == "" {
		req.Length = repositories.ArticleMedium
	}

	text, err := h.Content.WriteArticle(c.Request().Context(), req.Topic, req.Length)
	if err != nil {
		h.Logger.Error("article generation failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "generation_failed"})
	}
	return c.JSON(http.StatusOK, TextResponse{Text: text})
}

func (h *Handlers) generateBlogTitles(c echo.Context) error {
	var req BlogTitlesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request"})
	}
	if strings.TrimSpace(req.Keywords) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Keywords are required",
		})
	}

	text, err := h.Content.GenerateBlogTitles(c.Request().Context(), req.Keywords)
	if err != nil {
		h.Logger.Error("blog title generation failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "generation_failed"})
	}
	return c.JSON(http.StatusOK, TextResponse{Text: text})
}

func (h *Handlers) reviewResume(c echo.Context) error {
	var req ResumeReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request"})
	}
	if strings.TrimSpace(req.ResumeText) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Resume text is required",
		})
	}

	text, err := h.Content.ReviewResume(c.Request().Context(), req.ResumeText)
	if err != nil {
		h.Logger.Error("resume review failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "generation_failed"})
	}
	return c.JSON(http.StatusOK, TextResponse{Text: text})
}

func (h *Handlers) acknowledgeContact(c echo.Context) error {
	var req ContactRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request"})
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Message) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Name, email, and message are required",
		})
	}

	text, err := h.Content.AcknowledgeContact(c.Request().Context(), req.Name, req.Email, req.Message)
	if err != nil {
		h.Logger.Error("contact acknowledgement failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "generation_failed"})
	}
	return c.JSON(http.StatusOK, TextResponse{Text: text})
}

func (h *Handlers) generateImage(c echo.Context) error {
	var req GenerateImageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request"})
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Prompt is required",
		})
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "1:1"
	}

	image, err := h.Design.GenerateImage(c.Request().Context(), req.Prompt, req.AspectRatio)
	if err != nil {
		h.Logger.Error("image generation failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "generation_failed"})
	}
	return c.JSON(http.StatusOK, ImageResponse{
		Data:     base64.StdEncoding.EncodeToString(image.Data),
		MIMEType: image.MIMEType,
	})
}

func (h *Handlers) editImage(c echo.Context) error {
	var req EditImageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request"})
	}
	if req.Image == "" || strings.TrimSpace(req.Prompt) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Image and prompt are required",
		})
	}
	if req.MIMEType == "" {
		req.MIMEType = "image/png"
	}

	imageData, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_image",
			Message: "Image must be base64-encoded",
		})
	}

	image, err := h.Design.EditImage(c.Request().Context(), imageData, req.MIMEType, req.Prompt)
	if err != nil {
		h.Logger.Error("image edit failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{Error: "generation_failed"})
	}
	return c.JSON(http.StatusOK, ImageResponse{
		Data:     base64.StdEncoding.EncodeToString(image.Data),
		MIMEType: image.MIMEType,
	})
}

func (h *Handlers) listProjects(c echo.Context) error {
	projectType := entities.ProjectType(c.QueryParam("type"))
	query := c.QueryParam("q")

	projects, err := h.Portfolio.List(c.Request().Context(), projectType, query)
	if err != nil {
		h.Logger.Error("failed to list projects", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error"})
	}
	if projects == nil {
		projects = []*entities.Project{}
	}
	return c.JSON(http.StatusOK, projects)
}

func (h *Handlers) createProject(c echo.Context) error {
	var req CreateProjectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request"})
	}

	project := entities.NewProject(req.Title, req.Description, req.Type, req.Payload)
	project.Tags = req.Tags
	project.Link = req.Link

	if err := h.Portfolio.Add(c.Request().Context(), project); err != nil {
		h.Logger.Warn("failed to add project", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_project",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusCreated, project)
}

func (h *Handlers) deleteProject(c echo.Context) error {
	id := c.Param("id")
	if err := h.Portfolio.Delete(c.Request().Context(), id); err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	}
	return c.NoContent(http.StatusNoContent)
}

// websocketWithAuth handles WebSocket connections with JWT authentication.
// The token is taken from the Authorization header or, for browser
// clients that cannot set headers on websocket upgrades, the token query
// parameter.
func (h *Handlers) websocketWithAuth(c echo.Context) error {
	var token string
	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimPrefix(authHeader, "Bearer ")
	}
	if token == "" {
		token = c.QueryParam("token")
	}

	if token == "" {
		h.Logger.Warn("websocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required",
		})
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		h.Logger.Warn("websocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	if claims.UserID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_token_claims",
			Message: "User ID not found in token",
		})
	}

	h.Logger.Info("websocket connection authenticated", zap.String("user_id", claims.UserID))
	return websocket.HandleWebSocket(h.Hub, c, claims.UserID, h.Logger)
}
