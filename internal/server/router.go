package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarcoPoloResearchLab/showcase/backend/internal/apps"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/config"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/contents"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/gallery"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/gateway"
	"github.com/MarcoPoloResearchLab/showcase/backend/internal/uploads"
)

const sessionSubjectContextKey = "showcase_session_subject"

const maxUploadBytes = 10 << 20

var (
	errMissingAppsService     = errors.New("apps service dependency required")
	errMissingContentsService = errors.New("contents service dependency required")
	errMissingMemosService    = errors.New("memos service dependency required")
	errMissingGalleryService  = errors.New("gallery service dependency required")
	errMissingUploadsService  = errors.New("uploads service dependency required")
	errInvalidAuthorization   = errors.New("authorization header missing or invalid")
)

// Dependencies carries everything the router needs.
type Dependencies struct {
	AppsService     *apps.Service
	ContentsService *contents.Service
	MemosService    *contents.Service
	GalleryService  *gallery.Service
	UploadsService  *uploads.Service
	Sessions        *auth.Manager
	Logger          *zap.Logger

	// Mode and UploadsDir let the router serve /uploads/ itself in local
	// mode, where no CDN sits in front of the assets.
	Mode       config.RuntimeMode
	UploadsDir string
}

// NewHTTPHandler builds the gin router for the API surface.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.AppsService == nil {
		return nil, errMissingAppsService
	}
	if deps.ContentsService == nil {
		return nil, errMissingContentsService
	}
	if deps.MemosService == nil {
		return nil, errMissingMemosService
	}
	if deps.GalleryService == nil {
		return nil, errMissingGalleryService
	}
	if deps.UploadsService == nil {
		return nil, errMissingUploadsService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		apps:     deps.AppsService,
		contents: deps.ContentsService,
		memos:    deps.MemosService,
		gallery:  deps.GalleryService,
		uploads:  deps.UploadsService,
		sessions: deps.Sessions,
		logger:   logger,
	}

	router.GET("/healthz", handler.handleHealth)
	router.POST("/api/auth/login", handler.handleLogin)

	if deps.Mode == config.ModeLocal && deps.UploadsDir != "" {
		router.Static("/uploads", deps.UploadsDir)
	}

	// Reads stay open: the public site fetches them without a session.
	router.GET("/api/apps", handler.handleListApps)
	router.GET("/api/featured", handler.handleGetFlags)
	router.GET("/api/events", handler.handleGetFlags)
	router.GET("/api/contents", handler.listContents(deps.ContentsService))
	router.GET("/api/memos", handler.listContents(deps.MemosService))
	router.GET("/api/gallery", handler.handleListGallery)

	mutating := router.Group("/")
	if deps.Sessions != nil && deps.Sessions.Enabled() {
		mutating.Use(handler.authorizeRequest)
	}

	mutating.POST("/api/apps", handler.handlePostApps)
	mutating.PUT("/api/apps", handler.handlePutApp)
	mutating.DELETE("/api/apps", handler.handleDeleteApp)

	mutating.POST("/api/featured", handler.postFlags(apps.ListFeatured))
	mutating.POST("/api/events", handler.postFlags(apps.ListEvents))
	mutating.PUT("/api/featured", handler.putFlags(apps.ListFeatured))
	mutating.PUT("/api/events", handler.putFlags(apps.ListEvents))

	mutating.POST("/api/contents", handler.postContents(deps.ContentsService))
	mutating.PUT("/api/contents", handler.putContents(deps.ContentsService))
	mutating.DELETE("/api/contents", handler.deleteContents(deps.ContentsService))
	mutating.POST("/api/memos", handler.postContents(deps.MemosService))
	mutating.PUT("/api/memos", handler.putContents(deps.MemosService))
	mutating.DELETE("/api/memos", handler.deleteContents(deps.MemosService))

	mutating.POST("/api/gallery", handler.handlePostGallery)
	mutating.DELETE("/api/gallery", handler.handleDeleteGallery)

	mutating.POST("/api/uploads", handler.handleUpload)
	mutating.DELETE("/api/uploads", handler.handleDeleteUpload)

	return router, nil
}

type httpHandler struct {
	apps     *apps.Service
	contents *contents.Service
	memos    *contents.Service
	gallery  *gallery.Service
	uploads  *uploads.Service
	sessions *auth.Manager
	logger   *zap.Logger
}

// writeResponsePayload is the uniform body for mutations: the HTTP layer
// reports success even when persistence degraded to the memory tier, and the
// storage/warning fields tell the caller how durable the write was.
type writeResponsePayload struct {
	Success bool   `json:"success"`
	Storage string `json:"storage"`
	Data    any    `json:"data"`
	Warning string `json:"warning,omitempty"`
}

// readMutationBody rejects empty and literal-null bodies up front. A null
// body would otherwise decode into a nil slice and replace the whole list.
func readMutationBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 || bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return nil, false
	}
	return body, true
}

func respondWrite[T any](c *gin.Context, result gateway.WriteResult[T]) {
	c.JSON(http.StatusOK, writeResponsePayload{
		Success: true,
		Storage: string(result.Tier),
		Data:    result.Data,
		Warning: result.Warning,
	})
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type loginRequestPayload struct {
	Password string `json:"password"`
}

type loginResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	if h.sessions == nil || !h.sessions.Enabled() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "auth_disabled"})
		return
	}

	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	token, expiresIn, err := h.sessions.Login(request.Password)
	if err != nil {
		h.logger.Warn("admin login failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, loginResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.sessions.ValidateToken(token)
	if err != nil {
		h.logger.Warn("session validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(sessionSubjectContextKey, subject)
	c.Next()
}

// --- apps ---

func (h *httpHandler) handleListApps(c *gin.Context) {
	c.JSON(http.StatusOK, h.apps.List(c.Request.Context()))
}

func (h *httpHandler) handlePostApps(c *gin.Context) {
	body, ok := readMutationBody(c)
	if !ok {
		return
	}

	var list []apps.App
	if err := json.Unmarshal(body, &list); err == nil {
		result, replaceErr := h.apps.Replace(c.Request.Context(), list)
		if replaceErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": replaceErr.Error()})
			return
		}
		respondWrite(c, result)
		return
	}

	var single apps.App
	if err := json.Unmarshal(body, &single); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	_, result, createErr := h.apps.Create(c.Request.Context(), single)
	if createErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": createErr.Error()})
		return
	}
	respondWrite(c, result)
}

type putAppPayload struct {
	ID string `json:"id"`
	apps.UpdateRequest
}

func (h *httpHandler) handlePutApp(c *gin.Context) {
	var request putAppPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.ID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	updated, result, err := h.apps.Update(c.Request.Context(), request.ID, request.UpdateRequest)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, writeResponsePayload{
		Success: true,
		Storage: string(result.Tier),
		Data:    updated,
		Warning: result.Warning,
	})
}

func (h *httpHandler) handleDeleteApp(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id query parameter required"})
		return
	}
	result, err := h.apps.Delete(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, writeResponsePayload{
		Success: true,
		Storage: string(result.Tier),
		Data:    gin.H{"deleted": id},
		Warning: result.Warning,
	})
}

// --- featured / events id-sets ---

func (h *httpHandler) handleGetFlags(c *gin.Context) {
	c.JSON(http.StatusOK, h.apps.FlagSets(c.Request.Context()))
}

// postFlags accepts either a bare id array destined for the endpoint's own
// list, or a full {featured, events} document; either way the ids are
// union-merged, never overwritten.
func (h *httpHandler) postFlags(list apps.ListName) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := readMutationBody(c)
		if !ok {
			return
		}

		var incoming apps.IDSets
		var ids []string
		if err := json.Unmarshal(body, &ids); err == nil {
			if list == apps.ListEvents {
				incoming.Events = ids
			} else {
				incoming.Featured = ids
			}
		} else if err := json.Unmarshal(body, &incoming); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
		if len(incoming.Featured)+len(incoming.Events) == 0 {
			// A decodable body that carries no ids is a malformed delta, not
			// an empty merge.
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}

		respondWrite(c, h.apps.AddFlags(c.Request.Context(), incoming))
	}
}

type flagTogglePayload struct {
	AppID  string `json:"appId"`
	ID     string `json:"id"`
	List   string `json:"list"`
	Type   string `json:"type"`
	Action string `json:"action"`
	Op     string `json:"op"`
}

func (p flagTogglePayload) appID() string {
	if p.AppID != "" {
		return p.AppID
	}
	return p.ID
}

func (p flagTogglePayload) action() string {
	if p.Action != "" {
		return p.Action
	}
	return p.Op
}

func (p flagTogglePayload) listName() string {
	if p.List != "" {
		return p.List
	}
	return p.Type
}

func (h *httpHandler) putFlags(defaultList apps.ListName) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request flagTogglePayload
		if err := c.ShouldBindJSON(&request); err != nil || request.appID() == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}

		list := defaultList
		if request.listName() != "" {
			parsed, err := apps.ParseListName(request.listName())
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			list = parsed
		}

		switch strings.ToLower(strings.TrimSpace(request.action())) {
		case "add":
			incoming := apps.IDSets{}
			if list == apps.ListEvents {
				incoming.Events = []string{request.appID()}
			} else {
				incoming.Featured = []string{request.appID()}
			}
			respondWrite(c, h.apps.AddFlags(c.Request.Context(), incoming))
		case "remove":
			respondWrite(c, h.apps.RemoveFlag(c.Request.Context(), list, request.appID()))
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "action must be add or remove"})
		}
	}
}

// --- contents / memos ---

func (h *httpHandler) listContents(service *contents.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, service.List(c.Request.Context()))
	}
}

func (h *httpHandler) postContents(service *contents.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := readMutationBody(c)
		if !ok {
			return
		}

		var list []contents.Content
		if err := json.Unmarshal(body, &list); err == nil {
			result, replaceErr := service.Replace(c.Request.Context(), list)
			if replaceErr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": replaceErr.Error()})
				return
			}
			respondWrite(c, result)
			return
		}

		var single contents.Content
		if err := json.Unmarshal(body, &single); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
		record, result, createErr := service.Create(c.Request.Context(), single)
		if createErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": createErr.Error()})
			return
		}
		c.JSON(http.StatusOK, writeResponsePayload{
			Success: true,
			Storage: string(result.Tier),
			Data:    record,
			Warning: result.Warning,
		})
	}
}

type putContentPayload struct {
	ID string `json:"id"`
	contents.UpdateRequest
}

func (h *httpHandler) putContents(service *contents.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request putContentPayload
		if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.ID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}

		updated, result, err := service.Update(c.Request.Context(), request.ID, request.UpdateRequest)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, writeResponsePayload{
			Success: true,
			Storage: string(result.Tier),
			Data:    updated,
			Warning: result.Warning,
		})
	}
}

func (h *httpHandler) deleteContents(service *contents.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Query("id"))
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id query parameter required"})
			return
		}
		result, err := service.Delete(c.Request.Context(), id)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, writeResponsePayload{
			Success: true,
			Storage: string(result.Tier),
			Data:    gin.H{"deleted": id},
			Warning: result.Warning,
		})
	}
}

// --- gallery ---

func (h *httpHandler) handleListGallery(c *gin.Context) {
	c.JSON(http.StatusOK, h.gallery.List(c.Request.Context()))
}

func (h *httpHandler) handlePostGallery(c *gin.Context) {
	body, ok := readMutationBody(c)
	if !ok {
		return
	}

	var list []gallery.Item
	if err := json.Unmarshal(body, &list); err == nil {
		result, replaceErr := h.gallery.Replace(c.Request.Context(), list)
		if replaceErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": replaceErr.Error()})
			return
		}
		respondWrite(c, result)
		return
	}

	var single gallery.Item
	if err := json.Unmarshal(body, &single); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, result, createErr := h.gallery.Create(c.Request.Context(), single)
	if createErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": createErr.Error()})
		return
	}
	c.JSON(http.StatusOK, writeResponsePayload{
		Success: true,
		Storage: string(result.Tier),
		Data:    record,
		Warning: result.Warning,
	})
}

func (h *httpHandler) handleDeleteGallery(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id query parameter required"})
		return
	}
	result, err := h.gallery.Delete(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, writeResponsePayload{
		Success: true,
		Storage: string(result.Tier),
		Data:    gin.H{"deleted": id},
		Warning: result.Warning,
	})
}

// --- uploads ---

func (h *httpHandler) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file form field required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil || int64(len(body)) > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}

	url, err := h.uploads.Save(c.Request.Context(), c.PostForm("prefix"), fileHeader.Filename, body)
	if err != nil {
		if errors.Is(err, uploads.ErrEmptyFile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("upload save failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload_failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "url": url})
}

type deleteUploadPayload struct {
	URL string `json:"url"`
}

func (h *httpHandler) handleDeleteUpload(c *gin.Context) {
	target := strings.TrimSpace(c.Query("url"))
	if target == "" {
		var request deleteUploadPayload
		if err := c.ShouldBindJSON(&request); err == nil {
			target = strings.TrimSpace(request.URL)
		}
	}
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url required"})
		return
	}

	err := h.uploads.Delete(c.Request.Context(), target)
	switch {
	case errors.Is(err, uploads.ErrExternalURL):
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "external url, cannot delete"})
	case errors.Is(err, uploads.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "asset not found"})
	case err != nil:
		h.logger.Error("upload delete failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "deleted"})
	}
}

// respondError maps service errors onto statuses: missing records are 404,
// everything else surfaced here is a request-shape problem.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apps.ErrNotFound), errors.Is(err, contents.ErrNotFound), errors.Is(err, gallery.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
