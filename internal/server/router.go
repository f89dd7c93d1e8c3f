package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/AreejAshiq/online-note-manager/internal/notes"
	"github.com/AreejAshiq/online-note-manager/internal/users"
)

const ownerIDContextKey = "notes_owner_id"

const (
	statusSuccess = "success"
	statusError   = "error"
)

var (
	errMissingTokenManager  = errors.New("token manager dependency required")
	errMissingUsersService  = errors.New("users service dependency required")
	errMissingNotesService  = errors.New("notes service dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// SessionTokenManager issues tokens at login and resolves the verified
// owner id on every protected request.
type SessionTokenManager interface {
	IssueToken(ctx context.Context, userID, username string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies wires the HTTP surface to its collaborators.
type Dependencies struct {
	TokenManager SessionTokenManager
	UsersService *users.Service
	NotesService *notes.Service
	Logger       *zap.Logger
}

// NewHTTPHandler builds the gin router with auth and notes routes.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.NotesService == nil {
		return nil, errMissingNotesService
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
		tokens:       deps.TokenManager,
		usersService: deps.UsersService,
		notesService: deps.NotesService,
		logger:       logger,
	}

	router.POST("/auth/signup", handler.handleSignup)
	router.POST("/auth/login", handler.handleLogin)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.GET("/notes", handler.handleListNotes)
	protected.POST("/notes", handler.handleCreateNote)
	protected.GET("/notes/search", handler.handleSearchNotes)
	protected.GET("/notes/:id", handler.handleGetNote)
	protected.PUT("/notes/:id", handler.handleUpdateNote)
	protected.DELETE("/notes/:id", handler.handleDeleteNote)
	protected.POST("/notes/sync", handler.handleSyncNotes)

	return router, nil
}

type httpHandler struct {
	tokens       SessionTokenManager
	usersService *users.Service
	notesService *notes.Service
	logger       *zap.Logger
}

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponsePayload struct {
	Status      string `json:"status"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleSignup(c *gin.Context) {
	var request credentialsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid JSON data received")
		return
	}

	if _, err := h.usersService.Signup(c.Request.Context(), request.Username, request.Password); err != nil {
		status, message := signupFailure(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("signup failed", zap.Error(err))
		}
		writeError(c, status, message)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  statusSuccess,
		"message": "Account created successfully! You can now log in.",
	})
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request credentialsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid JSON data received")
		return
	}

	account, err := h.usersService.Authenticate(c.Request.Context(), request.Username, request.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			writeError(c, http.StatusUnauthorized, "Invalid username or password.")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Could not log in")
		return
	}

	token, expiresIn, err := h.tokens.IssueToken(c.Request.Context(), account.ID, account.Username)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "Could not log in")
		return
	}

	c.JSON(http.StatusOK, loginResponsePayload{
		Status:      statusSuccess,
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	ownerID := c.GetString(ownerIDContextKey)

	var input notes.CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid JSON data received")
		return
	}

	note, err := h.notesService.Create(c.Request.Context(), ownerID, input)
	if err != nil {
		h.writeNoteFailure(c, err, "Note title or content is required", "Could not save note to database")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  statusSuccess,
		"message": "Note created successfully",
		"note":    note.JSON(),
	})
}

func (h *httpHandler) handleGetNote(c *gin.Context) {
	ownerID := c.GetString(ownerIDContextKey)

	note, err := h.notesService.Get(c.Request.Context(), ownerID, c.Param("id"))
	if err != nil {
		h.writeNoteFailure(c, err, "Invalid request", "Could not load note from database")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": statusSuccess,
		"note":   note.JSON(),
	})
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	ownerID := c.GetString(ownerIDContextKey)

	var patch notes.UpdateInput
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid JSON data received")
		return
	}

	note, err := h.notesService.Update(c.Request.Context(), ownerID, c.Param("id"), patch)
	if err != nil {
		h.writeNoteFailure(c, err, "No data provided to update", "Could not update note in database")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  statusSuccess,
		"message": "Note updated successfully.",
		"note":    note.JSON(),
	})
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	ownerID := c.GetString(ownerIDContextKey)

	if err := h.notesService.Delete(c.Request.Context(), ownerID, c.Param("id")); err != nil {
		h.writeNoteFailure(c, err, "Invalid request", "Could not delete note from database")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  statusSuccess,
		"message": "Note deleted successfully.",
	})
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	ownerID := c.GetString(ownerIDContextKey)

	records, err := h.notesService.List(c.Request.Context(), ownerID)
	if err != nil {
		h.writeNoteFailure(c, err, "Invalid request", "Could not load notes from database")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": statusSuccess,
		"notes":  notes.NotesJSON(records),
	})
}

func (h *httpHandler) handleSearchNotes(c *gin.Context) {
	ownerID := c.GetString(ownerIDContextKey)

	records, err := h.notesService.Search(c.Request.Context(), ownerID, c.Query("q"))
	if err != nil {
		h.writeNoteFailure(c, err, "Invalid request", "Could not load notes from database")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": statusSuccess,
		"notes":  notes.NotesJSON(records),
	})
}

func (h *httpHandler) handleSyncNotes(c *gin.Context) {
	ownerID := c.GetString(ownerIDContextKey)

	var entries []notes.SyncEntry
	if err := c.ShouldBindJSON(&entries); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid JSON data received")
		return
	}

	result, err := h.notesService.SyncImport(c.Request.Context(), ownerID, entries)
	if err != nil {
		h.writeNoteFailure(c, err, "Invalid request", "Could not sync notes to database")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       statusSuccess,
		"synced_count": result.CreatedCount,
		"cloud_notes":  notes.NotesJSON(result.Notes),
	})
}

// writeNoteFailure maps a notes service error to the API failure envelope.
// Validation and not-found causes keep their per-endpoint messages; store
// failures get a generic message so internals never leak to callers.
func (h *httpHandler) writeNoteFailure(c *gin.Context, err error, validationMessage, persistenceMessage string) {
	switch {
	case errors.Is(err, notes.ErrValidation):
		writeError(c, http.StatusBadRequest, validationMessage)
	case errors.Is(err, notes.ErrNotFound):
		writeError(c, http.StatusNotFound, "Note not found or unauthorized")
	default:
		h.logger.Error("notes request failed", zap.Error(err))
		writeError(c, http.StatusInternalServerError, persistenceMessage)
	}
}

func signupFailure(err error) (int, string) {
	switch {
	case errors.Is(err, users.ErrCredentialsRequired):
		return http.StatusBadRequest, "Username and Password are required."
	case errors.Is(err, users.ErrPasswordTooShort):
		return http.StatusBadRequest, "Password must be at least 8 characters long."
	case errors.Is(err, users.ErrPasswordNeedsDigit):
		return http.StatusBadRequest, "Password must contain at least one number."
	case errors.Is(err, users.ErrPasswordNeedsUpper):
		return http.StatusBadRequest, "Password must contain at least one capital letter."
	case errors.Is(err, users.ErrPasswordEqualsUsername):
		return http.StatusBadRequest, "Username and password cannot be the same."
	case errors.Is(err, users.ErrUsernameTaken):
		return http.StatusBadRequest, "Username already exists. Please choose a different one."
	default:
		return http.StatusInternalServerError, "Could not create account"
	}
}

func writeError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"status":  statusError,
		"message": message,
	})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": statusError, "message": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": statusError, "message": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": statusError, "message": "unauthorized"})
		return
	}
	c.Set(ownerIDContextKey, subject)
	c.Next()
}
