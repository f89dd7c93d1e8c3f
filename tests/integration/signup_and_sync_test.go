package integration_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/AreejAshiq/online-note-manager/internal/auth"
	"github.com/AreejAshiq/online-note-manager/internal/notes"
	"github.com/AreejAshiq/online-note-manager/internal/server"
	"github.com/AreejAshiq/online-note-manager/internal/users"
)

const (
	signingSecret   = "integration-secret"
	jsonContentType = "application/json"
)

func TestSignupLoginAndSyncFlow(testContext *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:integration?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		testContext.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&notes.Note{}, &users.User{}); err != nil {
		testContext.Fatalf("failed to migrate: %v", err)
	}

	idProvider := notes.NewUUIDProvider()
	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		BcryptCost: bcrypt.MinCost,
	})
	if err != nil {
		testContext.Fatalf("failed to build users service: %v", err)
	}
	notesService, err := notes.NewService(notes.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build notes service: %v", err)
	}
	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(signingSecret),
		Issuer:        "notes-auth",
		Audience:      "notes-api",
		TokenTTL:      time.Hour,
	})

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager: tokenManager,
		UsersService: usersService,
		NotesService: notesService,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}

	// Signup, then login with the same credentials.
	doJSON(testContext, handler, http.MethodPost, "/auth/signup",
		`{"username":"areej","password":"Password1"}`, "", http.StatusOK)

	loginBody := doJSON(testContext, handler, http.MethodPost, "/auth/login",
		`{"username":"areej","password":"Password1"}`, "", http.StatusOK)
	accessToken, _ := loginBody["access_token"].(string)
	if accessToken == "" {
		testContext.Fatalf("expected access token, got %v", loginBody)
	}

	// Create one note interactively.
	createBody := doJSON(testContext, handler, http.MethodPost, "/notes",
		`{"title":"Groceries","content":"milk, eggs"}`, accessToken, http.StatusOK)
	note, _ := createBody["note"].(map[string]any)
	if note["category"] != "Miscellaneous" {
		testContext.Fatalf("expected default category, got %v", note["category"])
	}

	// Import two offline notes, one of which is empty and must be skipped.
	syncBody := doJSON(testContext, handler, http.MethodPost, "/notes/sync",
		`[{"title":"Offline","reminder_date":"2025-06-02T08:00:00Z"},{"title":"","content":""}]`,
		accessToken, http.StatusOK)
	if syncBody["synced_count"] != float64(1) {
		testContext.Fatalf("expected synced_count 1, got %v", syncBody["synced_count"])
	}
	cloudNotes, _ := syncBody["cloud_notes"].([]any)
	if len(cloudNotes) != 2 {
		testContext.Fatalf("expected merged list of 2, got %v", syncBody["cloud_notes"])
	}

	// The merged list is also what a plain list returns.
	listBody := doJSON(testContext, handler, http.MethodGet, "/notes", "", accessToken, http.StatusOK)
	listed, _ := listBody["notes"].([]any)
	if len(listed) != 2 {
		testContext.Fatalf("expected 2 notes, got %v", listBody["notes"])
	}

	// Searching for offline content finds the imported note only.
	searchBody := doJSON(testContext, handler, http.MethodGet, "/notes/search?q=offline", "", accessToken, http.StatusOK)
	found, _ := searchBody["notes"].([]any)
	if len(found) != 1 {
		testContext.Fatalf("expected 1 search hit, got %v", searchBody["notes"])
	}
}

func doJSON(testContext *testing.T, handler http.Handler, method, path, body, token string, wantStatus int) map[string]any {
	testContext.Helper()

	request := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		request.Header.Set("Content-Type", jsonContentType)
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != wantStatus {
		testContext.Fatalf("%s %s: expected status %d, got %d: %s", method, path, wantStatus, recorder.Code, recorder.Body.String())
	}
	payload := map[string]any{}
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		testContext.Fatalf("failed to decode response: %v", err)
	}
	return payload
}
