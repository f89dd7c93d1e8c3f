package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/AreejAshiq/online-note-manager/internal/auth"
	"github.com/AreejAshiq/online-note-manager/internal/notes"
	"github.com/AreejAshiq/online-note-manager/internal/users"
)

const testSigningSecret = "router-test-secret"

type testEnv struct {
	handler http.Handler
	issuer  *auth.TokenIssuer
	users   *users.Service
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&notes.Note{}, &users.User{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	idProvider := notes.NewUUIDProvider()
	usersService, err := users.NewService(users.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		BcryptCost: bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("failed to build users service: %v", err)
	}
	notesService, err := notes.NewService(notes.ServiceConfig{
		Database:   db,
		IDProvider: idProvider,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build notes service: %v", err)
	}

	issuer := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(testSigningSecret),
		Issuer:        "notes-auth",
		Audience:      "notes-api",
		TokenTTL:      time.Hour,
	})

	handler, err := NewHTTPHandler(Dependencies{
		TokenManager: issuer,
		UsersService: usersService,
		NotesService: notesService,
		Logger:       zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}

	return testEnv{handler: handler, issuer: issuer, users: usersService}
}

func (e testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := e.issuer.IssueToken(t.Context(), userID, "tester")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

func (e testEnv) request(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	e.handler.ServeHTTP(recorder, request)
	return recorder
}
