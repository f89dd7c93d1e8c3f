package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrValidation marks caller input that fails a required-field or shape
	// rule. No side effect occurs when it is returned.
	ErrValidation = errors.New("notes: validation failed")
	// ErrNotFound marks a note that does not exist or is not owned by the
	// caller. The two cases are deliberately indistinguishable so that the
	// API never leaks the existence of another user's notes.
	ErrNotFound = errors.New("notes: note not found")
	// ErrPersistence marks an underlying store failure. The in-flight
	// transaction is rolled back entirely before it is returned.
	ErrPersistence = errors.New("notes: persistence failure")

	errMissingDatabase        = errors.New("database handle is required")
	errMissingIDProvider      = errors.New("id provider is required")
	errMissingOwnerID         = fmt.Errorf("%w: owner identifier is required", ErrValidation)
	errTitleContentRequired   = fmt.Errorf("%w: note title or content is required", ErrValidation)
	errEmptyPatch             = fmt.Errorf("%w: no data provided to update", ErrValidation)
	noOpLogger                = zap.NewNop()
)

// ServiceError pairs a machine-readable operation code with its cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the dotted operation.reason identifier.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "notes.service.new"
	opCreate     = "notes.create"
	opGet        = "notes.get"
	opUpdate     = "notes.update"
	opDelete     = "notes.delete"
	opList       = "notes.list"
	opSearch     = "notes.search"
	opSync       = "notes.sync"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

func persistenceError(cause error) error {
	return fmt.Errorf("%w: %v", ErrPersistence, cause)
}

// ServiceConfig carries the dependencies for the notes service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// IDProvider issues identifiers for newly created notes.
type IDProvider interface {
	NewID() (string, error)
}

// Service implements note create/update/delete/search and sync import on
// top of the store. Every operation is scoped to a verified owner id
// supplied by the caller; the service never sees credentials.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Create stores a new note for the owner. Title defaults to "Untitled Note",
// category to "Miscellaneous"; a note with neither title nor content is
// rejected. An unparseable reminder date is logged and treated as absent,
// never surfaced as an error.
func (s *Service) Create(ctx context.Context, ownerID string, input CreateInput) (Note, error) {
	if ownerID == "" {
		return Note{}, newServiceError(opCreate, "missing_owner", errMissingOwnerID)
	}
	if input.Title == "" && input.Content == "" {
		return Note{}, newServiceError(opCreate, "missing_title_and_content", errTitleContentRequired)
	}

	var reminder *time.Time
	if input.ReminderDate != "" {
		if parsed, ok := parseCreateReminder(input.ReminderDate); ok {
			reminder = &parsed
		} else {
			s.loggerOrDefault().Warn("invalid reminder date ignored",
				zap.String("operation", opCreate),
				zap.String("owner_id", ownerID),
				zap.String("reminder_date", input.ReminderDate))
		}
	}

	title := input.Title
	if title == "" {
		title = DefaultTitle
	}
	category := DefaultCategory
	if input.Category != nil {
		category = *input.Category
	}

	noteID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err, zap.String("owner_id", ownerID))
		return Note{}, newServiceError(opCreate, "id_generation_failed", persistenceError(err))
	}

	now := s.clock().UTC()
	owner := ownerID
	note := Note{
		ID:           noteID,
		OwnerID:      &owner,
		Title:        title,
		Content:      input.Content,
		Category:     category,
		IsPinned:     input.IsPinned.Value(),
		ReminderDate: reminder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		s.logError(opCreate, "note_insert_failed", err, zap.String("owner_id", ownerID))
		return Note{}, newServiceError(opCreate, "note_insert_failed", persistenceError(err))
	}

	return note, nil
}

// Get returns the owner's note or ErrNotFound.
func (s *Service) Get(ctx context.Context, ownerID, noteID string) (Note, error) {
	if ownerID == "" {
		return Note{}, newServiceError(opGet, "missing_owner", errMissingOwnerID)
	}

	var note Note
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, noteID).
		Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Note{}, newServiceError(opGet, "note_not_found", ErrNotFound)
	}
	if err != nil {
		s.logError(opGet, "note_select_failed", err,
			zap.String("owner_id", ownerID),
			zap.String("note_id", noteID))
		return Note{}, newServiceError(opGet, "note_select_failed", persistenceError(err))
	}
	return note, nil
}

// Update applies a partial patch to the owner's note and refreshes
// updated_at. Title and content replace only when non-empty; category and
// is_pinned replace whenever present; reminder_date presence triggers a
// recompute that clears the reminder when the value is empty or
// unparseable. A patch naming no recognized field is rejected.
func (s *Service) Update(ctx context.Context, ownerID, noteID string, patch UpdateInput) (Note, error) {
	if ownerID == "" {
		return Note{}, newServiceError(opUpdate, "missing_owner", errMissingOwnerID)
	}
	if patch.Empty() {
		return Note{}, newServiceError(opUpdate, "empty_patch", errEmptyPatch)
	}

	var updated Note
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Note
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("owner_id = ? AND id = ?", ownerID, noteID).
			Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opUpdate, "note_not_found", ErrNotFound)
		}
		if err != nil {
			s.logError(opUpdate, "note_select_failed", err,
				zap.String("owner_id", ownerID),
				zap.String("note_id", noteID))
			return newServiceError(opUpdate, "note_select_failed", persistenceError(err))
		}

		if patch.Title != "" {
			existing.Title = patch.Title
		}
		if patch.Content != "" {
			existing.Content = patch.Content
		}
		if patch.Category != nil {
			existing.Category = *patch.Category
		}
		if patch.IsPinned.Present() {
			existing.IsPinned = patch.IsPinned.Value()
		}
		if patch.ReminderDate != nil {
			if parsed, ok := parseCreateReminder(*patch.ReminderDate); ok {
				existing.ReminderDate = &parsed
			} else {
				existing.ReminderDate = nil
			}
		}
		existing.UpdatedAt = s.clock().UTC()

		if err := tx.Save(&existing).Error; err != nil {
			s.logError(opUpdate, "note_save_failed", err,
				zap.String("owner_id", ownerID),
				zap.String("note_id", noteID))
			return newServiceError(opUpdate, "note_save_failed", persistenceError(err))
		}
		updated = existing
		return nil
	})
	if txErr != nil {
		return Note{}, txErr
	}
	return updated, nil
}

// Delete removes the owner's note. Deleting a note that does not exist or
// belongs to someone else returns ErrNotFound.
func (s *Service) Delete(ctx context.Context, ownerID, noteID string) error {
	if ownerID == "" {
		return newServiceError(opDelete, "missing_owner", errMissingOwnerID)
	}

	result := s.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, noteID).
		Delete(&Note{})
	if result.Error != nil {
		s.logError(opDelete, "note_delete_failed", result.Error,
			zap.String("owner_id", ownerID),
			zap.String("note_id", noteID))
		return newServiceError(opDelete, "note_delete_failed", persistenceError(result.Error))
	}
	if result.RowsAffected == 0 {
		return newServiceError(opDelete, "note_not_found", ErrNotFound)
	}
	return nil
}

// List returns the owner's notes ordered pinned-first, then most recently
// updated first.
func (s *Service) List(ctx context.Context, ownerID string) ([]Note, error) {
	if ownerID == "" {
		return nil, newServiceError(opList, "missing_owner", errMissingOwnerID)
	}
	return s.listOrdered(ctx, s.db.WithContext(ctx), ownerID, opList)
}

// Search returns the owner's notes whose title or content contains the
// query, case-insensitively, in list order. An empty or whitespace-only
// query behaves as List.
func (s *Service) Search(ctx context.Context, ownerID, query string) ([]Note, error) {
	if ownerID == "" {
		return nil, newServiceError(opSearch, "missing_owner", errMissingOwnerID)
	}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return s.listOrdered(ctx, s.db.WithContext(ctx), ownerID, opSearch)
	}

	pattern := "%" + strings.ToLower(trimmed) + "%"
	var records []Note
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND (lower(title) LIKE ? OR lower(content) LIKE ?)", ownerID, pattern, pattern).
		Order("is_pinned DESC, updated_at DESC").
		Find(&records).Error
	if err != nil {
		s.logError(opSearch, "query_failed", err, zap.String("owner_id", ownerID))
		return nil, newServiceError(opSearch, "query_failed", persistenceError(err))
	}
	return records, nil
}

// SyncResult reports the outcome of a sync import.
type SyncResult struct {
	CreatedCount int
	Notes        []Note
}

// SyncImport creates a new note for every admissible client-cached entry,
// in input order, inside a single transaction: either every admitted entry
// is committed or none are. Entries with neither title nor content are
// skipped without failing the batch. The returned Notes hold the owner's
// full post-merge list.
func (s *Service) SyncImport(ctx context.Context, ownerID string, entries []SyncEntry) (SyncResult, error) {
	if ownerID == "" {
		return SyncResult{}, newServiceError(opSync, "missing_owner", errMissingOwnerID)
	}

	var result SyncResult
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner := ownerID
		for _, entry := range entries {
			decision := resolveImport(entry)
			if !decision.Create {
				continue
			}

			noteID, err := s.idProvider.NewID()
			if err != nil {
				s.logError(opSync, "id_generation_failed", err, zap.String("owner_id", ownerID))
				return newServiceError(opSync, "id_generation_failed", persistenceError(err))
			}

			now := s.clock().UTC()
			note := Note{
				ID:           noteID,
				OwnerID:      &owner,
				Title:        decision.Title,
				Content:      decision.Content,
				Category:     decision.Category,
				IsPinned:     decision.IsPinned,
				ReminderDate: decision.ReminderDate,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := tx.Create(&note).Error; err != nil {
				s.logError(opSync, "note_insert_failed", err, zap.String("owner_id", ownerID))
				return newServiceError(opSync, "note_insert_failed", persistenceError(err))
			}
			result.CreatedCount++
		}

		merged, err := s.listOrdered(ctx, tx, ownerID, opSync)
		if err != nil {
			return err
		}
		result.Notes = merged
		return nil
	})
	if txErr != nil {
		return SyncResult{}, txErr
	}
	return result, nil
}

func (s *Service) listOrdered(ctx context.Context, db *gorm.DB, ownerID, operation string) ([]Note, error) {
	var records []Note
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("is_pinned DESC, updated_at DESC").
		Find(&records).Error
	if err != nil {
		s.logError(operation, "query_failed", err, zap.String("owner_id", ownerID))
		return nil, newServiceError(operation, "query_failed", persistenceError(err))
	}
	return records, nil
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("notes service error", attrs...)
}
