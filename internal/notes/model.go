package notes

import (
	"time"
)

const (
	// DefaultTitle is applied when an interactively created note carries no title.
	DefaultTitle = "Untitled Note"
	// DefaultSyncTitle is applied to notes imported from a client-side cache.
	// The sync path uses a shorter default than the create path.
	DefaultSyncTitle = "Untitled"
	// DefaultCategory is applied when no category is supplied.
	DefaultCategory = "Miscellaneous"
)

// Note models a persisted note row. Owner scoping is enforced by every
// query; OwnerID is nullable only to accommodate legacy rows that predate
// account scoping, current flows always assign it.
type Note struct {
	ID           string     `gorm:"column:id;primaryKey;size:36;not null"`
	OwnerID      *string    `gorm:"column:owner_id;size:36;index:idx_notes_owner_order,priority:1"`
	Title        string     `gorm:"column:title;size:250;not null"`
	Content      string     `gorm:"column:content;type:text;not null"`
	Category     string     `gorm:"column:category;size:50;not null;default:Miscellaneous"`
	IsPinned     bool       `gorm:"column:is_pinned;not null;default:false;index:idx_notes_owner_order,priority:2"`
	ReminderDate *time.Time `gorm:"column:reminder_date"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;not null;index:idx_notes_owner_order,priority:3"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}

// NoteJSON is the wire representation of a note. Timestamps are ISO-8601
// strings; ReminderDate is null when no reminder is set. The owner id is
// deliberately not exposed.
type NoteJSON struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Content      string  `json:"content"`
	Category     string  `json:"category"`
	IsPinned     bool    `json:"is_pinned"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
	ReminderDate *string `json:"reminder_date"`
}

// JSON converts the stored note into its wire representation.
func (n Note) JSON() NoteJSON {
	payload := NoteJSON{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Category:  n.Category,
		IsPinned:  n.IsPinned,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: n.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if n.ReminderDate != nil {
		formatted := n.ReminderDate.UTC().Format(time.RFC3339)
		payload.ReminderDate = &formatted
	}
	return payload
}

// NotesJSON converts a slice of stored notes preserving order.
func NotesJSON(records []Note) []NoteJSON {
	payloads := make([]NoteJSON, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, record.JSON())
	}
	return payloads
}
