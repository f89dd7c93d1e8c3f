package notes

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// createReminderLayout matches the value emitted by datetime-local form
// inputs, the only format the interactive create/update paths accept.
const createReminderLayout = "2006-01-02T15:04"

// syncReminderLayouts are tried in order when importing client-cached notes,
// whose reminder timestamps arrive as ISO-8601 strings of varying precision.
var syncReminderLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	createReminderLayout,
}

// PinnedFlag decodes a JSON boolean or the strings "true"/"false"
// (case-insensitive) while remembering whether the field was present at all.
// Presence matters: an update patch that names is_pinned always replaces the
// stored value, one that omits it leaves the value alone.
type PinnedFlag struct {
	present bool
	value   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *PinnedFlag) UnmarshalJSON(data []byte) error {
	var asBool bool
	if err := json.Unmarshal(data, &asBool); err == nil {
		f.present = true
		f.value = asBool
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("is_pinned must be a boolean or a string: %w", err)
	}
	f.present = true
	f.value = strings.EqualFold(strings.TrimSpace(asString), "true")
	return nil
}

// Present reports whether the field appeared in the request body.
func (f PinnedFlag) Present() bool {
	return f.present
}

// Value returns the decoded flag; false when the field was absent.
func (f PinnedFlag) Value() bool {
	return f.value
}

// CreateInput carries the optional fields accepted when creating a note.
type CreateInput struct {
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	IsPinned     PinnedFlag `json:"is_pinned"`
	Category     *string    `json:"category"`
	ReminderDate string     `json:"reminder_date"`
}

// UpdateInput carries a partial patch. Pointer fields distinguish "key
// present" from "key absent": category and reminder_date apply whenever
// present (even empty), while empty title/content are ignored rather than
// clearing the stored value.
type UpdateInput struct {
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Category     *string    `json:"category"`
	IsPinned     PinnedFlag `json:"is_pinned"`
	ReminderDate *string    `json:"reminder_date"`
}

// Empty reports whether the patch names no recognized field. Title and
// content count as absent when empty, matching their ignore-when-falsy
// update behavior.
func (in UpdateInput) Empty() bool {
	return in.Title == "" &&
		in.Content == "" &&
		in.Category == nil &&
		!in.IsPinned.Present() &&
		in.ReminderDate == nil
}

// SyncEntry is one client-cached note in a sync payload. Entries carry no
// server id; each admitted entry becomes a brand-new note.
type SyncEntry struct {
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Category     *string    `json:"category"`
	IsPinned     PinnedFlag `json:"is_pinned"`
	ReminderDate string     `json:"reminder_date"`
}

// parseCreateReminder parses the datetime-local layout. The zero return with
// ok=false covers both the absent and the unparseable case; unparseable input
// is never an error on this path.
func parseCreateReminder(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse(createReminderLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.UTC(), true
}

// parseSyncReminder parses an ISO-8601 reminder from a client cache. A
// trailing "Z" is accepted as an explicit UTC offset.
func parseSyncReminder(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range syncReminderLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}
