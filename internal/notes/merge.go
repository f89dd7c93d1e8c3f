package notes

import "time"

// importDecision captures how a single sync entry is admitted. Entries with
// neither title nor content are dropped; everything else is normalized and
// created as a new note, independent of any existing row. Sync is
// append-only: there is no de-duplication against notes already stored.
type importDecision struct {
	Create       bool
	Title        string
	Content      string
	Category     string
	IsPinned     bool
	ReminderDate *time.Time
}

// resolveImport normalizes one client-cached note. Pure so the admission
// rules can be tested without a store; the service applies accepted
// decisions inside a single transaction.
func resolveImport(entry SyncEntry) importDecision {
	if entry.Title == "" && entry.Content == "" {
		return importDecision{}
	}

	title := entry.Title
	if title == "" {
		title = DefaultSyncTitle
	}

	category := DefaultCategory
	if entry.Category != nil {
		category = *entry.Category
	}

	var reminder *time.Time
	if parsed, ok := parseSyncReminder(entry.ReminderDate); ok {
		reminder = &parsed
	}

	return importDecision{
		Create:       true,
		Title:        title,
		Content:      entry.Content,
		Category:     category,
		IsPinned:     entry.IsPinned.Value(),
		ReminderDate: reminder,
	}
}
