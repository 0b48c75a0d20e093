package domain
import (
	"time"
)

const (
	DefaultTitle    = "Untitled"
	DefaultLanguage = "text"
)

// Paste rows are immutable once written; there is no update or delete path.
type Paste struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}
type CreateParams struct {
	Content  string
	Title    string
	Language string
}

// ListEntry is the listing projection. Content is omitted so recent-paste
// pages never drag full bodies out of storage.
type ListEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
