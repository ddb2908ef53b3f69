package models

import "time"

// ItemStatus tracks an operator's progress on a stored item.
type ItemStatus string

const (
	StatusNew         ItemStatus = "new"
	StatusReviewed    ItemStatus = "reviewed"
	StatusInProgress  ItemStatus = "in_progress"
	StatusImplemented ItemStatus = "implemented"
	StatusRejected    ItemStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ItemStatus) Valid() bool {
	switch s {
	case StatusNew, StatusReviewed, StatusInProgress, StatusImplemented, StatusRejected:
		return true
	}
	return false
}

// StoredItem is a classified item persisted by the SQLite sink.
type StoredItem struct {
	ID          int64          `json:"id"`
	ItemID      string         `json:"item_id"`
	Pipeline    string         `json:"pipeline"`
	SourceTag   string         `json:"source_tag"`
	Title       string         `json:"title"`
	Link        string         `json:"link"`
	Author      string         `json:"author,omitempty"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	Body        string         `json:"body,omitempty"`
	Snippet     string         `json:"snippet,omitempty"`
	Accepted    bool           `json:"accepted"`
	Reason      string         `json:"reason"`
	Extra       map[string]any `json:"extra,omitempty"`
	RawResponse *string        `json:"raw_response,omitempty"`
	Status      ItemStatus     `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
