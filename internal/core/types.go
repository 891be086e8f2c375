// Package core holds shared domain types for the automation safety layer.
package core

// ActionInfo describes the target of an automation action with whatever
// identifying fields the caller has. Any subset may be set; key derivation
// prefers the strongest identifier available.
type ActionInfo struct {
	ID        string `json:"id,omitempty"`
	PostID    string `json:"post_id,omitempty"`
	URL       string `json:"url,omitempty"`
	Permalink string `json:"permalink,omitempty"`
	Subreddit string `json:"subreddit,omitempty"`
	Title     string `json:"title,omitempty"`
	Body      string `json:"body,omitempty"`
	Content   string `json:"content,omitempty"`
}

// Status is the lifecycle state of an idempotency record.
type Status string

const (
	StatusInflight Status = "inflight"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"

	// StatusPosted is a legacy alias for success still present in older
	// state files. It is accepted on read and never written.
	StatusPosted Status = "posted"
)

// Terminal reports whether a status permits no further attempts.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusPosted
}
