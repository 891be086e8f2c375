package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/botguard/botguard/internal/core"
)

// BuildKey derives the idempotency key for an action. Preference order:
// explicit id, canonical URL, content fingerprint. An info with none of
// these yields "" which disables deduplication for that action.
func BuildKey(info core.ActionInfo) string {
	if id := firstNonEmpty(info.ID, info.PostID); id != "" {
		return id
	}

	if raw := firstNonEmpty(info.URL, info.Permalink); raw != "" {
		if normalized := NormalizeURL(raw); normalized != "" {
			return normalized
		}
	}

	subreddit := strings.TrimSpace(info.Subreddit)
	title := strings.TrimSpace(info.Title)
	body := firstNonEmpty(info.Body, info.Content)

	raw := strings.TrimSpace(fmt.Sprintf("%s|%s|%s", subreddit, title, body))
	if raw == "" || raw == "||" {
		return ""
	}

	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NormalizeURL canonicalizes reddit URLs so that the same post reached via
// different mirrors dedupes to one key: scheme forced to https, host to
// old.reddit.com. Non-reddit URLs pass through trimmed.
func NormalizeURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !strings.Contains(trimmed, "reddit.com") {
		return trimmed
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + strings.TrimLeft(trimmed, "/")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || !strings.Contains(parsed.Host, "reddit.com") {
		return trimmed
	}

	parsed.Scheme = "https"
	parsed.Host = "old.reddit.com"
	return parsed.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
