package forum

import (
	"fmt"
	"strings"
)

const (
	// MaxTitleLen is the maximum post title length in characters.
	MaxTitleLen = 200
	// ListLimit caps every listing, search, and profile query.
	ListLimit = 50
)

// ValidatePost trims and validates a new post's title and body.
// Returns the trimmed values or a wrapped ErrValidation.
func ValidatePost(title, body string) (string, string, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" {
		return "", "", fmt.Errorf("%w: title is required", ErrValidation)
	}
	if len([]rune(title)) > MaxTitleLen {
		return "", "", fmt.Errorf("%w: title must be at most %d characters", ErrValidation, MaxTitleLen)
	}
	if body == "" {
		return "", "", fmt.Errorf("%w: body is required", ErrValidation)
	}
	return title, body, nil
}

// NormalizeReplyBody trims a reply body. An empty result means the reply
// submission is a silent no-op, not an error.
func NormalizeReplyBody(body string) (string, bool) {
	body = strings.TrimSpace(body)
	return body, body != ""
}

// NormalizeReason trims a report reason. Empty reasons are silently dropped.
func NormalizeReason(reason string) (string, bool) {
	reason = strings.TrimSpace(reason)
	return reason, reason != ""
}

// ReportTarget is the tagged post-or-reply variant a report points at.
// Construct only via TargetPost or TargetReply so that the invalid
// "both set" and "neither set" states cannot be represented.
type ReportTarget struct {
	postID  uint
	replyID uint
}

// TargetPost reports a post.
func TargetPost(id uint) ReportTarget { return ReportTarget{postID: id} }

// TargetReply reports a reply.
func TargetReply(id uint) ReportTarget { return ReportTarget{replyID: id} }

// PostID returns the targeted post id, if the target is a post.
func (t ReportTarget) PostID() (uint, bool) { return t.postID, t.postID != 0 }

// ReplyID returns the targeted reply id, if the target is a reply.
func (t ReportTarget) ReplyID() (uint, bool) { return t.replyID, t.replyID != 0 }

// Valid reports whether exactly one side of the variant is set.
func (t ReportTarget) Valid() bool {
	return (t.postID != 0) != (t.replyID != 0)
}

// DeriveUsername builds a username from an identity provider's display name:
// whitespace removed, lower-cased. When no display name is available it falls
// back to "user_" plus the first 8 characters of the identity id.
func DeriveUsername(displayName, identityID string) string {
	name := strings.ToLower(strings.Join(strings.Fields(displayName), ""))
	if name != "" {
		return name
	}
	id := identityID
	if len(id) > 8 {
		id = id[:8]
	}
	return "user_" + id
}

// Sort is a listing order.
type Sort string

const (
	// SortLatest orders by created_at descending. Default.
	SortLatest Sort = "latest"
	// SortReplies orders by reply_count descending.
	SortReplies Sort = "replies"
)

// ParseSort maps a query parameter onto a Sort, defaulting to latest.
func ParseSort(s string) Sort {
	if s == string(SortReplies) {
		return SortReplies
	}
	return SortLatest
}

// OrderClause returns the SQL ordering for this sort.
func (s Sort) OrderClause() string {
	if s == SortReplies {
		return "posts.reply_count DESC"
	}
	return "posts.created_at DESC"
}
