package source

import (
	"unicode/utf8"
)

// Markers left behind by the platform for moderated or deleted comments.
var removedMarkers = map[string]bool{
	"[deleted]": true,
	"[removed]": true,
}

// Filter holds the engagement floors for threads and the minimum size of a
// usable comment.
type Filter struct {
	minUpvotes      int
	minComments     int
	minCommentChars int
}

// NewFilter creates a filter. A thread passes when either floor is met.
func NewFilter(minUpvotes, minComments, minCommentChars int) *Filter {
	return &Filter{
		minUpvotes:      minUpvotes,
		minComments:     minComments,
		minCommentChars: minCommentChars,
	}
}

// Relevant reports whether a thread has enough votes or enough replies.
func (f *Filter) Relevant(t Thread) bool {
	return t.Upvotes >= f.minUpvotes || t.Comments >= f.minComments
}

// KeepComment reports whether a (whitespace-collapsed) comment body is worth
// sending to the model.
func (f *Filter) KeepComment(body string) bool {
	if removedMarkers[body] {
		return false
	}
	return utf8.RuneCountInString(body) >= f.minCommentChars
}
