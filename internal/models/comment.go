package models

import "time"

// Comment represents a reader comment on a post
type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
}

// CreateCommentRequest defines the request body for adding a comment
type CreateCommentRequest struct {
	Text string `json:"text" validate:"notblank,max=500"`
}
