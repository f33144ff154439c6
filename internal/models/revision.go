package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RevisionCreated = "created"
	RevisionUpdated = "updated"
	RevisionDeleted = "deleted"
)

// PostRevision is a snapshot of a post taken after each mutation, stored in MongoDB
type PostRevision struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	PostID      uint               `json:"post_id" bson:"post_id"`
	Action      string             `json:"action" bson:"action"`
	Title       string             `json:"title" bson:"title"`
	Body        string             `json:"body" bson:"body"`
	Status      PostStatus         `json:"status" bson:"status"`
	Tags        []string           `json:"tags" bson:"tags"`
	EditorEmail string             `json:"editor" bson:"editor_email"`
	RecordedAt  time.Time          `json:"recorded_at" bson:"recorded_at"`
}

// NewPostRevision snapshots post as edited by editor
func NewPostRevision(post *Post, editor *User, action string) *PostRevision {
	return &PostRevision{
		PostID:      post.ID,
		Action:      action,
		Title:       post.Title,
		Body:        post.Body,
		Status:      post.Status,
		Tags:        post.TagValues(),
		EditorEmail: editor.Email,
		RecordedAt:  time.Now().UTC(),
	}
}
