package models

import "time"

// Tag is a short label shared by any number of posts
type Tag struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Value     string    `json:"value" gorm:"uniqueIndex;size:100;not null"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateTagRequest struct {
	Value string `json:"value" validate:"required,max=100"`
}
