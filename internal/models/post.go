package models

import "time"

// PostStatus is the publication state of a post
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
)

// Post is a blog entry stored in the relational database.
// CreatedAt never changes after insert; ModifiedAt is refreshed on every update.
type Post struct {
	ID         uint       `gorm:"primaryKey"`
	Title      string     `gorm:"size:200;not null"`
	Body       string     `gorm:"type:text;not null"`
	Status     PostStatus `gorm:"size:20;index;not null"`
	AuthorID   uint       `gorm:"index;not null"`
	Author     User       `gorm:"constraint:OnDelete:CASCADE"`
	Tags       []Tag      `gorm:"many2many:post_tags;"`
	CreatedAt  time.Time  `gorm:"autoCreateTime;index"`
	ModifiedAt time.Time  `gorm:"autoUpdateTime"`
}

// TagValues returns the tag values in association order
func (p *Post) TagValues() []string {
	values := make([]string, len(p.Tags))
	for i, t := range p.Tags {
		values[i] = t.Value
	}
	return values
}

// PostFilter narrows a post listing. Zero values mean no filter.
type PostFilter struct {
	Status   PostStatus
	AuthorID uint
	Tag      string

	// PublishedOnly hides drafts, except those written by DraftsOf when it is set
	PublishedOnly bool
	DraftsOf      uint
}

// VisibleTo reports whether viewer, nil for anonymous, may read the post.
// Drafts are visible to their author and to staff.
func (p *Post) VisibleTo(viewer *User) bool {
	return p.Status == StatusPublished || (viewer != nil && viewer.CanModify(p.AuthorID))
}
