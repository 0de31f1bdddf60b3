package models

import "time"

// Comment is a reply to a post. Comments are never edited through the API;
// they are removed together with their post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null;column:post_id" json:"post_id"`
	AuthorID  uint      `gorm:"index;not null;column:author_id" json:"author_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
