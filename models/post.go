package models

import "time"

// Post is a blog entry. AuthorID and Date are set at creation and never change;
// the edit handler only touches Title, Subtitle, Body and ImgURL.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	AuthorID uint   `gorm:"index;not null;column:author_id" json:"author_id"`
	Title    string `gorm:"size:250;uniqueIndex;not null" json:"title"`
	Subtitle string `gorm:"size:250;not null" json:"subtitle"`
	// Date is the string-formatted creation date shown on the post page.
	Date      string    `gorm:"size:100;not null;column:p_date" json:"date"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	ImgURL    string    `gorm:"size:250;not null;column:img_url" json:"img_url"`
	CreatedAt time.Time `json:"created_at"`
}

// DateLayout is the display format for Post.Date, matching what the blog pages render.
const DateLayout = "January 2, 2006"
