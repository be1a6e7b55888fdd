package model

import "time"

// LibraryEntry links a user to a cached media record with their rating,
// comment and favorite flag. One entry per (user, media).
type LibraryEntry struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    int64     `gorm:"column:user_id;not null;uniqueIndex:uq_user_media" json:"userId"`
	MediaID   string    `gorm:"column:media_id;size:62;not null;uniqueIndex:uq_user_media" json:"mediaId"`
	Rating    *int      `gorm:"column:rating" json:"rating,omitempty"` // 0-10
	Comment   *string   `gorm:"column:comment;type:text" json:"comment,omitempty"`
	Favorite  bool      `gorm:"column:favorite;not null;default:false" json:"favorite"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (LibraryEntry) TableName() string {
	return "library_entries"
}
