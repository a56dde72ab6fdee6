package models

import "time"

// Post is a shared link with its preview, likes and comments.
// Author name and avatar are copied at post time and do not follow later profile edits.
type Post struct {
	ID              string     `gorm:"primaryKey;size:36" json:"_id" bson:"_id"`
	UserID          string     `gorm:"index;size:36;not null" json:"userId" bson:"userId"`
	FirstName       string     `gorm:"size:64;not null" json:"firstName" bson:"firstName"`
	LastName        string     `gorm:"size:64;not null" json:"lastName" bson:"lastName"`
	URL             string     `gorm:"size:2048;not null" json:"url" bson:"url"`
	Description     string     `gorm:"type:text" json:"description" bson:"description"`
	Summary         string     `gorm:"type:text" json:"summary" bson:"summary"`
	PicturePath     string     `gorm:"size:255;not null" json:"picturePath" bson:"picturePath"`
	UserPicturePath string     `gorm:"size:255" json:"userPicturePath" bson:"userPicturePath"`
	Likes           Likes      `gorm:"type:json" json:"likes" bson:"likes"`
	Comments        StringList `gorm:"type:json" json:"comments" bson:"comments"`
	Version         int64      `gorm:"not null;default:1" json:"-" bson:"version"`
	CreatedAt       time.Time  `gorm:"index" json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// LikeCount returns the number of users currently liking the post.
func (p *Post) LikeCount() int {
	return p.Likes.Count()
}

// Clone returns a deep copy so callers can mutate the result freely.
func (p *Post) Clone() *Post {
	cp := *p
	cp.Likes = p.Likes.Clone()
	cp.Comments = append(StringList{}, p.Comments...)
	return &cp
}

// Normalize replaces nil collections with empty ones so the JSON shape is stable.
func (p *Post) Normalize() {
	if p.Likes == nil {
		p.Likes = Likes{}
	}
	if p.Comments == nil {
		p.Comments = StringList{}
	}
}
