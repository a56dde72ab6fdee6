package models

import "time"

// User is a registered member. Passwords are stored as bcrypt hashes only.
type User struct {
	ID            string     `gorm:"primaryKey;size:36" json:"_id" bson:"_id"`
	FirstName     string     `gorm:"size:50;not null" json:"firstName" bson:"firstName"`
	LastName      string     `gorm:"size:50;not null" json:"lastName" bson:"lastName"`
	Email         string     `gorm:"size:50;uniqueIndex;not null" json:"email" bson:"email"`
	PasswordHash  string     `gorm:"size:255;not null" json:"-" bson:"passwordHash"`
	PicturePath   string     `gorm:"size:255" json:"picturePath" bson:"picturePath"`
	Friends       StringList `gorm:"type:json" json:"friends" bson:"friends"`
	Location      string     `gorm:"size:128" json:"location" bson:"location"`
	Occupation    string     `gorm:"size:128" json:"occupation" bson:"occupation"`
	ViewedProfile int        `json:"viewedProfile" bson:"viewedProfile"`
	Impressions   int        `json:"impressions" bson:"impressions"`
	CreatedAt     time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// Friend is the public projection of a user shown in friend lists.
type Friend struct {
	ID          string `json:"_id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Occupation  string `json:"occupation"`
	Location    string `json:"location"`
	PicturePath string `json:"picturePath"`
}

// AsFriend projects the user into its friend-list shape.
func (u *User) AsFriend() Friend {
	return Friend{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Occupation:  u.Occupation,
		Location:    u.Location,
		PicturePath: u.PicturePath,
	}
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	cp := *u
	cp.Friends = append(StringList{}, u.Friends...)
	return &cp
}
