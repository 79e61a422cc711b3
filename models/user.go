// models/user.go
package models

import "time"

// User is the community profile keyed by the Firebase uid.
type User struct {
	ID         string    `bson:"id" json:"id"`
	Username   string    `bson:"username" json:"username"`
	Name       string    `bson:"name" json:"name"`
	School     string    `bson:"school,omitempty" json:"school,omitempty"`
	SchoolYear string    `bson:"schoolYear,omitempty" json:"schoolYear,omitempty"`
	Interests  []string  `bson:"interests,omitempty" json:"interests,omitempty"`
	PhotoURL   string    `bson:"photoURL,omitempty" json:"photoURL,omitempty"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt,omitzero"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt,omitzero"`
}

// SchoolYears are the accepted values of User.SchoolYear.
var SchoolYears = []string{"Freshman", "Sophomore", "Junior", "Senior", "Graduate"}

// ProfileInput is the payload for first-time profile setup.
type ProfileInput struct {
	Username   string `json:"username"`
	Name       string `json:"name"`
	School     string `json:"school,omitempty"`
	SchoolYear string `json:"schoolYear,omitempty"`
	Interests  string `json:"interests,omitempty"`
}

// UserQuery filters a profile search. Interests is comma separated and
// matches users sharing at least one of them.
type UserQuery struct {
	School     string `form:"school"`
	SchoolYear string `form:"year"`
	Interests  string `form:"interests"`
}
