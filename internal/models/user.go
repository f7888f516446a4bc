package models

import "time"

// User is the central aggregate entity. Authored and collected content is
// referenced by id and resolved through the store, never embedded.
type User struct {
	ID         int64      `json:"id"`
	Email      string     `json:"email"`
	Username   string     `json:"username"`
	About      string     `json:"about,omitempty"`
	Avatar     string     `json:"avatar,omitempty"`
	Birth      *time.Time `json:"birth,omitempty"`
	Banned     bool       `json:"banned"`
	BanReasons []string   `json:"banReasons,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	Roles      []Role     `json:"roles,omitempty"`
	Followers  []int64    `json:"followers,omitempty"`
	Followings []int64    `json:"followings,omitempty"`
}

// Role is a named permission label attached to users.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Well-known role names seeded at startup.
const (
	RoleUser   = "user"
	RoleArtist = "artist"
	RoleAdmin  = "admin"
)

// NewUser carries the fields accepted at registration.
type NewUser struct {
	Email    string     `json:"email"`
	Username string     `json:"username"`
	Password string     `json:"password"`
	About    string     `json:"about"`
	Birth    *time.Time `json:"birth"`
}
