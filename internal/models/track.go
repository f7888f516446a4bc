package models

import "time"

// Track is an uploaded song. OwnerName is a snapshot of the artist's
// username taken at creation (and refreshed on artist change); it is kept
// alongside Title instead of the two-element name array the wire format
// used historically.
type Track struct {
	ID                int64     `json:"id"`
	OwnerName         string    `json:"ownerName"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	Listens           int64     `json:"listens"`
	Favorites         int64     `json:"favorites"`
	Audio             string    `json:"audio"`
	Image             string    `json:"image"`
	ProtectedDeletion bool      `json:"protectedDeletion"`
	CreatedAt         time.Time `json:"createdAt"`
	ArtistID          int64     `json:"artistId"`
	AlbumID           *int64    `json:"albumId,omitempty"`
	GenreIDs          []int64   `json:"genreIds,omitempty"`
	Comments          []Comment `json:"comments,omitempty"`
}

// Comment is authored by one user against one track.
type Comment struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	TrackID   int64     `json:"trackId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
