package models

import "time"

// Playlist is a user-curated set of tracks.
type Playlist struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image"`
	Favorites   int64     `json:"favorites"`
	CreatedAt   time.Time `json:"createdAt"`
	UserID      int64     `json:"userId"`
	GenreIDs    []int64   `json:"genreIds,omitempty"`
	TrackIDs    []int64   `json:"trackIds,omitempty"`
}

// Album is an artist-authored collection of tracks. It shares the
// collection-of-tracks shape with Playlist but adds artist ownership and
// track deletion protection; the two are distinct entities rather than an
// inheritance pair.
type Album struct {
	ID          int64     `json:"id"`
	OwnerName   string    `json:"ownerName"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image"`
	Favorites   int64     `json:"favorites"`
	CreatedAt   time.Time `json:"createdAt"`
	ArtistID    int64     `json:"artistId"`
	GenreIDs    []int64   `json:"genreIds,omitempty"`
	TrackIDs    []int64   `json:"trackIds,omitempty"`
}

// Genre is a named tag with back-references to everything tagged with it.
type Genre struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	TrackIDs    []int64 `json:"trackIds,omitempty"`
	PlaylistIDs []int64 `json:"playlistIds,omitempty"`
	AlbumIDs    []int64 `json:"albumIds,omitempty"`
}
