// package models defines the read-only projections served by the dashboard
package models

// Artist is the projection of a top or followed artist.
type Artist struct {
	Name       string   `json:"name"`
	URL        string   `json:"url"`
	Image      *string  `json:"image"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
}

// Track is the projection of a top track. Index is the 1-based position in
// the result set.
type Track struct {
	Index      int      `json:"index"`
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	AlbumName  string   `json:"albumName"`
	Cover      *string  `json:"cover"`
	URL        string   `json:"url"`
	Popularity int      `json:"popularity"`
	PreviewURL *string  `json:"preview_url"`
}

// Album is an aggregation over a track listing. Popularity is the sum of the
// popularity of every track in the input set belonging to this album.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Image       *string  `json:"image"`
	Artists     []string `json:"artists"`
	URL         string   `json:"url"`
	ReleaseDate string   `json:"release_date"`
	TotalTracks int      `json:"total_tracks"`
	Popularity  int      `json:"popularity"`
}

// RecentTrack is the projection of a recently played item.
type RecentTrack struct {
	Index      int      `json:"index"`
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	AlbumName  string   `json:"albumName"`
	Cover      *string  `json:"cover"`
	URL        string   `json:"url"`
	PlayedAt   string   `json:"played_at"`
	PreviewURL *string  `json:"preview_url"`
}

// Playlist is the projection of a user playlist.
type Playlist struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       *string `json:"image"`
	Owner       string  `json:"owner"`
	TracksTotal int     `json:"tracks_total"`
	URL         string  `json:"url"`
	Public      bool    `json:"public"`
}

// UserProfile is the cached profile of the authenticated user, set only after
// a successful validation call.
type UserProfile struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	Country     string  `json:"country"`
	Product     string  `json:"product"`
	Followers   int     `json:"followers"`
	Image       *string `json:"image"`
}
