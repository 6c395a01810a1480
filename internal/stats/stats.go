// package stats contains the pure projection step from raw Spotify payloads
// to the shapes the dashboard renders. No function here performs I/O.
package stats

import (
	"sort"

	"github.com/ChristianVeneko/chartifydata/internal/models"
	"github.com/ChristianVeneko/chartifydata/internal/services"
)

// mediumImage prefers the middle-sized image (index 1), falling back to the
// first. Returns nil when the artwork list is empty.
func mediumImage(images []services.SpotifyImage) *string {
	if len(images) == 0 {
		return nil
	}
	idx := 0
	if len(images) > 1 {
		idx = 1
	}
	url := images[idx].URL
	return &url
}

// largeImage returns the first (largest) image, nil when absent.
func largeImage(images []services.SpotifyImage) *string {
	if len(images) == 0 {
		return nil
	}
	url := images[0].URL
	return &url
}

// artistNames flattens an artist listing into its ordered names.
func artistNames(artists []services.SpotifyArtist) []string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return names
}

// TopArtists projects a top-artists listing.
func TopArtists(items []services.SpotifyArtist) []models.Artist {
	artists := make([]models.Artist, len(items))
	for i, item := range items {
		genres := item.Genres
		if genres == nil {
			genres = []string{}
		}
		artists[i] = models.Artist{
			Name:       item.Name,
			URL:        item.ExternalURLs.Spotify,
			Image:      mediumImage(item.Images),
			Genres:     genres,
			Popularity: item.Popularity,
		}
	}
	return artists
}

// TopTracks projects a top-tracks listing. Index is the 1-based position in
// the input order.
func TopTracks(items []services.SpotifyTrack) []models.Track {
	tracks := make([]models.Track, len(items))
	for i, item := range items {
		tracks[i] = models.Track{
			Index:      i + 1,
			Title:      item.Name,
			Artists:    artistNames(item.Artists),
			AlbumName:  item.Album.Name,
			Cover:      mediumImage(item.Album.Images),
			URL:        item.ExternalURLs.Spotify,
			Popularity: item.Popularity,
			PreviewURL: item.PreviewURL,
		}
	}
	return tracks
}

// TopAlbums aggregates a track listing into albums. Identity is the upstream
// album id; each album accumulates the summed popularity of its tracks in the
// input set. The result is sorted descending by accumulated popularity with
// ties kept in first-encountered order.
func TopAlbums(items []services.SpotifyTrack) []models.Album {
	byID := make(map[string]int)
	var albums []models.Album

	for _, item := range items {
		album := item.Album
		idx, seen := byID[album.ID]
		if !seen {
			byID[album.ID] = len(albums)
			albums = append(albums, models.Album{
				ID:          album.ID,
				Name:        album.Name,
				Image:       largeImage(album.Images),
				Artists:     artistNames(album.Artists),
				URL:         album.ExternalURLs.Spotify,
				ReleaseDate: album.ReleaseDate,
				TotalTracks: album.TotalTracks,
			})
			idx = len(albums) - 1
		}
		albums[idx].Popularity += item.Popularity
	}

	sort.SliceStable(albums, func(i, j int) bool {
		return albums[i].Popularity > albums[j].Popularity
	})

	return albums
}

// RecentlyPlayed projects a play-history listing.
func RecentlyPlayed(items []services.SpotifyPlayHistory) []models.RecentTrack {
	tracks := make([]models.RecentTrack, len(items))
	for i, item := range items {
		tracks[i] = models.RecentTrack{
			Index:      i + 1,
			Title:      item.Track.Name,
			Artists:    artistNames(item.Track.Artists),
			AlbumName:  item.Track.Album.Name,
			Cover:      mediumImage(item.Track.Album.Images),
			URL:        item.Track.ExternalURLs.Spotify,
			PlayedAt:   item.PlayedAt,
			PreviewURL: item.Track.PreviewURL,
		}
	}
	return tracks
}

// Playlists projects a playlist listing.
func Playlists(items []services.SpotifySimplePlaylist) []models.Playlist {
	playlists := make([]models.Playlist, len(items))
	for i, item := range items {
		playlists[i] = models.Playlist{
			ID:          item.ID,
			Name:        item.Name,
			Description: item.Description,
			Image:       largeImage(item.Images),
			Owner:       item.Owner.DisplayName,
			TracksTotal: item.Tracks.Total,
			URL:         item.ExternalURLs.Spotify,
			Public:      item.Public,
		}
	}
	return playlists
}

// SavedTracks projects a saved-tracks page, offset shifting the 1-based index
// so pagination keeps a continuous numbering.
func SavedTracks(items []services.SpotifySavedTrack, offset int) []models.Track {
	tracks := make([]models.Track, len(items))
	for i, item := range items {
		tracks[i] = models.Track{
			Index:      offset + i + 1,
			Title:      item.Track.Name,
			Artists:    artistNames(item.Track.Artists),
			AlbumName:  item.Track.Album.Name,
			Cover:      mediumImage(item.Track.Album.Images),
			URL:        item.Track.ExternalURLs.Spotify,
			Popularity: item.Track.Popularity,
			PreviewURL: item.Track.PreviewURL,
		}
	}
	return tracks
}
