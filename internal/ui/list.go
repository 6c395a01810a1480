package ui

import (
	"fmt"
	"strings"

	"github.com/ChristianVeneko/chartifydata/internal/models"
	"github.com/charmbracelet/bubbles/list"
)

var (
	_ list.Item = artistItem{}
	_ list.Item = trackItem{}
	_ list.Item = albumItem{}
	_ list.Item = recentItem{}
	_ list.Item = playlistItem{}
)

// artistItem wraps [models.Artist] to implement [list.Item].
type artistItem struct {
	artist models.Artist
}

func (i artistItem) FilterValue() string { return i.artist.Name }
func (i artistItem) Title() string       { return i.artist.Name }
func (i artistItem) Description() string {
	desc := fmt.Sprintf("popularity %d", i.artist.Popularity)
	if len(i.artist.Genres) > 0 {
		desc = fmt.Sprintf("%s • %s", desc, strings.Join(i.artist.Genres, ", "))
	}
	return desc
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string {
	return fmt.Sprintf("%d. %s", i.track.Index, i.track.Title)
}
func (i trackItem) Description() string {
	desc := strings.Join(i.track.Artists, ", ")
	if i.track.AlbumName != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.AlbumName)
	}
	return desc
}

// albumItem wraps [models.Album] to implement [list.Item].
type albumItem struct {
	album models.Album
}

func (i albumItem) FilterValue() string { return i.album.Name }
func (i albumItem) Title() string       { return i.album.Name }
func (i albumItem) Description() string {
	desc := strings.Join(i.album.Artists, ", ")
	return fmt.Sprintf("%s • %d tracks • score %d", desc, i.album.TotalTracks, i.album.Popularity)
}

// recentItem wraps [models.RecentTrack] to implement [list.Item].
type recentItem struct {
	track models.RecentTrack
}

func (i recentItem) FilterValue() string { return i.track.Title }
func (i recentItem) Title() string       { return i.track.Title }
func (i recentItem) Description() string {
	desc := strings.Join(i.track.Artists, ", ")
	if i.track.PlayedAt != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.PlayedAt)
	}
	return desc
}

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.TracksTotal)
	if i.playlist.Owner != "" {
		desc = fmt.Sprintf("%s • by %s", desc, i.playlist.Owner)
	}
	return desc
}
