package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ChristianVeneko/chartifydata/internal/models"
	"github.com/ChristianVeneko/chartifydata/internal/services"
	"github.com/ChristianVeneko/chartifydata/internal/stats"
	"github.com/urfave/cli/v3"
)

// statsParams extracts the shared flags of the stats commands.
func statsParams(cmd *cli.Command) (services.TimeRange, int, error) {
	timeRange, err := services.ParseTimeRange(cmd.String("range"))
	if err != nil {
		return "", 0, err
	}
	return timeRange, int(cmd.Int("limit")), nil
}

// StatsArtists lists the top artists for a time range.
func (r *Runner) StatsArtists(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}
	timeRange, limit, err := statsParams(cmd)
	if err != nil {
		return err
	}

	raw, err := r.spotify.TopArtists(ctx, timeRange, limit)
	if err != nil {
		return err
	}
	artists := stats.TopArtists(raw)

	if cmd.Bool("json") {
		return r.writeJSON(artists, cmd.Bool("pretty"))
	}

	r.writePlain("Top %d artists (%s):\n\n", len(artists), timeRange)
	for i, a := range artists {
		r.writePlain("%2d. %s", i+1, a.Name)
		if len(a.Genres) > 0 {
			r.writePlain("  [%s]", strings.Join(a.Genres, ", "))
		}
		r.writePlain("\n")
	}
	return nil
}

// StatsTracks lists the top tracks for a time range.
func (r *Runner) StatsTracks(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}
	timeRange, limit, err := statsParams(cmd)
	if err != nil {
		return err
	}

	raw, err := r.spotify.TopTracks(ctx, timeRange, limit)
	if err != nil {
		return err
	}
	tracks := stats.TopTracks(raw)

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlain("Top %d tracks (%s):\n\n", len(tracks), timeRange)
	printTracks(r, tracks)
	return nil
}

// StatsAlbums aggregates the top-tracks listing into a ranked album view.
func (r *Runner) StatsAlbums(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}
	timeRange, limit, err := statsParams(cmd)
	if err != nil {
		return err
	}

	raw, err := r.spotify.TopTracks(ctx, timeRange, limit)
	if err != nil {
		return err
	}
	albums := stats.TopAlbums(raw)

	if cmd.Bool("json") {
		return r.writeJSON(albums, cmd.Bool("pretty"))
	}

	r.writePlain("Top %d albums (%s):\n\n", len(albums), timeRange)
	for i, a := range albums {
		r.writePlain("%2d. %s — %s  (score %d)\n", i+1, a.Name, strings.Join(a.Artists, ", "), a.Popularity)
	}
	return nil
}

// StatsRecent lists recently played tracks.
func (r *Runner) StatsRecent(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}

	raw, err := r.spotify.RecentlyPlayed(ctx, int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	tracks := stats.RecentlyPlayed(raw)

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlain("Recently played (%d):\n\n", len(tracks))
	for _, t := range tracks {
		r.writePlain("%2d. %s — %s", t.Index, t.Title, strings.Join(t.Artists, ", "))
		if t.PlayedAt != "" {
			r.writePlain("  @ %s", t.PlayedAt)
		}
		r.writePlain("\n")
	}
	return nil
}

// StatsPlaylists lists the user's playlists.
func (r *Runner) StatsPlaylists(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}

	page, err := r.spotify.UserPlaylists(ctx, int(cmd.Int("limit")), 0)
	if err != nil {
		return err
	}
	playlists := stats.Playlists(page.Items)

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   Tracks: %d\n", p.TracksTotal)
		if p.Public {
			r.writePlain("   Visibility: Public\n")
		} else {
			r.writePlain("   Visibility: Private\n")
		}
		r.writePlain("\n")
	}
	return nil
}

// StatsSaved lists a page of the user's saved tracks.
func (r *Runner) StatsSaved(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}

	offset := int(cmd.Int("offset"))
	page, err := r.spotify.SavedTracks(ctx, int(cmd.Int("limit")), offset)
	if err != nil {
		return err
	}
	tracks := stats.SavedTracks(page.Items, offset)

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlain("Saved tracks %d-%d of %d:\n\n", offset+1, offset+len(tracks), page.Total)
	printTracks(r, tracks)
	return nil
}

// StatsFollowed lists followed artists, printing the cursor for the next page.
func (r *Runner) StatsFollowed(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensure(ctx); err != nil {
		return err
	}

	raw, after, err := r.spotify.FollowedArtists(ctx, int(cmd.Int("limit")), cmd.String("after"))
	if err != nil {
		return err
	}
	artists := stats.TopArtists(raw)

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"items": artists, "after": after}, cmd.Bool("pretty"))
	}

	r.writePlain("Followed artists (%d):\n\n", len(artists))
	for i, a := range artists {
		r.writePlain("%2d. %s\n", i+1, a.Name)
	}
	if after != "" {
		r.writePlain("\nNext page: --after %s\n", after)
	}
	return nil
}

func printTracks(r *Runner, tracks []models.Track) {
	for _, t := range tracks {
		line := fmt.Sprintf("%2d. %s — %s", t.Index, t.Title, strings.Join(t.Artists, ", "))
		if t.AlbumName != "" {
			line = fmt.Sprintf("%s  (%s)", line, t.AlbumName)
		}
		r.writePlain("%s\n", line)
	}
}
