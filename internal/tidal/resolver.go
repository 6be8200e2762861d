package tidal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	ihttp "github.com/handiism/tidal-downloader/internal/http"
	"github.com/handiism/tidal-downloader/internal/model"
	"github.com/handiism/tidal-downloader/internal/tidal/dto"
)

// pageLimit bounds catalog item listings to a single page. Items beyond
// the first page are absent from the resolution; this is a known
// limitation, not a retry case.
const pageLimit = 10

// Resolver expands a catalog identifier into an ordered list of track
// descriptors plus the destination plan shared by all of them.
//
// All requests carry the bearer token of the client the resolver was
// created with; the token is never mutated here.
type Resolver struct {
	client      *ihttp.Client
	apiBase     string
	countryCode string
}

// NewResolver creates a resolver. The client must already carry the
// bearer token; countryCode scopes catalog lookups to the user's region.
func NewResolver(client *ihttp.Client, countryCode string) *Resolver {
	return &Resolver{
		client:      client,
		apiBase:     defaultAPIBase,
		countryCode: countryCode,
	}
}

// Resolve turns (id, kind) into track descriptors and a destination plan
// rooted at root.
//
//   - KindTrack yields exactly one descriptor.
//   - KindAlbum and KindPlaylist yield at most one page of descriptors.
//
// A single item missing a required field fails the whole resolution with
// a MissingFieldError: partial batches would break naming and tagging.
func (r *Resolver) Resolve(ctx context.Context, id string, kind Kind, root string) ([]*model.Track, model.Plan, error) {
	var (
		tracks []*model.Track
		err    error
	)

	switch kind {
	case KindTrack:
		tracks, err = r.resolveTrack(ctx, id)
	case KindAlbum:
		tracks, err = r.resolveAlbum(ctx, id)
	case KindPlaylist:
		tracks, err = r.resolvePlaylist(ctx, id)
	default:
		return nil, model.Plan{}, ErrUnsupportedLink
	}
	if err != nil {
		return nil, model.Plan{}, err
	}
	if len(tracks) == 0 {
		return nil, model.Plan{}, fmt.Errorf("%w: catalog item has no tracks", ErrMalformedResponse)
	}

	// Destination naming uses the first resolved descriptor for albums
	// and tracks; playlists are named after the playlist title.
	var plan model.Plan
	if kind == KindPlaylist {
		title, err := r.playlistTitle(ctx, id)
		if err != nil {
			return nil, model.Plan{}, err
		}
		plan = model.PlaylistPlan(root, title)
	} else {
		plan = model.AlbumPlan(root, tracks[0].Artist, tracks[0].Album)
	}

	return tracks, plan, nil
}

func (r *Resolver) resolveTrack(ctx context.Context, id string) ([]*model.Track, error) {
	body, err := r.get(ctx, "/tracks/"+id)
	if err != nil {
		return nil, err
	}

	var item dto.TrackItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	track, err := toTrack(item)
	if err != nil {
		return nil, err
	}
	return []*model.Track{track}, nil
}

func (r *Resolver) resolveAlbum(ctx context.Context, id string) ([]*model.Track, error) {
	body, err := r.get(ctx, "/albums/"+id+"/items")
	if err != nil {
		return nil, err
	}

	var page dto.AlbumItemsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	tracks := make([]*model.Track, 0, len(page.Items))
	for _, item := range page.Items {
		track, err := toTrack(item)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func (r *Resolver) resolvePlaylist(ctx context.Context, id string) ([]*model.Track, error) {
	body, err := r.get(ctx, "/playlists/"+id+"/items")
	if err != nil {
		return nil, err
	}

	var page dto.PlaylistItemsPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	tracks := make([]*model.Track, 0, len(page.Items))
	for _, wrapper := range page.Items {
		track, err := toTrack(wrapper.Item)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func (r *Resolver) playlistTitle(ctx context.Context, id string) (string, error) {
	body, err := r.get(ctx, "/playlists/"+id)
	if err != nil {
		return "", err
	}

	var info dto.PlaylistInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if info.Title == nil || *info.Title == "" {
		return "", &MissingFieldError{Field: "title"}
	}
	return *info.Title, nil
}

func (r *Resolver) get(ctx context.Context, path string) ([]byte, error) {
	params := url.Values{}
	params.Set("countryCode", r.countryCode)
	params.Set("limit", strconv.Itoa(pageLimit))

	body, err := r.client.Get(ctx, r.apiBase+path+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEndpointUnreachable, err)
	}
	return body, nil
}

// toTrack validates a catalog item and converts it to a descriptor.
// Every field is required; the first absent one names the failure.
func toTrack(item dto.TrackItem) (*model.Track, error) {
	switch {
	case item.ID == nil:
		return nil, &MissingFieldError{Field: "id"}
	case item.Title == nil || *item.Title == "":
		return nil, &MissingFieldError{Field: "title"}
	case item.TrackNumber == nil:
		return nil, &MissingFieldError{Field: "trackNumber"}
	case item.AudioQuality == nil || *item.AudioQuality == "":
		return nil, &MissingFieldError{Field: "audioQuality"}
	case item.Artist == nil || item.Artist.Name == nil || *item.Artist.Name == "":
		return nil, &MissingFieldError{Field: "artist.name"}
	case len(item.Artists) == 0:
		return nil, &MissingFieldError{Field: "artists"}
	case item.Album == nil || item.Album.Title == nil || *item.Album.Title == "":
		return nil, &MissingFieldError{Field: "album.title"}
	case item.Album.Cover == nil || *item.Album.Cover == "":
		return nil, &MissingFieldError{Field: "album.cover"}
	}

	return &model.Track{
		ID:      *item.ID,
		Title:   *item.Title,
		Album:   *item.Album.Title,
		Artist:  *item.Artist.Name,
		Artists: dto.JoinArtists(item.Artists),
		Number:  *item.TrackNumber,
		CoverID: dto.CoverPath(*item.Album.Cover),
		Quality: *item.AudioQuality,
	}, nil
}
