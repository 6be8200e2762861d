package tidal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	ihttp "github.com/handiism/tidal-downloader/internal/http"
	"github.com/handiism/tidal-downloader/internal/model"
	"github.com/handiism/tidal-downloader/internal/tidal/dto"
)

// ResolvedStream is the fetchable location of exactly one track, paired
// with the container extension the payload should be written under.
type ResolvedStream struct {
	URL string
	Ext string
}

// ManifestDecoder resolves a track's opaque playback manifest into a
// concrete stream URL. The manifest is a string-encoded, escaped JSON
// blob wrapped in base64; it is versionless and externally controlled,
// so every shape deviation maps to ErrManifestDecode rather than a panic.
type ManifestDecoder struct {
	client  *ihttp.Client
	apiBase string
	quality string
}

// NewManifestDecoder creates a decoder requesting the given audio quality
// (e.g. "HI_RES"). The client must carry the bearer token.
func NewManifestDecoder(client *ihttp.Client, quality string) *ManifestDecoder {
	if quality == "" {
		quality = "HI_RES"
	}
	return &ManifestDecoder{
		client:  client,
		apiBase: defaultAPIBase,
		quality: quality,
	}
}

// Decode fetches playback info for the track and decodes its manifest.
// Decoding a fixed manifest payload is idempotent: the same blob always
// yields the same stream URL and extension.
func (d *ManifestDecoder) Decode(ctx context.Context, track *model.Track) (*ResolvedStream, error) {
	params := url.Values{}
	params.Set("audioquality", d.quality)
	params.Set("playbackmode", "STREAM")
	params.Set("assetpresentation", "FULL")

	endpoint := d.apiBase + "/tracks/" + strconv.FormatInt(track.ID, 10) + "/playbackinfopostpaywall?" + params.Encode()
	body, err := d.client.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEndpointUnreachable, err)
	}

	var info dto.PlaybackInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestDecode, err)
	}
	if info.Manifest == "" {
		return nil, fmt.Errorf("%w: playback info carries no manifest", ErrManifestDecode)
	}

	streamURL, err := decodeManifest(info.Manifest)
	if err != nil {
		return nil, err
	}

	return &ResolvedStream{URL: streamURL, Ext: track.Ext()}, nil
}

// decodeManifest unwraps the manifest blob: strip the escape noise the
// wire layer may have left in, base64-decode, JSON-decode, and take the
// first entry of the urls array.
func decodeManifest(manifest string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '"', '\\', '\n', '\r', ' ':
			return -1
		}
		return r
	}, manifest)

	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		// Some payloads arrive without padding.
		decoded, err = base64.RawStdEncoding.DecodeString(cleaned)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrManifestDecode, err)
		}
	}

	var m dto.Manifest
	if err := json.Unmarshal(decoded, &m); err != nil {
		return "", fmt.Errorf("%w: %v", ErrManifestDecode, err)
	}
	if len(m.URLs) == 0 || m.URLs[0] == "" {
		return "", ErrNoStreamURL
	}

	return m.URLs[0], nil
}
