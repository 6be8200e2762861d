package dto

// PlaybackInfo is the response of the playback-info endpoint. The Manifest
// field is an opaque, base64-wrapped blob whose decoded form is described
// by ManifestMimeType.
type PlaybackInfo struct {
	TrackID           int64  `json:"trackId"`
	AssetPresentation string `json:"assetPresentation"`
	AudioQuality      string `json:"audioQuality"`
	ManifestMimeType  string `json:"manifestMimeType"`
	Manifest          string `json:"manifest"`
}

// Manifest is the decoded form of PlaybackInfo.Manifest: a small JSON
// document listing the fetchable stream locations for one track.
type Manifest struct {
	MimeType       string   `json:"mimeType"`
	Codecs         string   `json:"codecs"`
	EncryptionType string   `json:"encryptionType"`
	URLs           []string `json:"urls"`
}
