// Package http provides an HTTP client configured for the Tidal API.
//
// The Client in this package handles:
//   - User-Agent and bearer-token headers
//   - Form-encoded POSTs for the OAuth device-code endpoints
//   - Streaming downloads for track payloads
//
// # Basic Usage
//
//	client := http.NewClient().WithBearer(accessToken)
//
//	// Fetch a small payload (metadata, cover art)
//	body, err := client.Get(ctx, coverURL)
//
//	// Stream a large payload to disk
//	resp, err := client.Stream(ctx, streamURL)
//	defer resp.Body.Close()
//	io.Copy(file, resp.Body)
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress
// tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    Total:    resp.ContentLength,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
//	io.Copy(pw, resp.Body)
package http
