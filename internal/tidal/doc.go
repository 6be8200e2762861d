// Package tidal implements the client side of the Tidal catalog and auth
// APIs: the device-code login handshake, catalog resolution, and playback
// manifest decoding.
//
// # Login
//
// Authorization uses the OAuth device-code flow. The handshake issues a
// short user code that is shown once; the session then polls the token
// endpoint until the user authorizes out-of-band:
//
//	session := tidal.NewAuthSession(client, tidal.DefaultClientID)
//	handshake, err := session.BeginHandshake(ctx)
//	fmt.Printf("connect via %s\n", handshake.Link())
//	creds, err := session.PollUntilAuthorized(ctx, tidal.DefaultLoginTimeout)
//
// PollUntilAuthorized distinguishes "still pending" answers (retried at
// the handshake interval) from terminal ones: ErrAuthDenied, ErrAuthExpired
// and ErrAuthTimeout. A successful poll returns an immutable Credentials
// value; the handshake is the only writer of credentials in the program.
//
// # Catalog resolution
//
// Resolver expands one catalog id into track descriptors and a shared
// destination plan:
//
//	resolver := tidal.NewResolver(client.WithBearer(creds.AccessToken), creds.CountryCode)
//	tracks, plan, err := resolver.Resolve(ctx, id, kind, settings.DownloadsPath)
//
// Only a single page of album/playlist items is fetched. A catalog item
// missing any required field fails the whole resolution with a
// MissingFieldError, since partial batches would break naming and
// tagging.
//
// # Manifest decoding
//
// Each track's playback info carries an opaque base64-wrapped JSON
// manifest. ManifestDecoder unwraps it into a stream URL plus container
// extension, mapping every shape deviation to ErrManifestDecode.
package tidal
