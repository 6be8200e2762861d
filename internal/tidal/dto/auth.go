package dto

// DeviceAuthorization is the response of the device-authorization endpoint.
type DeviceAuthorization struct {
	DeviceCode              string `json:"deviceCode"`
	UserCode                string `json:"userCode"`
	VerificationURI         string `json:"verificationUri"`
	VerificationURIComplete string `json:"verificationUriComplete"`
	ExpiresIn               int    `json:"expiresIn"`
	Interval                int    `json:"interval"`
}

// TokenResponse is the response of the token endpoint. While the user has
// not yet acted, the endpoint answers with an error status and the Error
// field set; on success the token fields are populated instead.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`

	// Error carries the OAuth error code on non-success answers:
	// authorization_pending, slow_down, access_denied, expired_token.
	Error string `json:"error"`

	User struct {
		UserID      int64  `json:"userId"`
		CountryCode string `json:"countryCode"`
	} `json:"user"`
}
