package types

// TokenResponse is what the register endpoint hands back to the control
// plane: the opaque token plus the browser-facing URL that embeds it.
type TokenResponse struct {
	Token     string `json:"token"`
	AccessURL string `json:"access_url"`
	ExpiresIn int64  `json:"expires_in"` // seconds
}
