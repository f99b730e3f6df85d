package gateway

import "net/http"

// ExtractToken pulls the console token out of the request. The token query
// parameter wins; noVNC forwards the token from the page URL into a cookie,
// so a token cookie is checked second. Pure function of the request, never
// blocks.
func ExtractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if c, err := r.Cookie("token"); err == nil {
		return c.Value
	}
	return ""
}
