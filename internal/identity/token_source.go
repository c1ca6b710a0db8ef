package identity

import (
	"context"
	"strings"
)

// CookieName is the cookie the front end stores the identity token in.
const CookieName = "didt"

// StaticToken is a TokenSource that always yields the same token. An empty
// value means the browser presented no identity token.
type StaticToken string

// IDToken returns the token.
func (t StaticToken) IDToken(context.Context) (string, error) {
	return strings.TrimSpace(string(t)), nil
}

// TokenFromRequest extracts the identity token from an Authorization bearer
// header value, falling back to the cookie value.
func TokenFromRequest(authorization, cookie string) StaticToken {
	parts := strings.SplitN(strings.TrimSpace(authorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		if tok := strings.TrimSpace(parts[1]); tok != "" {
			return StaticToken(tok)
		}
	}
	return StaticToken(cookie)
}
