package session

import "github.com/golang-jwt/jwt/v5"

// Subject returns the user id carried by a JWT token, or "" if token is
// opaque or carries none. The signature is not verified.
func Subject(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	for _, k := range []string{"id", "_id", "uid", "sub"} {
		if v, ok := claims[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
