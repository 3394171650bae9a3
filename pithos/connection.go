package pithos

import (
	"fmt"
	"net/url"
	"strings"
)

// ConnectionInfo identifies an endpoint, the account on it and the token
// used to reach it. The zero value is not valid; use NewConnectionInfo.
//
// ConnectionInfo is comparable, so two values are equal iff all three
// fields are equal and it can key a map of pooled clients.
type ConnectionInfo struct {
	baseURL   string
	userID    string
	userToken string
}

func NewConnectionInfo(baseURL, userID, userToken string) (ConnectionInfo, error) {
	if baseURL == "" {
		return ConnectionInfo{}, invalidArgument("empty baseURL")
	}
	if userID == "" {
		return ConnectionInfo{}, invalidArgument("empty userID")
	}
	if userToken == "" {
		return ConnectionInfo{}, invalidArgument("empty userToken")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ConnectionInfo{}, invalidArgument("baseURL %q is not an absolute URL", baseURL)
	}

	return ConnectionInfo{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userID:    userID,
		userToken: userToken,
	}, nil
}

func (c ConnectionInfo) BaseURL() string   { return c.baseURL }
func (c ConnectionInfo) UserID() string    { return c.userID }
func (c ConnectionInfo) UserToken() string { return c.userToken }

// IsZero reports whether c was never initialized by NewConnectionInfo.
func (c ConnectionInfo) IsZero() bool {
	return c == ConnectionInfo{}
}

// String leaves the token out.
func (c ConnectionInfo) String() string {
	return fmt.Sprintf("ConnectionInfo(%s, %s)", c.baseURL, c.userID)
}
