package transport

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// Challenge is a parsed WWW-Authenticate header.
type Challenge struct {
	Scheme           string
	Realm            string
	Scope            string
	Error            string
	ErrorDescription string
}

// String renders the challenge for log lines.
func (c *Challenge) String() string {
	if c == nil {
		return "<none>"
	}
	s := c.Scheme
	if c.Error != "" {
		s += " error=" + c.Error
	}
	if c.ErrorDescription != "" {
		s += fmt.Sprintf(" (%s)", c.ErrorDescription)
	}
	return s
}

var authParamRegex = regexp.MustCompile(`(\w+)="([^"]*)"`)

// ParseChallenge parses a WWW-Authenticate header value such as
//
//	Bearer realm="portal", error="invalid_token", error_description="Token is expired"
func ParseChallenge(header string) (*Challenge, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, fmt.Errorf("empty WWW-Authenticate header")
	}

	scheme, rest, _ := strings.Cut(header, " ")
	challenge := &Challenge{Scheme: scheme}

	for _, match := range authParamRegex.FindAllStringSubmatch(rest, -1) {
		value := match[2]
		switch strings.ToLower(match[1]) {
		case "realm":
			challenge.Realm = value
		case "scope":
			challenge.Scope = value
		case "error":
			challenge.Error = value
		case "error_description":
			challenge.ErrorDescription = value
		}
	}

	return challenge, nil
}

// ChallengeFromResponse extracts the challenge from a 401 response.
// It returns nil for other responses or when the header is missing or unparsable.
func ChallengeFromResponse(resp *http.Response) *Challenge {
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		return nil
	}
	challenge, err := ParseChallenge(resp.Header.Get("WWW-Authenticate"))
	if err != nil {
		return nil
	}
	return challenge
}
