package transport

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChallenge(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    *Challenge
		wantErr bool
	}{
		{
			name:   "bare scheme",
			header: "Bearer",
			want:   &Challenge{Scheme: "Bearer"},
		},
		{
			name:   "realm and error",
			header: `Bearer realm="portal", error="invalid_token", error_description="Token is expired"`,
			want: &Challenge{
				Scheme:           "Bearer",
				Realm:            "portal",
				Error:            "invalid_token",
				ErrorDescription: "Token is expired",
			},
		},
		{
			name:   "parameter names are case insensitive",
			header: `Bearer Realm="portal", SCOPE="read"`,
			want:   &Challenge{Scheme: "Bearer", Realm: "portal", Scope: "read"},
		},
		{
			name:    "empty header",
			header:  "   ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChallenge(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChallengeFromResponse(t *testing.T) {
	withHeader := func(status int, header string) *http.Response {
		resp := &http.Response{StatusCode: status, Header: http.Header{}}
		if header != "" {
			resp.Header.Set("WWW-Authenticate", header)
		}
		return resp
	}

	assert.Nil(t, ChallengeFromResponse(nil))
	assert.Nil(t, ChallengeFromResponse(withHeader(http.StatusForbidden, "Bearer")))
	assert.Nil(t, ChallengeFromResponse(withHeader(http.StatusUnauthorized, "")))

	c := ChallengeFromResponse(withHeader(http.StatusUnauthorized, `Bearer error="invalid_token"`))
	require.NotNil(t, c)
	assert.Equal(t, "Bearer error=invalid_token", c.String())
}

func TestChallenge_StringNil(t *testing.T) {
	var c *Challenge
	assert.Equal(t, "<none>", c.String())
}
