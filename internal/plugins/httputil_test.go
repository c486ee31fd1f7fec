package plugins

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusMatches(t *testing.T) {
	tests := []struct {
		expected string
		status   int
		match    bool
	}{
		{"2xx,3xx", 200, true},
		{"2xx,3xx", 302, true},
		{"2xx,3xx", 404, false},
		{"2xx, 404", 404, true},
		{"xxx", 500, true},
		{"201", 200, false},
		{"20X", 204, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.match, statusMatches(tt.expected, tt.status), "%s vs %d", tt.expected, tt.status)
	}
}

func TestResponseHeaders(t *testing.T) {
	h := http.Header{}
	h.Add("Content-Type", "text/plain")
	h.Add("X-Multi", "a")
	h.Add("X-Multi", "b")

	assert.Equal(t, map[string]any{"content-type": "text/plain", "x-multi": "a, b"}, responseHeaders(h))
}

func TestResponseCookies(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := http.Header{}
	h.Add("Set-Cookie", "sid=abc; Path=/api")
	h.Add("Set-Cookie", `sid="root"; Path=/`)
	h.Add("Set-Cookie", "old=x; Expires=Wed, 21 Oct 2015 07:28:00 GMT")

	cookies := responseCookies(h, now)

	sid := cookies["sid"].(map[string]any)
	assert.Equal(t, "root", sid["value"])
	byPath := sid["byPath"].(map[string]any)
	assert.Len(t, byPath, 2)
	assert.Equal(t, "abc", byPath["/api"].(map[string]any)["value"])

	assert.Equal(t, true, cookies["old"].(map[string]any)["isExpired"])
}

func TestRequestCookies(t *testing.T) {
	cookies := map[string]any{
		"plain": "a b",
		"sid": map[string]any{
			"value": "root",
			"byPath": map[string]any{
				"/":    map[string]any{"value": "root"},
				"/api": map[string]any{"value": "abc"},
			},
		},
		"other": map[string]any{
			"byPath": map[string]any{"/admin": map[string]any{"value": "x"}},
		},
	}

	assert.Equal(t, []string{"plain=a%20b", "sid=abc"}, requestCookies("http://host/api/users", cookies))
	assert.Equal(t, []string{"plain=a%20b", "sid=root"}, requestCookies("http://host/", cookies))
}
