package plugins

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"
)

var jsonType = regexp.MustCompile(`application/([a-zA-Z0-9.-]+\+)?json`)

// statusMatches reports whether status matches one of the comma separated
// patterns in expected. An x matches any digit, "2xx,3xx" matches any
// successful or redirect status.
func statusMatches(expected string, status int) bool {
	actual := fmt.Sprint(status)
	for _, part := range strings.Split(expected, ",") {
		part = strings.TrimSpace(part)
		if patternMatches(part, actual) {
			return true
		}
	}
	return false
}

func patternMatches(pattern, actual string) bool {
	for i, c := range pattern {
		if c == 'x' || c == 'X' {
			continue
		}
		if i >= len(actual) || rune(actual[i]) != c {
			return false
		}
	}
	return true
}

func unquoted(value string) string {
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		return value[1 : len(value)-1]
	}
	return value
}

// responseHeaders lowercases header names and joins repeated values.
func responseHeaders(h http.Header) map[string]any {
	headers := make(map[string]any, len(h))
	for name, values := range h {
		key := strings.ToLower(name)
		if existing, ok := headers[key].(string); ok {
			values = append([]string{existing}, values...)
		}
		headers[key] = strings.Join(values, ", ")
	}
	return headers
}

// responseCookies groups the Set-Cookie headers by cookie name. Each cookie
// carries its latest value, its parameters and the entries seen per path.
func responseCookies(h http.Header, now time.Time) map[string]any {
	cookies := map[string]any{}
	for _, entry := range h.Values("Set-Cookie") {
		parts := strings.Split(entry, "; ")
		name, value, _ := strings.Cut(parts[0], "=")

		params := map[string]any{}
		for _, p := range parts[1:] {
			k, v, _ := strings.Cut(p, "=")
			params[strings.ToLower(k)] = v
		}
		expired := false
		if expires, ok := params["expires"].(string); ok {
			if t, err := http.ParseTime(expires); err == nil {
				expired = t.Before(now)
			}
		}

		parsed := map[string]any{
			"isExpired": expired,
			"params":    params,
			"value":     unquoted(value),
		}
		path, _ := params["path"].(string)
		byPath := map[string]any{path: parsed}
		if existing, ok := cookies[name].(map[string]any); ok {
			for p, e := range existing["byPath"].(map[string]any) {
				byPath[p] = e
			}
		}
		cookie := map[string]any{
			"isExpired": expired,
			"params":    params,
			"value":     unquoted(value),
			"byPath":    byPath,
		}
		cookies[name] = cookie
	}
	return cookies
}

// requestCookies encodes cookies for a request to rawURL. Plain values are
// sent as they are. Cookies in the format produced by responseCookies are
// selected by the most specific path that prefixes the request path.
func requestCookies(rawURL string, cookies map[string]any) []string {
	requestPath := "/"
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		requestPath = u.Path
	}

	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	var list []string
	for _, name := range names {
		cookie, isMap := cookies[name].(map[string]any)
		byPath, hasPaths := cookie["byPath"].(map[string]any)
		if !isMap || !hasPaths {
			list = append(list, url.PathEscape(name)+"="+url.PathEscape(fmt.Sprint(cookies[name])))
			continue
		}
		if value, ok := selectByPath(requestPath, byPath); ok {
			list = append(list, url.PathEscape(name)+"="+value)
		}
	}
	return list
}

func selectByPath(requestPath string, byPath map[string]any) (string, bool) {
	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		if strings.HasPrefix(requestPath, p) {
			paths = append(paths, p)
		}
	}
	sort.SliceStable(paths, func(i, j int) bool { return len(paths[i]) < len(paths[j]) })

	for i := len(paths) - 1; i >= 0; i-- {
		entry, _ := byPath[paths[i]].(map[string]any)
		if v, ok := entry["value"]; ok && v != nil && v != "" {
			return fmt.Sprint(v), true
		}
	}
	return "", false
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
