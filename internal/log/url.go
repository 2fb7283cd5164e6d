package log

import "net/url"

// SanitizeURL strips userinfo and the query string from a URL before it is
// logged. Release asset redirects carry signed query parameters that must not
// end up in logs. Unparseable input is returned as "<invalid url>".
func SanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.User = nil
	if u.RawQuery != "" {
		u.RawQuery = "REDACTED"
	}
	u.Fragment = ""
	return u.String()
}
