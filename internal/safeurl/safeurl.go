// Package safeurl validates outbound URLs and strips credentials from them
// before they reach logs. IPTV panel URLs usually carry the account's
// username and password in the query string.
package safeurl

import (
	"net/url"
	"strings"
)

// IsHTTPOrHTTPS returns true if u is a valid URL with scheme http or https.
// Used to reject file://, ftp://, and other schemes that could lead to SSRF or local file access.
func IsHTTPOrHTTPS(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	s := strings.ToLower(parsed.Scheme)
	return s == "http" || s == "https"
}

var secretParams = map[string]bool{
	"username":     true,
	"password":     true,
	"pass":         true,
	"token":        true,
	"x-plex-token": true,
	"api_key":      true,
	"apikey":       true,
}

// Redact returns u with userinfo and well-known secret query values replaced
// by "xxx". Unparseable input yields "<invalid url>".
func Redact(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return "<invalid url>"
	}
	if parsed.User != nil {
		parsed.User = url.User("xxx")
	}
	if parsed.RawQuery != "" {
		q := parsed.Query()
		for k := range q {
			if secretParams[strings.ToLower(k)] {
				q.Set(k, "xxx")
			}
		}
		parsed.RawQuery = q.Encode()
	}
	return parsed.String()
}
