package payload

import (
	"net/url"
	"strings"
)

const rawHost = "raw.githubusercontent.com"

// NormalizeImageURL rewrites a GitHub "blob" page URL into the direct
// raw-content URL so the chat service can fetch the image. Anything it does
// not recognise is returned unchanged.
func NormalizeImageURL(s string) (out string) {
	defer func() {
		if recover() != nil {
			out = s
		}
	}()

	if s == "" || strings.HasPrefix(s, "data:") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	switch strings.ToLower(u.Host) {
	case "github.com", "www.github.com":
	default:
		return s
	}

	out = strings.Replace(s, "://"+u.Host+"/", "://"+rawHost+"/", 1)
	out = strings.Replace(out, "/blob/", "/", 1)
	out = strings.TrimSuffix(out, "?raw=true")
	return out
}
