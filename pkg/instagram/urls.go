package instagram

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnrecognizedURL is returned for links that name neither a post nor a story
var ErrUnrecognizedURL = errors.New("not an instagram post or story link")

// postPrefixes are the path segments that introduce a shortcode
var postPrefixes = map[string]bool{
	"p":     true,
	"reel":  true,
	"reels": true,
	"tv":    true,
}

// ParseURL turns a post, reel, tv or story link into a Request
func ParseURL(rawURL string) (Request, error) {
	raw := strings.TrimSpace(rawURL)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrUnrecognizedURL, err)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host != "instagram.com" && host != "m.instagram.com" && host != "ddinstagram.com" {
		return Request{}, ErrUnrecognizedURL
	}

	var segments []string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}

	// Links may carry the author first: /<user>/p/<code>/
	if len(segments) >= 3 && postPrefixes[segments[1]] {
		segments = segments[1:]
	}

	switch {
	case len(segments) >= 2 && postPrefixes[segments[0]]:
		return Request{PostID: segments[1]}, nil
	case len(segments) >= 3 && segments[0] == "stories":
		username := SanitizeUsername(segments[1])
		storyID := segments[2]
		if !IsValidUsername(username) || !isNumericID(storyID) {
			return Request{}, ErrUnrecognizedURL
		}
		return Request{Username: username, StoryID: storyID}, nil
	default:
		return Request{}, ErrUnrecognizedURL
	}
}
