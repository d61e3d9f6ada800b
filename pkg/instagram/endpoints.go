package instagram

import (
	"encoding/json"
	"net/url"
	"strings"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// GraphQLEndpoint serves the post query
	GraphQLEndpoint = "/graphql/query/"

	// ProfileEndpoint resolves a username to its profile
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// ReelsEndpoint returns the story reels of one or more users
	ReelsEndpoint = "/api/v1/feed/reels_media/"

	// PostDocID identifies the persisted shortcode query
	PostDocID = "24852649951017035"

	// jazoest is the fixed form checksum the web client sends with the query
	jazoest = "26297"
)

// Endpoints builds request URLs against a base URL, so tests can point
// the resolvers at a local server
type Endpoints struct {
	base string
}

// NewEndpoints returns endpoints rooted at base, defaulting to BaseURL
func NewEndpoints(base string) Endpoints {
	if base == "" {
		base = BaseURL
	}
	return Endpoints{base: strings.TrimRight(base, "/")}
}

// Landing is the page the anti-forgery token is scraped from
func (e Endpoints) Landing() string {
	return e.base + "/"
}

// GraphQL is the post query URL
func (e Endpoints) GraphQL() string {
	return e.base + GraphQLEndpoint
}

// Profile is the profile lookup URL for username
func (e Endpoints) Profile(username string) string {
	params := url.Values{}
	params.Set("username", username)
	return e.base + ProfileEndpoint + "?" + params.Encode()
}

// Reels is the reel lookup URL for one owner and one story item
func (e Endpoints) Reels(ownerID, mediaID string) string {
	params := url.Values{}
	params.Set("reel_ids", ownerID)
	params.Set("media_id", mediaID)
	return e.base + ReelsEndpoint + "?" + params.Encode()
}

// PostQuery builds the form body of the post query. The token field is
// only present when a token is known.
func PostQuery(shortcode, token string) url.Values {
	variables, _ := json.Marshal(struct {
		Shortcode     string `json:"shortcode"`
		ShareMenuFlag bool   `json:"__relay_internal__pv__PolarisShareMenurelayprovider"`
	}{Shortcode: shortcode})

	form := url.Values{}
	form.Set("jazoest", jazoest)
	form.Set("variables", string(variables))
	form.Set("doc_id", PostDocID)
	if token != "" {
		form.Set("fb_dtsg", token)
	}
	return form
}

// GetPostURL constructs the public URL for a post
func GetPostURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return BaseURL + "/p/" + shortcode + "/"
}

// GetStoryURL constructs the public URL for a story item
func GetStoryURL(username, storyID string) string {
	if username == "" || storyID == "" {
		return ""
	}
	return BaseURL + "/stories/" + username + "/" + storyID + "/"
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	// Letters, numbers, periods, and underscores only
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}
	return true
}

// SanitizeUsername strips a leading @ and trailing slashes or spaces
func SanitizeUsername(username string) string {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	return strings.TrimRight(username, "/ ")
}

// isNumericID reports whether s looks like an Instagram numeric id
func isNumericID(s string) bool {
	if s == "" {
		return false
	}
	for _, char := range s {
		if char < '0' || char > '9' {
			return false
		}
	}
	return true
}
