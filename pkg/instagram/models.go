package instagram

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// flexID accepts ids encoded either as JSON strings or numbers
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %s", data)
	}
	*f = flexID(n.String())
	return nil
}

// postResponse is the envelope of the shortcode query
type postResponse struct {
	Data *postData `json:"data"`
}

type postData struct {
	ShortcodeMedia *shortcodeMedia `json:"xdt_shortcode_media"`
}

// shortcodeMedia is a single post; Sidecar is set for carousels
type shortcodeMedia struct {
	DisplayURL string   `json:"display_url"`
	VideoURL   string   `json:"video_url"`
	IsVideo    bool     `json:"is_video"`
	Sidecar    *sidecar `json:"edge_sidecar_to_children"`
}

type sidecar struct {
	Edges []sidecarEdge `json:"edges"`
}

type sidecarEdge struct {
	Node *sidecarNode `json:"node"`
}

type sidecarNode struct {
	DisplayURL string `json:"display_url"`
	VideoURL   string `json:"video_url"`
	IsVideo    bool   `json:"is_video"`
}

// profileResponse is the envelope of the profile lookup
type profileResponse struct {
	Data *struct {
		User *struct {
			ID flexID `json:"id"`
		} `json:"user"`
	} `json:"data"`
}

// reelsResponse is the envelope of the reels lookup
type reelsResponse struct {
	ReelsMedia []reel `json:"reels_media"`
}

// reel is one user's story; MediaIDs runs parallel to Items
type reel struct {
	ID       flexID      `json:"id"`
	MediaIDs []flexID    `json:"media_ids"`
	Items    []storyItem `json:"items"`
}

type storyItem struct {
	VideoVersions  []rendition     `json:"video_versions"`
	ImageVersions2 *imageVersions2 `json:"image_versions2"`
}

type imageVersions2 struct {
	Candidates []rendition `json:"candidates"`
}

// rendition is one encoding of a story asset
type rendition struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (r rendition) area() int {
	return r.Width * r.Height
}
