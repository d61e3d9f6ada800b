package instagram

import (
	"context"

	"igfetch/pkg/media"
)

// Request names what to resolve: a post, or a story item of a user
type Request struct {
	PostID   string `json:"postId,omitempty"`
	StoryID  string `json:"storyId,omitempty"`
	Username string `json:"username,omitempty"`
}

// Handle routes a request to the post or story resolver. It never returns
// an error; failures are carried by the descriptor.
func (s *Service) Handle(ctx context.Context, req Request) media.Descriptor {
	switch {
	case req.PostID != "":
		return s.GetPost(ctx, req.PostID)
	case req.Username != "" && req.StoryID != "":
		return s.GetStory(ctx, req.Username, req.StoryID)
	default:
		return media.Fail(media.ErrorUnsupported)
	}
}
