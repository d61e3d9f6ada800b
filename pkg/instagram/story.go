package instagram

import (
	"context"
	"net/http"
	"time"

	"igfetch/pkg/auth"
	errs "igfetch/pkg/errors"
	"igfetch/pkg/logger"
	"igfetch/pkg/media"
)

// GetStory resolves one story item of username. Stories need a session.
func (s *Service) GetStory(ctx context.Context, username, mediaID string) media.Descriptor {
	start := time.Now()
	d := s.getStory(ctx, username, mediaID)
	logger.LogResolve(s.logger, "story", mediaID, d.Outcome(), time.Since(start))
	return d
}

func (s *Service) getStory(ctx context.Context, username, mediaID string) media.Descriptor {
	log := s.logger.WithFields(map[string]interface{}{
		"username": username,
		"story_id": mediaID,
	})

	session := s.session(ctx)
	if session == nil {
		log.Debug("stories require a session")
		return media.Fail(media.ErrorUnsupported)
	}

	ownerID, err := s.UsernameToID(ctx, username, session)
	if err != nil {
		log.WithError(err).Debug("could not resolve story owner")
		return media.Fail(media.ErrorEmptyDownload)
	}

	item, err := s.findStoryItem(ctx, session, ownerID, mediaID)
	if err != nil {
		log.WithError(err).Debug("story item not found")
		return media.Fail(media.ErrorEmptyDownload)
	}

	if len(item.VideoVersions) > 0 {
		best := largestRendition(item.VideoVersions)
		return media.Video(best.URL, media.VideoFilename(mediaID), media.AudioFilename(mediaID))
	}
	if item.ImageVersions2 != nil && len(item.ImageVersions2.Candidates) > 0 {
		return media.Photo(item.ImageVersions2.Candidates[0].URL)
	}
	return media.Fail(media.ErrorCouldntFetch)
}

// findStoryItem fetches the owner's reel and returns the item at the
// position of mediaID in the reel's id list
func (s *Service) findStoryItem(ctx context.Context, session *auth.Session, ownerID, mediaID string) (*storyItem, error) {
	var resp reelsResponse
	if err := s.exchange(ctx, http.MethodGet, s.endpoints.Reels(ownerID, mediaID), session, nil, &resp); err != nil {
		return nil, err
	}

	for _, r := range resp.ReelsMedia {
		if string(r.ID) != ownerID {
			continue
		}
		for i, id := range r.MediaIDs {
			if string(id) == mediaID {
				if i < len(r.Items) {
					return &r.Items[i], nil
				}
				break
			}
		}
		return nil, errs.ErrReelNotFound
	}
	return nil, errs.ErrReelNotFound
}

// largestRendition picks the rendition with the greatest area; on a tie the
// earlier one is kept
func largestRendition(renditions []rendition) rendition {
	best := renditions[0]
	for _, r := range renditions[1:] {
		if best.area() < r.area() {
			best = r
		}
	}
	return best
}
