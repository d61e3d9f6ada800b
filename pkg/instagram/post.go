package instagram

import (
	"context"
	"net/http"
	"time"

	errs "igfetch/pkg/errors"
	"igfetch/pkg/logger"
	"igfetch/pkg/media"
	"igfetch/pkg/stream"
)

// GetPost resolves a post shortcode into a photo, video or carousel
func (s *Service) GetPost(ctx context.Context, shortcode string) media.Descriptor {
	start := time.Now()
	d := s.getPost(ctx, shortcode)
	logger.LogResolve(s.logger, "post", shortcode, d.Outcome(), time.Since(start))
	return d
}

func (s *Service) getPost(ctx context.Context, shortcode string) media.Descriptor {
	log := s.logger.WithField("shortcode", shortcode)
	session := s.session(ctx)

	var token string
	if session != nil {
		var err error
		token, err = s.tokens.Get(ctx, session)
		if err != nil {
			log.WithError(err).Warn("anti-forgery token unavailable, querying without it")
		}
	}

	var resp postResponse
	err := s.exchange(ctx, http.MethodPost, s.endpoints.GraphQL(), session, PostQuery(shortcode, token), &resp)
	if err == nil && resp.Data == nil {
		err = errs.ErrEmptyResponse
	}
	if err != nil {
		log.WithError(err).Debug("post query failed")
		return media.Fail(media.ErrorCouldntFetch)
	}

	post := resp.Data.ShortcodeMedia
	switch {
	case post == nil:
		return media.Fail(media.ErrorEmptyDownload)
	case post.Sidecar != nil:
		return media.Carousel(s.carouselItems(post.Sidecar))
	case post.VideoURL != "":
		return media.Video(post.VideoURL, media.VideoFilename(shortcode), media.AudioFilename(shortcode))
	case post.DisplayURL != "":
		return media.Photo(post.DisplayURL)
	default:
		return media.Fail(media.ErrorEmptyDownload)
	}
}

// carouselItems keeps children with a display image, in order
func (s *Service) carouselItems(sc *sidecar) []media.Item {
	items := make([]media.Item, 0, len(sc.Edges))
	for _, edge := range sc.Edges {
		node := edge.Node
		if node == nil || node.DisplayURL == "" {
			continue
		}

		item := media.Item{Type: media.ItemPhoto, URL: node.DisplayURL}
		if node.IsVideo {
			item.Type = media.ItemVideo
			item.URL = node.VideoURL
		}
		if s.proxy != nil {
			item.Thumb = s.proxy.CreateProxyReference(stream.Config{
				Service:   "instagram",
				Mode:      "default",
				SourceURL: node.DisplayURL,
				Filename:  "image.jpg",
			})
		}
		items = append(items, item)
	}
	return items
}
