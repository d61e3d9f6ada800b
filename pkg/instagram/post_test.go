package instagram

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	errs "igfetch/pkg/errors"
	"igfetch/pkg/media"
	"igfetch/pkg/stream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const carouselResponse = `{
	"data": {
		"xdt_shortcode_media": {
			"display_url": "https://scontent.cdninstagram.com/cover.jpg",
			"edge_sidecar_to_children": {
				"edges": [
					{"node": {"display_url": "https://scontent.cdninstagram.com/1.jpg", "is_video": false}},
					{"node": {"is_video": false}},
					{"node": {"display_url": "https://scontent.cdninstagram.com/3.jpg", "video_url": "https://scontent.cdninstagram.com/3.mp4", "is_video": true}}
				]
			}
		}
	}
}`

func TestGetPostCarousel(t *testing.T) {
	env := newTestEnv(t, map[string]http.HandlerFunc{
		"/":              jsonHandler(landingPage),
		GraphQLEndpoint: jsonHandler(carouselResponse),
	}, true)

	d := env.service.GetPost(context.Background(), "Cabc123")

	assert.Equal(t, media.KindCarousel, d.Kind())
	require.Len(t, d.Picker, 2)

	assert.Equal(t, media.ItemPhoto, d.Picker[0].Type)
	assert.Equal(t, "https://scontent.cdninstagram.com/1.jpg", d.Picker[0].URL)
	assert.Equal(t, "proxy:https://scontent.cdninstagram.com/1.jpg", d.Picker[0].Thumb)

	assert.Equal(t, media.ItemVideo, d.Picker[1].Type)
	assert.Equal(t, "https://scontent.cdninstagram.com/3.mp4", d.Picker[1].URL)
	assert.Equal(t, "proxy:https://scontent.cdninstagram.com/3.jpg", d.Picker[1].Thumb)

	require.Len(t, env.proxy.configs, 2)
	assert.Equal(t, stream.Config{
		Service:   "instagram",
		Mode:      "default",
		SourceURL: "https://scontent.cdninstagram.com/1.jpg",
		Filename:  "image.jpg",
	}, env.proxy.configs[0])
}

func TestGetPostSingleMedia(t *testing.T) {
	tests := []struct {
		name string
		body string
		want media.Descriptor
	}{
		{
			name: "video",
			body: `{"data":{"xdt_shortcode_media":{"display_url":"https://x.cdninstagram.com/p.jpg","video_url":"https://x.cdninstagram.com/v.mp4","is_video":true}}}`,
			want: media.Video("https://x.cdninstagram.com/v.mp4", "instagram_Cvid.mp4", "instagram_Cvid_audio"),
		},
		{
			name: "photo",
			body: `{"data":{"xdt_shortcode_media":{"display_url":"https://x.cdninstagram.com/p.jpg"}}}`,
			want: media.Photo("https://x.cdninstagram.com/p.jpg"),
		},
		{
			name: "no media urls",
			body: `{"data":{"xdt_shortcode_media":{}}}`,
			want: media.Fail(media.ErrorEmptyDownload),
		},
		{
			name: "missing media",
			body: `{"data":{"xdt_shortcode_media":null}}`,
			want: media.Fail(media.ErrorEmptyDownload),
		},
		{
			name: "carousel without usable children",
			body: `{"data":{"xdt_shortcode_media":{"edge_sidecar_to_children":{"edges":[{"node":{}},{"node":null}]}}}}`,
			want: media.Fail(media.ErrorEmptyDownload),
		},
		{
			name: "missing data",
			body: `{"status":"fail"}`,
			want: media.Fail(media.ErrorCouldntFetch),
		},
		{
			name: "malformed body",
			body: `<html>`,
			want: media.Fail(media.ErrorCouldntFetch),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, map[string]http.HandlerFunc{
				GraphQLEndpoint: jsonHandler(tt.body),
			}, false)

			d := env.service.GetPost(context.Background(), "Cvid")
			assert.Equal(t, tt.want, d)
		})
	}
}

func TestGetPostEmptyResponse(t *testing.T) {
	env := newTestEnv(t, map[string]http.HandlerFunc{
		GraphQLEndpoint: jsonHandler(`{"status":"fail"}`),
	}, false)

	d := env.service.GetPost(context.Background(), "Cempty")
	assert.Equal(t, media.Fail(media.ErrorCouldntFetch), d)

	var found bool
	for _, msg := range env.log.GetMessagesByLevel("DEBUG") {
		if msg.Message == "post query failed" {
			found = true
			assert.Equal(t, errs.ErrEmptyResponse.Error(), msg.Fields["error"])
			assert.Equal(t, "Cempty", msg.Fields["shortcode"])
		}
	}
	assert.True(t, found)
}

func TestGetPostTransportFailure(t *testing.T) {
	env := newTestEnv(t, map[string]http.HandlerFunc{
		GraphQLEndpoint: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
	}, false)

	d := env.service.GetPost(context.Background(), "Cerr")
	assert.Equal(t, media.Fail(media.ErrorCouldntFetch), d)
	assert.True(t, env.log.HasMessage("media not resolved"))
}

func TestGetPostNetworkFailure(t *testing.T) {
	env := newTestEnv(t, nil, false)
	env.fake.server.Close()

	d := env.service.GetPost(context.Background(), "Cnet")
	assert.Equal(t, media.Fail(media.ErrorCouldntFetch), d)
}

func TestGetPostQueryForm(t *testing.T) {
	t.Run("with session", func(t *testing.T) {
		env := newTestEnv(t, map[string]http.HandlerFunc{
			"/":              jsonHandler(landingPage),
			GraphQLEndpoint: jsonHandler(`{"data":{"xdt_shortcode_media":{"display_url":"https://x.cdninstagram.com/p.jpg"}}}`),
		}, true)

		env.service.GetPost(context.Background(), "Cform")

		reqs := env.fake.Requests(GraphQLEndpoint)
		require.Len(t, reqs, 1)
		req := reqs[0]

		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
		assert.Equal(t, "0", req.Header.Get("x-ig-www-claim"))
		assert.Equal(t, "csrf-1", req.Header.Get("x-csrftoken"))
		assert.Equal(t, "26297", req.Form.Get("jazoest"))
		assert.Equal(t, PostDocID, req.Form.Get("doc_id"))
		assert.Equal(t, "NAcTOKEN123:17:1700000000", req.Form.Get("fb_dtsg"))

		var variables map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(req.Form.Get("variables")), &variables))
		assert.Equal(t, "Cform", variables["shortcode"])
		assert.Equal(t, false, variables["__relay_internal__pv__PolarisShareMenurelayprovider"])
	})

	t.Run("without session", func(t *testing.T) {
		env := newTestEnv(t, map[string]http.HandlerFunc{
			GraphQLEndpoint: jsonHandler(`{"data":{"xdt_shortcode_media":{"display_url":"https://x.cdninstagram.com/p.jpg"}}}`),
		}, false)

		d := env.service.GetPost(context.Background(), "Canon")
		assert.Equal(t, media.KindPhoto, d.Kind())

		assert.Empty(t, env.fake.Requests("/"), "landing page is only scraped with a session")
		reqs := env.fake.Requests(GraphQLEndpoint)
		require.Len(t, reqs, 1)
		_, hasToken := reqs[0].Form["fb_dtsg"]
		assert.False(t, hasToken)
		assert.Empty(t, reqs[0].Header.Get("Cookie"))
	})

	t.Run("token failure still queries", func(t *testing.T) {
		env := newTestEnv(t, map[string]http.HandlerFunc{
			"/":              jsonHandler("<html>no marker</html>"),
			GraphQLEndpoint: jsonHandler(`{"data":{"xdt_shortcode_media":{"display_url":"https://x.cdninstagram.com/p.jpg"}}}`),
		}, true)

		d := env.service.GetPost(context.Background(), "Cnotoken")
		assert.Equal(t, media.KindPhoto, d.Kind())
		assert.True(t, env.log.HasMessage("anti-forgery token unavailable, querying without it"))

		reqs := env.fake.Requests(GraphQLEndpoint)
		require.Len(t, reqs, 1)
		_, hasToken := reqs[0].Form["fb_dtsg"]
		assert.False(t, hasToken)
	})
}

func TestGetPostClaimPropagation(t *testing.T) {
	env := newTestEnv(t, map[string]http.HandlerFunc{
		"/": jsonHandler(landingPage),
		GraphQLEndpoint: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(ClaimHeader, "abc123")
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "csrf-2", Path: "/"})
			_, _ = w.Write([]byte(`{"data":{"xdt_shortcode_media":{"display_url":"https://x.cdninstagram.com/p.jpg"}}}`))
		},
	}, true)

	env.service.GetPost(context.Background(), "Cclaim")

	stored := env.store.Peek("instagram")
	require.NotNil(t, stored)
	assert.Equal(t, "abc123", stored.Claim)
	assert.Equal(t, "csrf-2", stored.CSRFToken())

	env.service.GetPost(context.Background(), "Cclaim")

	reqs := env.fake.Requests(GraphQLEndpoint)
	require.Len(t, reqs, 2)
	assert.Equal(t, "0", reqs[0].Header.Get("x-ig-www-claim"))
	assert.Equal(t, "abc123", reqs[1].Header.Get("x-ig-www-claim"))
	assert.Equal(t, "csrf-2", reqs[1].Header.Get("x-csrftoken"))
	assert.Len(t, env.fake.Requests("/"), 1, "token is reused between resolutions")
}

func TestGetPostClaimPersistedOnErrorStatus(t *testing.T) {
	env := newTestEnv(t, map[string]http.HandlerFunc{
		"/": jsonHandler(landingPage),
		GraphQLEndpoint: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(ClaimHeader, "hmac.after-error")
			w.WriteHeader(http.StatusForbidden)
		},
	}, true)

	d := env.service.GetPost(context.Background(), "Cdenied")
	assert.Equal(t, media.Fail(media.ErrorCouldntFetch), d)
	assert.Equal(t, "hmac.after-error", env.store.Peek("instagram").Claim)
}

func TestGetPostIdempotent(t *testing.T) {
	env := newTestEnv(t, map[string]http.HandlerFunc{
		"/":              jsonHandler(landingPage),
		GraphQLEndpoint: jsonHandler(carouselResponse),
	}, true)

	first := env.service.GetPost(context.Background(), "Csame")
	second := env.service.GetPost(context.Background(), "Csame")
	assert.Equal(t, first, second)
}
