package api

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"igfetch/pkg/instagram"
	"igfetch/pkg/logger"
	"igfetch/pkg/media"
	"igfetch/pkg/stream"
)

// Resolver turns a request into a media descriptor
type Resolver interface {
	Handle(ctx context.Context, req instagram.Request) media.Descriptor
}

// Verifier checks a stream reference and returns the asset it names
type Verifier interface {
	Verify(token string) (stream.Config, error)
}

type Handlers struct {
	resolver  Resolver
	verifier  Verifier
	upstream  *http.Client
	userAgent string
	logger    logger.Logger
}

func NewHandlers(
	resolver Resolver,
	verifier Verifier,
	upstream *http.Client,
	userAgent string,
	log logger.Logger,
) *Handlers {
	relay := &http.Client{Timeout: 2 * time.Minute}
	if upstream != nil {
		copied := *upstream
		relay = &copied
	}
	relay.CheckRedirect = checkRedirect
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Handlers{
		resolver:  resolver,
		verifier:  verifier,
		upstream:  relay,
		userAgent: userAgent,
		logger:    log,
	}
}

// maxRedirects matches the net/http default
const maxRedirects = 10

// checkRedirect holds every redirect hop to the same CDN allow-list as the
// signed source URL
func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return stream.CheckHost(req.URL.String())
}

func RegisterRoutes(router *gin.Engine, handlers *Handlers) {
	// Health check
	router.GET("/health", handlers.Health)

	// Resolution
	router.POST("/api/resolve", handlers.Resolve)

	// Thumbnail and media relay
	router.GET("/stream", handlers.Stream)
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// ResolveRequest names the media either by link or by its parts
type ResolveRequest struct {
	URL      string `json:"url"`
	PostID   string `json:"postId"`
	StoryID  string `json:"storyId"`
	Username string `json:"username"`
}

func (h *Handlers) Resolve(c *gin.Context) {
	var body ResolveRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := instagram.Request{PostID: body.PostID, StoryID: body.StoryID, Username: body.Username}
	if body.URL != "" {
		parsed, err := instagram.ParseURL(body.URL)
		if err != nil {
			c.JSON(http.StatusBadRequest, media.Fail(media.ErrorUnsupported))
			return
		}
		req = parsed
	}

	d := h.resolver.Handle(c.Request.Context(), req)
	c.JSON(statusFor(d), d)
}

// statusFor maps a descriptor to the HTTP status it is served with
func statusFor(d media.Descriptor) int {
	switch d.Error {
	case "":
		return http.StatusOK
	case media.ErrorUnsupported:
		return http.StatusBadRequest
	case media.ErrorEmptyDownload:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func (h *Handlers) Stream(c *gin.Context) {
	token := c.Query("t")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing t parameter"})
		return
	}

	cfg, err := h.verifier.Verify(token)
	if err != nil {
		status := http.StatusForbidden
		if errors.Is(err, stream.ErrHostNotAllowed) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, cfg.SourceURL, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	start := time.Now()
	resp, err := h.upstream.Do(req)
	if err != nil {
		if errors.Is(err, stream.ErrHostNotAllowed) {
			h.logger.WithField("source_url", cfg.SourceURL).Warn("stream redirect left the CDN allow-list")
			c.JSON(http.StatusBadGateway, gin.H{"error": stream.ErrHostNotAllowed.Error()})
			return
		}
		h.logger.WithError(err).Warn("stream upstream failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream unavailable"})
		return
	}
	defer resp.Body.Close()
	logger.LogRequest(h.logger, http.MethodGet, cfg.SourceURL, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("upstream status %d", resp.StatusCode)})
		return
	}

	extra := map[string]string{"Cache-Control": "private, max-age=60"}
	if cfg.Filename != "" {
		extra["Content-Disposition"] = mime.FormatMediaType("inline", map[string]string{"filename": cfg.Filename})
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.DataFromReader(http.StatusOK, resp.ContentLength, contentType, resp.Body, extra)
}
