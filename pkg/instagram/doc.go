// Package instagram resolves Instagram posts and stories into media
// descriptors.
//
// A Service ties together the session-aware Client, the TokenCache holding
// the scraped anti-forgery token, an auth.SessionStore and a
// stream.ProxyFactory for carousel thumbnails:
//
//	client := instagram.NewClient(30*time.Second, log,
//		instagram.WithLimiter(limiter),
//		instagram.WithRetry(retry.FromSettings(cfg.Retry, log)))
//	svc := instagram.NewService(instagram.ServiceOptions{
//		Client: client,
//		Store:  sessions,
//		Proxy:  signer,
//		Logger: log,
//	})
//
//	req, err := instagram.ParseURL("https://www.instagram.com/p/C0de/")
//	d := svc.Handle(ctx, req)
//
// Handle never returns an error. Failures come back as a descriptor with
// media.ErrorUnsupported, media.ErrorCouldntFetch or media.ErrorEmptyDownload.
//
// Every response may rotate the session's www claim or cookies; the Service
// writes those back into its copy of the session and persists it before the
// next request, so a story lookup's second call already uses them.
package instagram
