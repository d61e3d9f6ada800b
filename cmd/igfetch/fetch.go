package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"igfetch/internal/downloader"
	"igfetch/pkg/instagram"
	"igfetch/pkg/media"
	"igfetch/pkg/retry"
	"igfetch/pkg/storage"
	"igfetch/pkg/ui"
)

var (
	fetchPost       string
	fetchUser       string
	fetchStory      string
	fetchDownload   bool
	fetchJSON       bool
	fetchOutput     string
	fetchConcurrent int
)

// fetchCmd resolves one post or story
var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "Resolve a post or story link into media URLs",
	Long: `Resolve an Instagram post, reel or story into its media.

The link may be given as an argument, or the parts may be named with flags.
Stories require a stored session (see 'igfetch auth login').

The result is printed as JSON when stdout is not a terminal or --json is set.`,
	Example: `  # Resolve a post
  igfetch fetch https://www.instagram.com/p/C1a2b3c4d5e/

  # Resolve a story item and save it
  igfetch fetch --user someone --story 3301234567890123456 --download

  # Machine-readable output
  igfetch fetch --post C1a2b3c4d5e --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchPost, "post", "", "post shortcode")
	fetchCmd.Flags().StringVar(&fetchUser, "user", "", "story owner username")
	fetchCmd.Flags().StringVar(&fetchStory, "story", "", "story item id")
	fetchCmd.Flags().BoolVarP(&fetchDownload, "download", "d", false, "save the media into the output directory")
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "print the descriptor as JSON")
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "output directory for downloads")
	fetchCmd.Flags().IntVar(&fetchConcurrent, "concurrent", 0, "number of concurrent downloads")
}

// fetchRequest builds the request from the argument or the flags
func fetchRequest(args []string) (instagram.Request, error) {
	if len(args) == 1 {
		return instagram.ParseURL(args[0])
	}

	req := instagram.Request{
		PostID:   fetchPost,
		Username: instagram.SanitizeUsername(fetchUser),
		StoryID:  fetchStory,
	}
	if req.PostID == "" && (req.Username == "" || req.StoryID == "") {
		return req, errors.New("give a link, --post, or both --user and --story")
	}
	return req, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	req, err := fetchRequest(args)
	if err != nil {
		return err
	}

	cfg, log, err := loadConfig(map[string]interface{}{
		"output":     fetchOutput,
		"concurrent": fetchConcurrent,
	})
	if err != nil {
		return err
	}

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := a.service.Handle(ctx, req)

	out := cmd.OutOrStdout()
	if fetchJSON || !term.IsTerminal(int(os.Stdout.Fd())) {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d); err != nil {
			return err
		}
	} else {
		ui.PrintDescriptor(out, d)
	}

	if d.Failed() {
		return fmt.Errorf("could not resolve media: %s", d.Outcome())
	}

	if fetchDownload {
		return download(ctx, a, d, mediaID(req))
	}
	return nil
}

// mediaID names downloaded files after the post or story item
func mediaID(req instagram.Request) string {
	if req.PostID != "" {
		return req.PostID
	}
	return req.StoryID
}

func download(ctx context.Context, a *app, d media.Descriptor, id string) error {
	store, err := storage.NewManager(a.cfg.Output.BaseDirectory)
	if err != nil {
		return err
	}
	store.WithOverwrite(a.cfg.Output.OverwriteExisting)

	fetcher := downloader.NewHTTPFetcher(
		&http.Client{Timeout: 10 * a.cfg.HTTP.Timeout},
		a.cfg.Instagram.UserAgent,
		retry.FromSettings(a.cfg.Retry, a.log),
		a.log,
	)
	pool := downloader.NewWorkerPool(a.cfg.Output.ConcurrentDownloads, fetcher, store, nil, a.log)

	jobs := downloader.JobsFor(d, id)
	results := pool.Run(ctx, jobs)

	failed := 0
	for _, r := range results {
		ui.PrintDownload(os.Stderr, r.Job.Filename, r.Path, r.Skipped, r.Error)
		if !r.Success {
			failed++
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(jobs))
	}
	return nil
}
