package downloader

import (
	"fmt"

	"igfetch/pkg/media"
)

// JobsFor lists the files a resolved descriptor should be saved as. id is
// the post shortcode or story item id. Failed descriptors yield no jobs.
func JobsFor(d media.Descriptor, id string) []DownloadJob {
	switch d.Kind() {
	case media.KindPhoto:
		return []DownloadJob{{URL: d.URLs, Filename: fmt.Sprintf("instagram_%s.jpg", id), MediaID: id}}
	case media.KindVideo:
		filename := d.Filename
		if filename == "" {
			filename = media.VideoFilename(id)
		}
		return []DownloadJob{{URL: d.URLs, Filename: filename, MediaID: id}}
	case media.KindCarousel:
		jobs := make([]DownloadJob, 0, len(d.Picker))
		for i, item := range d.Picker {
			ext := "jpg"
			if item.Type == media.ItemVideo {
				ext = "mp4"
			}
			jobs = append(jobs, DownloadJob{
				URL:      item.URL,
				Filename: fmt.Sprintf("instagram_%s_%d.%s", id, i+1, ext),
				MediaID:  id,
			})
		}
		return jobs
	default:
		return nil
	}
}
