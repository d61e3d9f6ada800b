// Package media defines the descriptor returned for every resolved link.
package media

import "fmt"

// ErrorKind is the stable error code carried by a failed Descriptor
type ErrorKind string

const (
	// ErrorUnsupported means a precondition was not met: no session for a
	// story, or no identifying input at all
	ErrorUnsupported ErrorKind = "ErrorUnsupported"
	// ErrorCouldntFetch means the upstream request failed, or the response
	// held no recognizable media shape
	ErrorCouldntFetch ErrorKind = "ErrorCouldntFetch"
	// ErrorEmptyDownload means the request worked but nothing downloadable
	// was found
	ErrorEmptyDownload ErrorKind = "ErrorEmptyDownload"
)

// Kind reports which shape a Descriptor has
type Kind string

const (
	KindPhoto    Kind = "photo"
	KindVideo    Kind = "video"
	KindCarousel Kind = "carousel"
	KindFailure  Kind = "failure"
)

// ItemType is the type of one carousel entry
type ItemType string

const (
	ItemPhoto ItemType = "photo"
	ItemVideo ItemType = "video"
)

// Item is one entry of a carousel
type Item struct {
	Type  ItemType `json:"type"`
	URL   string   `json:"url"`
	Thumb string   `json:"thumb"`
}

// Descriptor is the outcome of resolving one post or story. Exactly one
// of its shapes is populated; the JSON field names are the wire contract.
type Descriptor struct {
	URLs          string    `json:"urls,omitempty"`
	IsPhoto       bool      `json:"isPhoto,omitempty"`
	Filename      string    `json:"filename,omitempty"`
	AudioFilename string    `json:"audioFilename,omitempty"`
	Picker        []Item    `json:"picker,omitempty"`
	Error         ErrorKind `json:"error,omitempty"`
}

// Photo describes a single image
func Photo(url string) Descriptor {
	return Descriptor{URLs: url, IsPhoto: true}
}

// Video describes a single video saved under the given file names
func Video(url, filename, audioFilename string) Descriptor {
	return Descriptor{URLs: url, Filename: filename, AudioFilename: audioFilename}
}

// Carousel describes a multi-item post. An empty carousel is reported as
// ErrorEmptyDownload.
func Carousel(items []Item) Descriptor {
	if len(items) == 0 {
		return Fail(ErrorEmptyDownload)
	}
	return Descriptor{Picker: items}
}

// Fail describes a resolution that produced no media
func Fail(kind ErrorKind) Descriptor {
	return Descriptor{Error: kind}
}

// Kind reports the shape of d
func (d Descriptor) Kind() Kind {
	switch {
	case d.Error != "":
		return KindFailure
	case len(d.Picker) > 0:
		return KindCarousel
	case d.IsPhoto:
		return KindPhoto
	case d.URLs != "":
		return KindVideo
	default:
		return KindFailure
	}
}

// Failed reports whether d carries no media
func (d Descriptor) Failed() bool {
	return d.Kind() == KindFailure
}

// Outcome is a short label for logs: "ok" or the error code
func (d Descriptor) Outcome() string {
	if d.Error != "" {
		return string(d.Error)
	}
	if d.Failed() {
		return string(ErrorEmptyDownload)
	}
	return "ok"
}

// VideoFilename is the file name a single video is saved under
func VideoFilename(id string) string {
	return fmt.Sprintf("instagram_%s.mp4", id)
}

// AudioFilename is the base name for an audio track split from a video
func AudioFilename(id string) string {
	return fmt.Sprintf("instagram_%s_audio", id)
}
