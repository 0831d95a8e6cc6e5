package domain

import "time"

// Platform identifies the social network a URL belongs to. The set is
// closed: dispatch tables switch over it exhaustively, so adding a platform
// is a compile-level change rather than a silent fallthrough.
type Platform int

const (
	PlatformNone Platform = iota
	PlatformInstagram
	PlatformYouTube
	PlatformTikTok
	PlatformTwitter
	PlatformFacebook
	PlatformGeneric
)

func (p Platform) String() string {
	switch p {
	case PlatformInstagram:
		return "instagram"
	case PlatformYouTube:
		return "youtube"
	case PlatformTikTok:
		return "tiktok"
	case PlatformTwitter:
		return "twitter"
	case PlatformFacebook:
		return "facebook"
	case PlatformGeneric:
		return "generic"
	default:
		return "none"
	}
}

// ContentSubtype refines a platform URL. Only Instagram URLs carry a
// meaningful subtype today; everything else is SubtypeUnknown.
type ContentSubtype int

const (
	SubtypeUnknown ContentSubtype = iota
	SubtypePost
	SubtypeReel
	SubtypeStory
)

func (s ContentSubtype) String() string {
	switch s {
	case SubtypePost:
		return "post"
	case SubtypeReel:
		return "reel"
	case SubtypeStory:
		return "story"
	default:
		return "unknown"
	}
}

// Mode selects what the user wants out of a URL.
type Mode int

const (
	ModeDownload Mode = iota
	ModeTranscribe
)

func (m Mode) String() string {
	if m == ModeTranscribe {
		return "transcribe"
	}
	return "download"
}

// JobStatus tracks a job through the scheduler.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusSuccess   JobStatus = "success"
	StatusPartial   JobStatus = "partial-success"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Job is one user-submitted URL plus its processing mode. The scheduler owns
// the job exclusively until it reaches a terminal status.
type Job struct {
	ID            string
	OriginalURL   string
	NormalizedURL string
	Platform      Platform
	Subtype       ContentSubtype
	Mode          Mode
	CreatedAt     time.Time
}

// MediaKind classifies a single retrievable artifact.
type MediaKind int

const (
	KindVideo MediaKind = iota
	KindImage
	KindAudio
	KindText
)

func (k MediaKind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindImage:
		return "image"
	case KindAudio:
		return "audio"
	default:
		return "text"
	}
}

// MediaItem is one retrievable artifact produced by a job. At most one of
// Data and DirectURL is set: Data holds bytes the backend already proxied,
// DirectURL points at a CDN the caller fetches on demand.
//
// OriginalIndex is the item's 1-based position in the backend's pre-filter
// gallery ordering. The validator may drop neighbours, but surviving items
// keep their original index so transcription correlation never shifts.
type MediaItem struct {
	OriginalIndex int
	Kind          MediaKind
	Data          []byte
	DirectURL     string
	Filename      string
	SourceURL     string
	Format        string
	ExtractedText string
	Transcript    string
}

// AcquisitionResult is the terminal snapshot of a job.
// StatusSuccess implies at least one item; StatusFailed implies zero items
// and a populated error.
type AcquisitionResult struct {
	Job    Job
	Status JobStatus
	Items  []MediaItem
	Err    *AcquisitionError
}

// BatchProgress is the scheduler's coarse per-URL counter.
type BatchProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}
