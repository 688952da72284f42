package models

import (
	"strings"
	"time"
)

// MediaType classifies a media reference by its payload kind.
type MediaType string

const (
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

// TypeForURL classifies a media URL. Audio is recognized by the .mp3
// suffix on the raw URL string; everything else is treated as video.
func TypeForURL(url string) MediaType {
	if strings.HasSuffix(url, ".mp3") {
		return MediaAudio
	}
	return MediaVideo
}

// MediaReference is one discovered playable asset. SourceURL is the
// identity key: two references with the same SourceURL describe the same
// asset regardless of where in the tree they were found.
type MediaReference struct {
	Section         string    `json:"section"`
	Pack            string    `json:"pack"`
	PackDescription string    `json:"pack_description"`
	SessionTitle    string    `json:"session_title"`
	MediaType       MediaType `json:"media_type"`
	SourceURL       string    `json:"source_url"`
	SuggestedPath   string    `json:"suggested_local_path"`
}

// Section is a content section discovered on the main page.
type Section struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// FetchMode selects the page fetch engine.
type FetchMode string

const (
	ModeAuto    FetchMode = "auto"
	ModeStatic  FetchMode = "static"
	ModeDynamic FetchMode = "dynamic"
)

// Page is the result of fetching a single page.
type Page struct {
	URL          string        `json:"url"`
	FinalURL     string        `json:"final_url,omitempty"`
	StatusCode   int           `json:"status_code"`
	HTML         string        `json:"html,omitempty"`
	Mode         FetchMode     `json:"mode"`
	FetchedAt    time.Time     `json:"fetched_at"`
	ResponseTime time.Duration `json:"response_time"`
}

// FetchOptions carries per-request knobs for the fetch engines.
type FetchOptions struct {
	Mode        FetchMode
	Headers     map[string]string
	SessionName string
	Timeout     time.Duration
}
