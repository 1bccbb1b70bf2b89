package model

import (
	"strings"
	"time"
)

// DownloadPrefix tags the callback payload of the "Download Image" button.
const DownloadPrefix = "download_"

// DocumentFileName is the name the stored PNG is delivered under.
const DocumentFileName = "background_removed.png"

// Artifact is a processed (background-removed, watermarked) image persisted
// under a unique identifier.
type Artifact struct {
	ID        string
	Width     int
	Height    int
	CreatedAt time.Time
}

func NewArtifact(id string, width, height int) *Artifact {
	return &Artifact{ID: id, Width: width, Height: height, CreatedAt: time.Now()}
}

// DownloadPayload is the callback data carried by the download button.
func (a *Artifact) DownloadPayload() string {
	return DownloadPayload(a.ID)
}

func DownloadPayload(id string) string {
	return DownloadPrefix + id
}

// ParseDownloadPayload extracts the artifact id from callback data.
// ok is false when data is not a download action or carries no id.
func ParseDownloadPayload(data string) (id string, ok bool) {
	data = strings.TrimSpace(data)
	if !strings.HasPrefix(data, DownloadPrefix) {
		return "", false
	}
	id = strings.TrimPrefix(data, DownloadPrefix)
	if id == "" {
		return "", false
	}
	return id, true
}
