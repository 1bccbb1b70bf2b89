package model

// PhotoVariant is one resolution the platform offers for a submitted photo.
type PhotoVariant struct {
	FileID   string
	Width    int
	Height   int
	FileSize int
}

func (p PhotoVariant) area() int { return p.Width * p.Height }

// SelectLargest picks the highest-resolution variant: largest pixel area,
// then largest file size, then the one offered last.
func SelectLargest(variants []PhotoVariant) (PhotoVariant, bool) {
	var (
		best  PhotoVariant
		found bool
	)
	for _, v := range variants {
		if v.FileID == "" {
			continue
		}
		if !found ||
			v.area() > best.area() ||
			(v.area() == best.area() && v.FileSize >= best.FileSize) {
			best = v
			found = true
		}
	}
	return best, found
}

// PhotoRequest is an inbound photo event as the orchestrator sees it.
type PhotoRequest struct {
	ChatID    int64
	UserID    int64
	MessageID int
	Variants  []PhotoVariant
}

// DownloadRequest is a button press carrying a callback payload.
type DownloadRequest struct {
	ChatID    int64
	UserID    int64
	MessageID int
	// MessageHasMedia is true when the originating message is a photo or
	// document, in which case its caption is edited instead of its text.
	MessageHasMedia bool
	Data            string
}
