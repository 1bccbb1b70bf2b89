package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrArtifactNotFound   = errors.New("artifact not found")
	ErrImageTooSmall      = errors.New("image too small for watermark")
	ErrUnsupportedMedia   = errors.New("unsupported media type")
	ErrRemovalUnavailable = errors.New("background removal unavailable")
	ErrLockHeld           = errors.New("lock held by another owner")
)
