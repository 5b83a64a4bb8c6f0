package models

import "time"

// UploadRequest is built fresh for every user action and discarded afterwards.
type UploadRequest struct {
	Asset    ImageAsset
	Endpoint string
	Deadline time.Duration
}
