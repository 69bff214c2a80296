package domain

import "io"

// Attachment describes one uploaded file part before it is stored
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}
