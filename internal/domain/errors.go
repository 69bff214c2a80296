package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds shared by every layer. Concrete errors wrap one of these so
// callers can classify them with errors.Is.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// FieldError describes one rejected input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a field failure.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns e when at least one field failed, nil otherwise.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// AttachmentReason tells why an uploaded file set was refused
type AttachmentReason string

const (
	AttachmentTooMany     AttachmentReason = "too_many_files"
	AttachmentNotImage    AttachmentReason = "unsupported_media_type"
	AttachmentTooLarge    AttachmentReason = "file_too_large"
	AttachmentImagesLimit AttachmentReason = "image_limit_exceeded"
)

// AttachmentError rejects a whole request because of its file parts.
// It is reported separately from field validation.
type AttachmentError struct {
	Reason   AttachmentReason
	Filename string
	Limit    int64
}

func (e *AttachmentError) Error() string {
	switch e.Reason {
	case AttachmentTooMany:
		return fmt.Sprintf("too many files attached (max %d)", e.Limit)
	case AttachmentNotImage:
		return fmt.Sprintf("file %q is not an image", e.Filename)
	case AttachmentTooLarge:
		return fmt.Sprintf("file %q exceeds the %d byte limit", e.Filename, e.Limit)
	case AttachmentImagesLimit:
		return fmt.Sprintf("a product can hold at most %d images", e.Limit)
	default:
		return "invalid attachment"
	}
}
