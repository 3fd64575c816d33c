package valueobject

import (
	"errors"
)

var (
	ErrInvalidContentKind = errors.New("invalid content kind")
)

type ContentKind string

const (
	KindPDF           ContentKind = "pdf"
	KindVideo         ContentKind = "video"
	KindCourseLecture ContentKind = "course_lecture"
)

// NewContentKind creates a new ContentKind value object
func NewContentKind(kind string) (ContentKind, error) {
	k := ContentKind(kind)
	switch k {
	case KindPDF, KindVideo, KindCourseLecture:
		return k, nil
	default:
		return "", ErrInvalidContentKind
	}
}

// String returns the string representation of the content kind
func (k ContentKind) String() string {
	return string(k)
}

// IsValid returns true if the content kind is valid
func (k ContentKind) IsValid() bool {
	switch k {
	case KindPDF, KindVideo, KindCourseLecture:
		return true
	default:
		return false
	}
}
