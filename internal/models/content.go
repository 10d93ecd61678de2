package models

import (
	"time"

	"gorm.io/datatypes"
)

// Content kinds stored on a course content row.
const (
	ContentKindQuiz  = "quiz"
	ContentKindText  = "text"
	ContentKindVideo = "video"
)

// CourseContent is one item of course material. Quiz contents carry the
// serialized quiz envelope in Data; other kinds store their payload the same
// way and are opaque to this service.
type CourseContent struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CourseID  uint           `gorm:"index;not null" json:"course_id"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	Kind      string         `gorm:"size:32;not null" json:"kind"`
	Data      datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IsQuiz reports whether the content row holds a quiz blob.
func (c CourseContent) IsQuiz() bool {
	return c.Kind == ContentKindQuiz
}
