package models

import (
	"errors"
	"time"
)

type Course struct {
	CourseID     int64     `json:"courseId"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	InstructorID int64     `json:"instructorId"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	Price        float64   `json:"price"`
	IsPublished  bool      `json:"isPublished"`
	CreatedAt    time.Time `json:"createdAt"`
	Sections     []Section `json:"sections,omitempty"`
}

type Section struct {
	SectionID  int64    `json:"sectionId"`
	CourseID   int64    `json:"courseId"`
	Title      string   `json:"title"`
	OrderIndex int      `json:"orderIndex"`
	Lessons    []Lesson `json:"lessons,omitempty"`
}

type Lesson struct {
	LessonID      int64  `json:"lessonId"`
	SectionID     int64  `json:"sectionId"`
	Title         string `json:"title"`
	VideoURL      string `json:"videoUrl,omitempty"`
	AttachmentURL string `json:"attachmentUrl,omitempty"`
	OrderIndex    int    `json:"orderIndex"`
}

var ErrIndexOutOfRange = errors.New("index out of range")

// Move returns a copy of items with the element at from relocated to to,
// shifting the elements in between.
func Move[T any](items []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(items) || to < 0 || to >= len(items) {
		return nil, ErrIndexOutOfRange
	}
	out := make([]T, 0, len(items))
	out = append(out, items...)
	if from == to {
		return out, nil
	}

	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]T{moved}, out[to:]...)...)
	return out, nil
}

// Renumber sets OrderIndex to each section's position.
func Renumber(sections []Section) {
	for i := range sections {
		sections[i].OrderIndex = i
	}
}
