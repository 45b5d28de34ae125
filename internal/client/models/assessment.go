package models

import "time"

type Assessment struct {
	AssessmentID    int64  `json:"assessmentId"`
	CourseID        int64  `json:"courseId,omitempty"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
	PassingScore    int    `json:"passingScore,omitempty"`
}

type Question struct {
	QuestionID int64    `json:"questionId"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
	Section    string   `json:"section,omitempty"`
	Points     int      `json:"points"`
}

type Answer struct {
	QuestionID     int64 `json:"questionId"`
	SelectedOption int   `json:"selectedOption"`
}

type AttemptResult struct {
	AttemptID   int64     `json:"attemptId"`
	Score       int       `json:"score"`
	MaxScore    int       `json:"maxScore"`
	Passed      bool      `json:"passed"`
	SubmittedAt time.Time `json:"submittedAt"`
}
