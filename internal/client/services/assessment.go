package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/client/api"
	"github.com/dmitrijs2005/learnhub/internal/client/models"
)

var (
	ErrAttemptExpired   = errors.New("attempt time is over")
	ErrAlreadySubmitted = errors.New("attempt already submitted")
)

// CreateAssessmentRequest is the body of POST assessments.
type CreateAssessmentRequest struct {
	CourseID        int64  `json:"courseId,omitempty"`
	Title           string `json:"title" validate:"required,max=200"`
	Description     string `json:"description,omitempty" validate:"max=2000"`
	DurationMinutes int    `json:"durationMinutes,omitempty" validate:"gte=0,lte=600"`
	PassingScore    int    `json:"passingScore,omitempty" validate:"gte=0,lte=100"`
}

type startAttemptResponse struct {
	AttemptID int64     `json:"attemptId"`
	StartedAt time.Time `json:"startedAt"`
}

type submitAttemptRequest struct {
	Answers []models.Answer `json:"answers"`
}

type AssessmentService interface {
	Create(ctx context.Context, req CreateAssessmentRequest) (*models.Assessment, error)
	Questions(ctx context.Context, assessmentID int64) ([]models.Question, error)
	// StartAttempt opens an attempt that must be submitted within d of the
	// server's start time.
	StartAttempt(ctx context.Context, assessmentID int64, d time.Duration) (*Attempt, error)
}

type assessmentService struct {
	client *api.Client
	now    func() time.Time
}

func NewAssessmentService(client *api.Client) AssessmentService {
	return &assessmentService{client: client, now: time.Now}
}

func (s *assessmentService) Create(ctx context.Context, req CreateAssessmentRequest) (*models.Assessment, error) {
	return api.Post[models.Assessment](ctx, s.client, "assessments", req, false)
}

func (s *assessmentService) Questions(ctx context.Context, assessmentID int64) ([]models.Question, error) {
	qs, err := api.Get[[]models.Question](ctx, s.client, fmt.Sprintf("assessments/%d/questions", assessmentID))
	if err != nil {
		return nil, err
	}
	return *qs, nil
}

func (s *assessmentService) StartAttempt(ctx context.Context, assessmentID int64, d time.Duration) (*Attempt, error) {
	if d <= 0 {
		return nil, fmt.Errorf("attempt duration must be positive, got %s", d)
	}

	resp, err := api.Post[startAttemptResponse](ctx, s.client, fmt.Sprintf("assessments/%d/attempts", assessmentID), nil, false)
	if err != nil {
		return nil, err
	}

	// The server's start time counts when it reports one.
	started := resp.StartedAt
	if started.IsZero() {
		started = s.now()
	}

	return &Attempt{
		client:       s.client,
		now:          s.now,
		AssessmentID: assessmentID,
		AttemptID:    resp.AttemptID,
		Deadline:     started.Add(d),
	}, nil
}

// Attempt is one timed run through an assessment. It can be submitted
// once, and only before Deadline.
type Attempt struct {
	client *api.Client
	now    func() time.Time

	AssessmentID int64
	AttemptID    int64
	Deadline     time.Time

	mu        sync.Mutex
	inFlight  bool
	submitted bool
}

// Remaining is the time left before the deadline, never negative.
func (a *Attempt) Remaining() time.Duration {
	if r := a.Deadline.Sub(a.now()); r > 0 {
		return r
	}
	return 0
}

// Submit sends the answers. A failed submission may be retried until the
// deadline; a successful one cannot be repeated.
func (a *Attempt) Submit(ctx context.Context, answers []models.Answer) (*models.AttemptResult, error) {
	a.mu.Lock()
	if a.submitted || a.inFlight {
		a.mu.Unlock()
		return nil, ErrAlreadySubmitted
	}
	if !a.now().Before(a.Deadline) {
		a.mu.Unlock()
		return nil, ErrAttemptExpired
	}
	a.inFlight = true
	a.mu.Unlock()

	path := fmt.Sprintf("assessments/%d/attempts/%d/submit", a.AssessmentID, a.AttemptID)
	res, err := api.Post[models.AttemptResult](ctx, a.client, path, submitAttemptRequest{Answers: answers}, false)

	a.mu.Lock()
	a.inFlight = false
	a.submitted = err == nil
	a.mu.Unlock()

	return res, err
}
