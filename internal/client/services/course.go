package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/learnhub/internal/client/api"
	"github.com/dmitrijs2005/learnhub/internal/client/models"
)

// CreateCourseRequest is the body of POST courses.
type CreateCourseRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=4000"`
	Price       float64 `json:"price" validate:"gte=0"`
}

// reorderSectionsRequest is the body of PUT courses/{id}/sections/order.
type reorderSectionsRequest struct {
	SectionIDs []int64 `json:"sectionIds" validate:"required,min=1"`
}

type CourseService interface {
	List(ctx context.Context) ([]models.Course, error)
	Get(ctx context.Context, id int64) (*models.Course, error)
	Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error)
	Sections(ctx context.Context, courseID int64) ([]models.Section, error)
	// ReorderSections moves the section at position from to position to and
	// saves the new order. It returns the sections in their new order.
	ReorderSections(ctx context.Context, courseID int64, from, to int) ([]models.Section, error)
}

type courseService struct {
	client *api.Client
}

func NewCourseService(client *api.Client) CourseService {
	return &courseService{client: client}
}

func (s *courseService) List(ctx context.Context) ([]models.Course, error) {
	courses, err := api.Get[[]models.Course](ctx, s.client, "courses")
	if err != nil {
		return nil, err
	}
	return *courses, nil
}

func (s *courseService) Get(ctx context.Context, id int64) (*models.Course, error) {
	return api.Get[models.Course](ctx, s.client, fmt.Sprintf("courses/%d", id))
}

func (s *courseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	return api.Post[models.Course](ctx, s.client, "courses", req, false)
}

func (s *courseService) Sections(ctx context.Context, courseID int64) ([]models.Section, error) {
	sections, err := api.Get[[]models.Section](ctx, s.client, fmt.Sprintf("courses/%d/sections", courseID))
	if err != nil {
		return nil, err
	}
	return *sections, nil
}

func (s *courseService) ReorderSections(ctx context.Context, courseID int64, from, to int) ([]models.Section, error) {
	sections, err := s.Sections(ctx, courseID)
	if err != nil {
		return nil, err
	}

	moved, err := models.Move(sections, from, to)
	if err != nil {
		return nil, fmt.Errorf("reorder sections %d -> %d: %w", from, to, err)
	}
	models.Renumber(moved)

	req := reorderSectionsRequest{SectionIDs: make([]int64, len(moved))}
	for i, sec := range moved {
		req.SectionIDs[i] = sec.SectionID
	}
	if _, err := api.Put[api.Empty](ctx, s.client, fmt.Sprintf("courses/%d/sections/order", courseID), req, false); err != nil {
		return nil, err
	}
	return moved, nil
}
