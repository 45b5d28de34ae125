package services

import (
	"context"
	"io"

	"github.com/dmitrijs2005/learnhub/internal/client/api"
	"github.com/dmitrijs2005/learnhub/internal/client/models"
)

// UpdateProfileRequest is the body of PUT users/me.
type UpdateProfileRequest struct {
	FullName string `json:"fullName" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
}

type UserService interface {
	Me(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*models.User, error)
	// UploadProfilePicture sends content as the multipart field "file" and
	// returns the updated profile.
	UploadProfilePicture(ctx context.Context, filename string, content io.Reader) (*models.User, error)
}

type userService struct {
	client *api.Client
}

func NewUserService(client *api.Client) UserService {
	return &userService{client: client}
}

func (s *userService) Me(ctx context.Context) (*models.User, error) {
	return api.Get[models.User](ctx, s.client, "users/me")
}

func (s *userService) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*models.User, error) {
	return api.Put[models.User](ctx, s.client, "users/me", req, false)
}

func (s *userService) UploadProfilePicture(ctx context.Context, filename string, content io.Reader) (*models.User, error) {
	form := api.NewForm().AddFile("file", filename, content)
	return api.Post[models.User](ctx, s.client, "users/me/profile-picture", form, true)
}
