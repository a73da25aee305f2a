package service

import (
	"context"
	"errors"

	"github.com/flicky/go-storefront-api/internal/model"
	"github.com/flicky/go-storefront-api/internal/repository"
)

type ProfileService struct {
	profileRepo repository.ProfileRepository
}

func NewProfileService(profileRepo repository.ProfileRepository) *ProfileService {
	return &ProfileService{profileRepo: profileRepo}
}

func (s *ProfileService) Get(ctx context.Context, userID int) (*model.Profile, error) {
	p, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, storageError("get profile", err)
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// Update replaces the caller's profile. A body naming any other user,
// including one that omits the user id, is rejected before anything is written.
func (s *ProfileService) Update(ctx context.Context, callerID int, p model.Profile) (*model.Profile, error) {
	if p.UserID != callerID {
		return nil, ErrProfileForbidden
	}
	if err := s.profileRepo.Update(ctx, &p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, storageError("update profile", err)
	}
	return &p, nil
}
