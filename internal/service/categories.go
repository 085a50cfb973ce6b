package service

import (
	"context"
	"errors"
	"strings"

	"github.com/martinmana808/braintube/internal/models"
)

var ErrEmptyCategoryName = errors.New("category name must not be empty")

// CreateCategory adds a named category. Names are unique case-insensitively.
func (s *Service) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyCategoryName
	}
	return s.store.CreateCategory(ctx, name)
}

// DeleteCategory removes a category; member channels keep existing with no
// category.
func (s *Service) DeleteCategory(ctx context.Context, categoryID int64) error {
	return s.store.DeleteCategory(ctx, categoryID)
}

// Categories lists all categories ordered by name.
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	return s.store.ListCategories(ctx)
}
