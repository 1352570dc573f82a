package users

import (
	"context"

	"github.com/dmitrijs2005/boatlog/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	Exists(ctx context.Context, userID string) (bool, error)
}
