package service

import (
	"context"

	accountdomain "github.com/glowface/pointgate/internal/account/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo accountdomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo accountdomain.Repository
}

func New(p ServiceParam) accountdomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("account.service"),
		repo: p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, deviceID string) (*accountdomain.Account, error) {
	row, err := s.repo.FindByDeviceID(ctx, s.db, deviceID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, accountdomain.ErrNotFound
	}
	return row, nil
}
