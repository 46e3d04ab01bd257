package service

import (
	"go.uber.org/zap"

	"github.com/sernafernando/lcr-qr/config"
	"github.com/sernafernando/lcr-qr/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Code   CodeService
	Export ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	encoder TokenEncoder,
	logger *zap.Logger,
) *Service {
	return &Service{
		Code:   NewCodeService(cfg, repo, encoder, logger),
		Export: NewExportService(repo, logger),
	}
}
