package handler

import "github.com/sernafernando/lcr-qr/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Code   *CodeHandler
	Export *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Code:   NewCodeHandler(svc.Code),
		Export: NewExportHandler(svc.Export),
	}
}
