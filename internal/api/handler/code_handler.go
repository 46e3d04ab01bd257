package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sernafernando/lcr-qr/internal/dto"
	"github.com/sernafernando/lcr-qr/internal/service"
	"github.com/sernafernando/lcr-qr/pkg/response"
)

// CodeHandler 兑换码模块 HTTP 处理器
type CodeHandler struct {
	codeSvc service.CodeService
}

// NewCodeHandler 创建 CodeHandler
func NewCodeHandler(codeSvc service.CodeService) *CodeHandler {
	return &CodeHandler{codeSvc: codeSvc}
}

// LoadCodes 批量导入兑换码
// POST /load-codes
func (h *CodeHandler) LoadCodes(c *gin.Context) {
	var req dto.LoadCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, fmt.Sprintf("Error al cargar los códigos: %s", err.Error()))
		return
	}

	if _, err := h.codeSvc.LoadCodes(c.Request.Context(), req); err != nil {
		c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.CodeLoadFailed,
			fmt.Sprintf("Error al cargar los códigos: %s", err.Error()))
		return
	}

	response.Text(c, http.StatusOK, "Códigos cargados exitosamente.")
}

// ValidateCode 验证并消费兑换码
// GET /validate-code?code=X
func (h *CodeHandler) ValidateCode(c *gin.Context) {
	var req dto.ValidateCodeRequest
	if err := c.ShouldBindQuery(&req); err != nil || req.Code == "" {
		response.Fail(c, http.StatusBadRequest, response.CodeInvalidParams, `Falta el parámetro "code".`)
		return
	}

	if err := h.codeSvc.ValidateCode(c.Request.Context(), req.Code); err != nil {
		h.handleValidateError(c, err)
		return
	}

	response.Text(c, http.StatusOK, "Código válido. Acceso permitido.")
}

// RegisterPerson 登记并返回二维码
// POST /register-person
func (h *CodeHandler) RegisterPerson(c *gin.Context) {
	var req dto.RegisterPersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, "Nombre es requerido.")
		return
	}

	result, err := h.codeSvc.RegisterPerson(c.Request.Context(), req.Name)
	if err != nil {
		h.handleRegisterError(c, err)
		return
	}

	response.JSON(c, result)
}

// ListCodes 兑换码列表
// GET /codes?used=&page=&page_size=
func (h *CodeHandler) ListCodes(c *gin.Context) {
	var req dto.CodeListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeInvalidParams, "Parámetros inválidos.")
		return
	}

	page, err := h.codeSvc.List(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		response.InternalError(c)
		return
	}

	response.OKPage(c, page.List, page.Total, page.Page, page.PageSize)
}

// GetStats 兑换码统计
// GET /codes/stats
func (h *CodeHandler) GetStats(c *gin.Context) {
	stats, err := h.codeSvc.Stats(c.Request.Context())
	if err != nil {
		c.Error(err)
		response.InternalError(c)
		return
	}

	response.OK(c, stats)
}

// handleValidateError 统一处理验证接口业务错误
func (h *CodeHandler) handleValidateError(c *gin.Context, err error) {
	var used *service.CodeUsedError
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		response.Fail(c, http.StatusBadRequest, response.CodeInvalidParams, `Falta el parámetro "code".`)
	case errors.Is(err, service.ErrCodeNotFound):
		response.Fail(c, http.StatusNotFound, response.CodeNotFound, "Código no encontrado.")
	case errors.As(err, &used):
		response.Fail(c, http.StatusForbidden, response.CodeAlreadyUsed, usedMessage(used))
	default:
		c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.CodeInternal,
			fmt.Sprintf("Error del servidor: %s", err.Error()))
	}
}

// handleRegisterError 统一处理登记接口业务错误
func (h *CodeHandler) handleRegisterError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		response.Fail(c, http.StatusBadRequest, response.CodeNameRequired, "Nombre es requerido.")
	case errors.Is(err, service.ErrEncoding):
		c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.CodeQRFailed, fmt.Sprintf("Error: %s", err.Error()))
	default:
		c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.CodeInternal, fmt.Sprintf("Error: %s", err.Error()))
	}
}

// bindFailed 请求体解析失败：超出大小限制返回 413，其余返回 400
func bindFailed(c *gin.Context, err error, message string) {
	c.Error(err)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.CodeBodyTooLarge, "Cuerpo de la solicitud demasiado grande.")
		return
	}
	response.Fail(c, http.StatusBadRequest, response.CodeInvalidParams, message)
}

func usedMessage(e *service.CodeUsedError) string {
	if e.ConsumedAt == nil {
		return "Código ya usado."
	}
	return fmt.Sprintf("Código ya usado el %s.", service.FormatTimestamp(*e.ConsumedAt))
}
