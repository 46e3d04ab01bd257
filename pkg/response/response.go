package response

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ErrorCodeHeader 错误响应携带的机器可读错误码响应头
const ErrorCodeHeader = "X-Error-Code"

// 错误码约定：1xxxx 通用，2xxxx 兑换码模块
const (
	CodeInvalidParams    = 10001
	CodeMethodNotAllowed = 10002
	CodeBodyTooLarge     = 10005
	CodeInternal         = 50000

	CodeLoadFailed   = 20001
	CodeNotFound     = 20002
	CodeAlreadyUsed  = 20003
	CodeNameRequired = 20004
	CodeQRFailed     = 20005
	CodeExportFailed = 20006
)

// Response 管理接口统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Pagination 分页元数据
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PageData 分页响应数据
type PageData struct {
	List       interface{} `json:"list"`
	Pagination Pagination  `json:"pagination"`
}

// ── 纯文本响应（兑换码公开接口） ──

// Text 以纯文本返回
func Text(c *gin.Context, httpStatus int, message string) {
	c.String(httpStatus, message)
}

// Fail 纯文本错误响应，同时写入错误码响应头
func Fail(c *gin.Context, httpStatus int, code int, message string) {
	c.Header(ErrorCodeHeader, strconv.Itoa(code))
	c.String(httpStatus, message)
}

// MethodNotAllowed 405
func MethodNotAllowed(c *gin.Context) {
	Fail(c, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Método no permitido.")
}

// ── JSON 响应 ──

// JSON 原样返回 JSON 对象（不包裹统一结构）
func JSON(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// OK 200 成功响应
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// OKPage 200 分页成功
func OKPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data: PageData{
			List: list,
			Pagination: Pagination{
				Page:       page,
				PageSize:   pageSize,
				Total:      total,
				TotalPages: totalPages,
			},
		},
	})
}

// Error 管理接口 JSON 错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.Header(ErrorCodeHeader, strconv.Itoa(code))
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 400
func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

// InternalError 500
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternal, "Error interno del servidor.")
}
