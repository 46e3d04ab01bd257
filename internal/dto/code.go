package dto

// ── 兑换码模块 DTO ──

// LoadCodesRequest 批量导入兑换码请求（JSON 数组）
type LoadCodesRequest []string

// ValidateCodeRequest 验证兑换码查询参数
type ValidateCodeRequest struct {
	Code string `form:"code"`
}

// RegisterPersonRequest 登记请求
type RegisterPersonRequest struct {
	Name string `json:"name"`
}

// RegisterPersonResponse 登记响应，qr 为 PNG data URI
type RegisterPersonResponse struct {
	QR string `json:"qr"`
}

// TokenPayload 二维码中编码的 JSON 负载
type TokenPayload struct {
	Name             string `json:"name"`
	Code             string `json:"code"`
	RegistrationDate string `json:"registration_date"`
}

// CodeListRequest 兑换码列表查询参数
type CodeListRequest struct {
	Used *bool `form:"used"`
	PaginationRequest
}

// CodeResponse 兑换码信息
type CodeResponse struct {
	Code             string  `json:"code"`
	Name             *string `json:"name,omitempty"`
	Used             bool    `json:"used"`
	ScannedAt        string  `json:"scanned_at,omitempty"`
	RegistrationDate string  `json:"registration_date,omitempty"`
}

// CodePage 兑换码分页结果
type CodePage struct {
	List     []CodeResponse
	Total    int64
	Page     int
	PageSize int
}

// CodeStatsResponse 兑换码统计
type CodeStatsResponse struct {
	Total      int64 `json:"total"`
	Used       int64 `json:"used"`
	Unused     int64 `json:"unused"`
	Scanned    int64 `json:"scanned"`
	Registered int64 `json:"registered"`
}
