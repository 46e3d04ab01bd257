package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sernafernando/lcr-qr/config"
	"github.com/sernafernando/lcr-qr/internal/dto"
	"github.com/sernafernando/lcr-qr/internal/model"
	"github.com/sernafernando/lcr-qr/internal/repository"
	pkgerrors "github.com/sernafernando/lcr-qr/pkg/errors"
)

// TokenEncoder 把负载文本编码为可扫描图像（data URI）
type TokenEncoder interface {
	Encode(payload string) (string, error)
}

// CodeService 兑换码业务接口
type CodeService interface {
	// LoadCodes 逐条插入兑换码，返回已成功插入的数量；失败时不回滚之前的插入
	LoadCodes(ctx context.Context, codes []string) (int, error)
	// ValidateCode 验证并消费兑换码，只有首次调用成功
	ValidateCode(ctx context.Context, code string) error
	// RegisterPerson 为 name 分配兑换码（无可用码时新建）并生成二维码
	RegisterPerson(ctx context.Context, name string) (*dto.RegisterPersonResponse, error)
	List(ctx context.Context, req *dto.CodeListRequest) (*dto.CodePage, error)
	Stats(ctx context.Context) (*dto.CodeStatsResponse, error)
}

type codeService struct {
	repo          *repository.Repository
	encoder       TokenEncoder
	logger        *zap.Logger
	claimAttempts int
	pageSize      int

	now     func() time.Time
	newCode func() string
}

// NewCodeService 创建 CodeService 实例
func NewCodeService(cfg *config.Config, repo *repository.Repository, encoder TokenEncoder, logger *zap.Logger) CodeService {
	return &codeService{
		repo:          repo,
		encoder:       encoder,
		logger:        logger,
		claimAttempts: cfg.Registry.ClaimAttempts,
		pageSize:      cfg.Registry.DefaultPageSize,
		now:           func() time.Time { return time.Now().UTC() },
		newCode:       uuid.NewString,
	}
}

// ────────────────────── LoadCodes ──────────────────────

func (s *codeService) LoadCodes(ctx context.Context, codes []string) (int, error) {
	for i, c := range codes {
		if err := s.repo.Code.Create(ctx, &model.Code{Code: c}); err != nil {
			s.logger.Error("导入兑换码失败",
				zap.String("code", c),
				zap.Int("loaded", i),
				zap.Int("total", len(codes)),
				zap.Error(err),
			)
			return i, storeError(err)
		}
	}

	s.logger.Info("兑换码导入完成", zap.Int("count", len(codes)))
	return len(codes), nil
}

// ────────────────────── ValidateCode ──────────────────────

func (s *codeService) ValidateCode(ctx context.Context, code string) error {
	if code == "" {
		return ErrInvalidRequest
	}

	record, err := s.repo.Code.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeNotFound
		}
		s.logger.Error("查询兑换码失败", zap.String("code", code), zap.Error(err))
		return storeError(err)
	}

	if record.Used {
		return &CodeUsedError{ConsumedAt: record.ConsumedAt()}
	}

	if err := s.repo.Code.MarkScanned(ctx, code, s.now()); err != nil {
		if errors.Is(err, pkgerrors.ErrCodeConflict) {
			// 并发请求抢先消费，重新读取以返回真实消费时间
			return s.usedError(ctx, code)
		}
		s.logger.Error("标记兑换码失败", zap.String("code", code), zap.Error(err))
		return storeError(err)
	}

	return nil
}

func (s *codeService) usedError(ctx context.Context, code string) error {
	record, err := s.repo.Code.GetByCode(ctx, code)
	if err != nil {
		s.logger.Warn("重新读取兑换码失败", zap.String("code", code), zap.Error(err))
		return &CodeUsedError{}
	}
	return &CodeUsedError{ConsumedAt: record.ConsumedAt()}
}

// ────────────────────── RegisterPerson ──────────────────────

func (s *codeService) RegisterPerson(ctx context.Context, name string) (*dto.RegisterPersonResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidRequest
	}

	now := s.now()
	code, err := s.assignCode(ctx, name, now)
	if err != nil {
		return nil, err
	}

	payload, err := marshalPayload(dto.TokenPayload{
		Name:             name,
		Code:             code,
		RegistrationDate: now.Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return nil, encodingError(err)
	}

	uri, err := s.encoder.Encode(payload)
	if err != nil {
		s.logger.Error("生成二维码失败", zap.String("code", code), zap.Int("payload_len", len(payload)), zap.Error(err))
		return nil, encodingError(err)
	}

	return &dto.RegisterPersonResponse{QR: uri}, nil
}

// assignCode 优先抢占已有的未使用兑换码，全部被抢走或不存在时新建一个
func (s *codeService) assignCode(ctx context.Context, name string, at time.Time) (string, error) {
	candidates, err := s.repo.Code.FindUnused(ctx, s.claimAttempts)
	if err != nil {
		s.logger.Error("查询未使用兑换码失败", zap.Error(err))
		return "", storeError(err)
	}

	for _, c := range candidates {
		err := s.repo.Code.Assign(ctx, c.Code, name, at)
		if err == nil {
			return c.Code, nil
		}
		if !errors.Is(err, pkgerrors.ErrCodeConflict) {
			s.logger.Error("分配兑换码失败", zap.String("code", c.Code), zap.Error(err))
			return "", storeError(err)
		}
		s.logger.Debug("兑换码已被并发请求分配", zap.String("code", c.Code))
	}

	record := &model.Code{
		Code:             s.newCode(),
		Name:             &name,
		Used:             true,
		RegistrationDate: &at,
	}
	if err := s.repo.Code.Create(ctx, record); err != nil {
		s.logger.Error("新建兑换码失败", zap.String("code", record.Code), zap.Error(err))
		return "", storeError(err)
	}

	s.logger.Info("无可用兑换码，已新建", zap.String("code", record.Code))
	return record.Code, nil
}

// marshalPayload 序列化负载，不转义 HTML 字符
func marshalPayload(p dto.TokenPayload) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// ────────────────────── List / Stats ──────────────────────

func (s *codeService) List(ctx context.Context, req *dto.CodeListRequest) (*dto.CodePage, error) {
	pageSize := req.GetPageSize(s.pageSize)
	codes, total, err := s.repo.Code.List(ctx,
		model.CodeFilter{Used: req.Used},
		req.GetOffset(s.pageSize),
		pageSize,
	)
	if err != nil {
		s.logger.Error("列出兑换码失败", zap.Error(err))
		return nil, storeError(err)
	}

	result := make([]dto.CodeResponse, 0, len(codes))
	for i := range codes {
		result = append(result, toCodeResponse(&codes[i]))
	}
	return &dto.CodePage{
		List:     result,
		Total:    total,
		Page:     req.GetPage(),
		PageSize: pageSize,
	}, nil
}

func (s *codeService) Stats(ctx context.Context) (*dto.CodeStatsResponse, error) {
	stats, err := s.repo.Code.Stats(ctx)
	if err != nil {
		s.logger.Error("统计兑换码失败", zap.Error(err))
		return nil, storeError(err)
	}
	return &dto.CodeStatsResponse{
		Total:      stats.Total,
		Used:       stats.Used,
		Unused:     stats.Unused,
		Scanned:    stats.Scanned,
		Registered: stats.Registered,
	}, nil
}

// ── 内部辅助方法 ──

func toCodeResponse(c *model.Code) dto.CodeResponse {
	resp := dto.CodeResponse{
		Code: c.Code,
		Name: c.Name,
		Used: c.Used,
	}
	if c.ScannedAt != nil {
		resp.ScannedAt = FormatTimestamp(*c.ScannedAt)
	}
	if c.RegistrationDate != nil {
		resp.RegistrationDate = FormatTimestamp(*c.RegistrationDate)
	}
	return resp
}
