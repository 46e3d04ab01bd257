package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sernafernando/lcr-qr/internal/model"
	pkgerrors "github.com/sernafernando/lcr-qr/pkg/errors"
)

// CodeRepository 兑换码数据访问接口
type CodeRepository interface {
	Create(ctx context.Context, code *model.Code) error
	GetByCode(ctx context.Context, code string) (*model.Code, error)
	// MarkScanned 条件更新：仅当 used = false 时标记为已扫码，未命中返回 ErrCodeConflict
	MarkScanned(ctx context.Context, code string, at time.Time) error
	// FindUnused 返回至多 limit 个未使用的兑换码，不保证顺序
	FindUnused(ctx context.Context, limit int) ([]model.Code, error)
	// Assign 条件更新：仅当 used = false 时把兑换码分配给 name，未命中返回 ErrCodeConflict
	Assign(ctx context.Context, code, name string, at time.Time) error
	List(ctx context.Context, filter model.CodeFilter, offset, limit int) ([]model.Code, int64, error)
	Stats(ctx context.Context) (*model.CodeStats, error)
	// EachBatch 按主键分批遍历全部兑换码
	EachBatch(ctx context.Context, batchSize int, fn func(batch []model.Code) error) error
}

type codeRepo struct {
	db *gorm.DB
}

// NewCodeRepo 创建 CodeRepository 实例
func NewCodeRepo(db *gorm.DB) CodeRepository {
	return &codeRepo{db: db}
}

func (r *codeRepo) Create(ctx context.Context, code *model.Code) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *codeRepo) GetByCode(ctx context.Context, code string) (*model.Code, error) {
	var c model.Code
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *codeRepo) MarkScanned(ctx context.Context, code string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Code{}).
		Where("code = ? AND used = ?", code, false).
		Updates(map[string]interface{}{
			"used":       true,
			"scanned_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrCodeConflict
	}
	return nil
}

func (r *codeRepo) FindUnused(ctx context.Context, limit int) ([]model.Code, error) {
	var codes []model.Code
	err := r.db.WithContext(ctx).
		Where("used = ?", false).
		Limit(limit).
		Find(&codes).Error
	return codes, err
}

func (r *codeRepo) Assign(ctx context.Context, code, name string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Code{}).
		Where("code = ? AND used = ?", code, false).
		Updates(map[string]interface{}{
			"name":              name,
			"used":              true,
			"registration_date": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrCodeConflict
	}
	return nil
}

func (r *codeRepo) List(ctx context.Context, filter model.CodeFilter, offset, limit int) ([]model.Code, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Code{})
	if filter.Used != nil {
		query = query.Where("used = ?", *filter.Used)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var codes []model.Code
	err := query.
		Order("code ASC").
		Offset(offset).
		Limit(limit).
		Find(&codes).Error
	if err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

func (r *codeRepo) Stats(ctx context.Context) (*model.CodeStats, error) {
	var stats model.CodeStats
	err := r.db.WithContext(ctx).
		Model(&model.Code{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN used THEN 1 ELSE 0 END), 0) AS used,
			COALESCE(SUM(CASE WHEN scanned_at IS NOT NULL THEN 1 ELSE 0 END), 0) AS scanned,
			COALESCE(SUM(CASE WHEN registration_date IS NOT NULL THEN 1 ELSE 0 END), 0) AS registered`).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	stats.Unused = stats.Total - stats.Used
	return &stats, nil
}

func (r *codeRepo) EachBatch(ctx context.Context, batchSize int, fn func(batch []model.Code) error) error {
	var batch []model.Code
	return r.db.WithContext(ctx).
		FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
			return fn(batch)
		}).Error
}
