package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/sernafernando/lcr-qr/internal/model"
	"github.com/sernafernando/lcr-qr/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("error al generar el archivo Excel")
)

// exportBatchSize 导出时每批读取的兑换码数量
const exportBatchSize = 500

// ExportService 导出业务接口
//
// 设计说明：
//   - 全量兑换码导出为 Excel (.xlsx)，单 Sheet
//   - 按主键分批读取，使用 StreamWriter 逐行写入，避免一次性载入全部记录
type ExportService interface {
	// ExportCodes 导出全部兑换码，返回文件内容与建议文件名
	ExportCodes(ctx context.Context) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

const exportSheetName = "Códigos"

var exportHeader = []interface{}{"Código", "Nombre", "Usado", "Escaneado", "Registrado"}

func (s *exportService) ExportCodes(ctx context.Context) (*bytes.Buffer, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheetName); err != nil {
		return nil, "", s.generateFail(err)
	}
	sw, err := f.NewStreamWriter(exportSheetName)
	if err != nil {
		return nil, "", s.generateFail(err)
	}
	// StreamWriter 要求列宽在写入第一行之前设置
	_ = sw.SetColWidth(1, 1, 40)
	_ = sw.SetColWidth(2, 2, 30)
	_ = sw.SetColWidth(3, 3, 8)
	_ = sw.SetColWidth(4, 5, 22)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	header := make([]interface{}, len(exportHeader))
	for i, v := range exportHeader {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: v}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, "", s.generateFail(err)
	}

	row := 2
	var writeErr error
	err = s.repo.Code.EachBatch(ctx, exportBatchSize, func(batch []model.Code) error {
		for i := range batch {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if writeErr = sw.SetRow(cell, exportRow(&batch[i])); writeErr != nil {
				return writeErr
			}
			row++
		}
		return nil
	})
	if writeErr != nil {
		return nil, "", s.generateFail(writeErr)
	}
	if err != nil {
		s.logger.Error("读取兑换码失败", zap.Error(err))
		return nil, "", storeError(err)
	}

	if err := sw.Flush(); err != nil {
		return nil, "", s.generateFail(err)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, "", s.generateFail(err)
	}

	filename := fmt.Sprintf("codigos_%s.xlsx", s.now().Format("20060102_150405"))
	s.logger.Info("兑换码导出完成", zap.Int("rows", row-2), zap.String("filename", filename))
	return buf, filename, nil
}

func (s *exportService) generateFail(err error) error {
	s.logger.Error("生成 Excel 文件失败", zap.Error(err))
	return fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
}

// exportRow 单条兑换码对应的一行
func exportRow(c *model.Code) []interface{} {
	name := ""
	if c.Name != nil {
		name = *c.Name
	}
	used := "No"
	if c.Used {
		used = "Sí"
	}
	return []interface{}{c.Code, name, used, formatOptional(c.ScannedAt), formatOptional(c.RegistrationDate)}
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatTimestamp(*t)
}
