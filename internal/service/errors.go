package service

import (
	"errors"
	"time"
)

// ── 兑换码模块业务错误 ──

var (
	ErrInvalidRequest  = errors.New("solicitud inválida")
	ErrCodeNotFound    = errors.New("código no encontrado")
	ErrCodeAlreadyUsed = errors.New("código ya usado")
	ErrStore           = errors.New("error de almacenamiento")
	ErrEncoding        = errors.New("error al generar el código QR")
)

// CodeUsedError 兑换码已被消费，携带首次消费时间
type CodeUsedError struct {
	ConsumedAt *time.Time
}

func (e *CodeUsedError) Error() string {
	if e.ConsumedAt == nil {
		return ErrCodeAlreadyUsed.Error()
	}
	return ErrCodeAlreadyUsed.Error() + " el " + FormatTimestamp(*e.ConsumedAt)
}

// Is 使 errors.Is(err, ErrCodeAlreadyUsed) 成立
func (e *CodeUsedError) Is(target error) bool { return target == ErrCodeAlreadyUsed }

// kindError 将底层错误归类为某个业务错误，Error() 保留底层原始信息
type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string   { return e.err.Error() }
func (e *kindError) Unwrap() []error { return []error{e.kind, e.err} }

func storeError(err error) error    { return &kindError{kind: ErrStore, err: err} }
func encodingError(err error) error { return &kindError{kind: ErrEncoding, err: err} }

// timestampLayout 对外展示的时间格式（UTC）
const timestampLayout = "2006-01-02 15:04:05"

// FormatTimestamp 按 UTC 格式化时间
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
