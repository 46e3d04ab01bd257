package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/sernafernando/lcr-qr/internal/model"
	pkgerrors "github.com/sernafernando/lcr-qr/pkg/errors"
)

// ── Mock CodeRepository ──

type mockCodeRepo struct {
	codes map[string]*model.Code

	createErr     error
	getErr        error
	findUnusedErr error
	markErr       error
	assignErr     error
	beforeMark    func(code string) // 在条件更新前模拟并发请求
	beforeAssign  func(code string)
}

func newMockCodeRepo() *mockCodeRepo {
	return &mockCodeRepo{codes: make(map[string]*model.Code)}
}

var errDuplicateKey = errors.New("UNIQUE constraint failed: codes.code")

func (m *mockCodeRepo) Create(_ context.Context, code *model.Code) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.codes[code.Code]; ok {
		return errDuplicateKey
	}
	cp := *code
	m.codes[code.Code] = &cp
	return nil
}

func (m *mockCodeRepo) GetByCode(_ context.Context, code string) (*model.Code, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if c, ok := m.codes[code]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCodeRepo) MarkScanned(_ context.Context, code string, at time.Time) error {
	if m.beforeMark != nil {
		m.beforeMark(code)
	}
	if m.markErr != nil {
		return m.markErr
	}
	c, ok := m.codes[code]
	if !ok || c.Used {
		return pkgerrors.ErrCodeConflict
	}
	c.Used = true
	c.ScannedAt = &at
	return nil
}

func (m *mockCodeRepo) FindUnused(_ context.Context, limit int) ([]model.Code, error) {
	if m.findUnusedErr != nil {
		return nil, m.findUnusedErr
	}
	var result []model.Code
	for _, k := range m.sortedKeys() {
		if len(result) >= limit {
			break
		}
		if c := m.codes[k]; !c.Used {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockCodeRepo) Assign(_ context.Context, code, name string, at time.Time) error {
	if m.beforeAssign != nil {
		m.beforeAssign(code)
	}
	if m.assignErr != nil {
		return m.assignErr
	}
	c, ok := m.codes[code]
	if !ok || c.Used {
		return pkgerrors.ErrCodeConflict
	}
	c.Name = &name
	c.Used = true
	c.RegistrationDate = &at
	return nil
}

func (m *mockCodeRepo) List(_ context.Context, filter model.CodeFilter, offset, limit int) ([]model.Code, int64, error) {
	var matched []model.Code
	for _, k := range m.sortedKeys() {
		c := m.codes[k]
		if filter.Used != nil && c.Used != *filter.Used {
			continue
		}
		matched = append(matched, *c)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *mockCodeRepo) Stats(_ context.Context) (*model.CodeStats, error) {
	var s model.CodeStats
	for _, c := range m.codes {
		s.Total++
		if c.Used {
			s.Used++
		}
		if c.ScannedAt != nil {
			s.Scanned++
		}
		if c.RegistrationDate != nil {
			s.Registered++
		}
	}
	s.Unused = s.Total - s.Used
	return &s, nil
}

func (m *mockCodeRepo) EachBatch(_ context.Context, batchSize int, fn func(batch []model.Code) error) error {
	keys := m.sortedKeys()
	for start := 0; start < len(keys); start += batchSize {
		end := start + batchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := make([]model.Code, 0, end-start)
		for _, k := range keys[start:end] {
			batch = append(batch, *m.codes[k])
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockCodeRepo) sortedKeys() []string {
	keys := make([]string, 0, len(m.codes))
	for k := range m.codes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *mockCodeRepo) countUnused() int {
	n := 0
	for _, c := range m.codes {
		if !c.Used {
			n++
		}
	}
	return n
}

// ── Mock TokenEncoder ──

type mockEncoder struct {
	payloads []string
	err      error
}

func (m *mockEncoder) Encode(payload string) (string, error) {
	m.payloads = append(m.payloads, payload)
	if m.err != nil {
		return "", m.err
	}
	return "data:image/png;base64,ZmFrZQ==", nil
}
