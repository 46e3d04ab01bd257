package model

import "time"

// Code 兑换码表，对应 codes
type Code struct {
	Code             string     `gorm:"type:varchar(255);primaryKey" json:"code"`
	Name             *string    `gorm:"type:varchar(255)"            json:"name,omitempty"`
	Used             bool       `gorm:"not null;default:false"       json:"used"`
	ScannedAt        *time.Time `json:"scanned_at,omitempty"`
	RegistrationDate *time.Time `json:"registration_date,omitempty"`
}

// TableName 指定表名
func (Code) TableName() string { return "codes" }

// ConsumedAt 返回兑换码被消费的时间：优先扫码时间，其次登记时间
func (c *Code) ConsumedAt() *time.Time {
	if c.ScannedAt != nil {
		return c.ScannedAt
	}
	return c.RegistrationDate
}

// CodeFilter 兑换码列表筛选条件
type CodeFilter struct {
	Used *bool
}

// CodeStats 兑换码统计
type CodeStats struct {
	Total      int64
	Used       int64
	Unused     int64
	Scanned    int64
	Registered int64
}
