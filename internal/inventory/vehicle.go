package inventory

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Status 车辆状态枚举（持久化为字符串）。
type Status string

const (
	StatusAvailable Status = "available" // 在售
	StatusSold      Status = "sold"      // 已售出
	StatusReserved  Status = "reserved"  // 已预订
)

// Valid 判断是否为合法状态值。
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusSold, StatusReserved:
		return true
	}
	return false
}

// ImageURLs 车辆图片 URL 的有序列表，按 JSON 存进一个列。
// 只允许追加（新上传）和按值精确删除，不做重排。
type ImageURLs []string

// Value 实现 driver.Valuer。
func (u ImageURLs) Value() (driver.Value, error) {
	if len(u) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image_urls: %w", err)
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner。
func (u *ImageURLs) Scan(src interface{}) error {
	if src == nil {
		*u = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ImageURLs", src)
	}
	if len(data) == 0 {
		*u = nil
		return nil
	}
	return json.Unmarshal(data, u)
}

// Contains 是否已包含指定 URL。
func (u ImageURLs) Contains(url string) bool {
	for _, s := range u {
		if s == url {
			return true
		}
	}
	return false
}

// Vehicle 是 vehicles 表的 GORM 模型。
// id 由服务端生成后不可变；created_at 用于默认的倒序排序。
type Vehicle struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	VIN          string    `gorm:"size:64;not null" json:"vin"`
	Make         string    `gorm:"size:64;not null" json:"make"`
	Model        string    `gorm:"size:64;not null" json:"model"`
	Year         int       `gorm:"not null" json:"year"`
	Color        string    `gorm:"size:32" json:"color"`
	Mileage      *int      `json:"mileage"`
	SellingPrice *float64  `gorm:"type:decimal(12,2)" json:"selling_price"`
	Status       Status    `gorm:"type:varchar(16);index;not null" json:"status"`
	ImageURLs    ImageURLs `gorm:"type:json" json:"image_urls"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
