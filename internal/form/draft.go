package form

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inventoryapp/inventoryapp/internal/inventory"
)

// LocalFile 选择了但还没上传的本地图片。
type LocalFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Draft 表单里的在编辑状态，区别于已持久化的记录。
// 数值字段保持文本形式，提交时才解析。
type Draft struct {
	VehicleID string // 编辑目标的 id；新增时为空

	VIN          string
	Make         string
	Model        string
	Year         string
	Color        string
	Mileage      string
	SellingPrice string
	Status       inventory.Status

	ImageURLs    inventory.ImageURLs // 已持久化的图片 URL（编辑时从记录拷入）
	PendingFiles []LocalFile         // 本地待上传文件
}

// NewAddDraft 新增表单的空草稿，状态默认 available。
func NewAddDraft() *Draft {
	return &Draft{Status: inventory.StatusAvailable}
}

// NewEditDraft 用已有记录播种编辑草稿，数值字段转成文本。
func NewEditDraft(v *inventory.Vehicle) *Draft {
	d := &Draft{
		VehicleID: v.ID,
		VIN:       v.VIN,
		Make:      v.Make,
		Model:     v.Model,
		Color:     v.Color,
		Status:    v.Status,
	}
	if v.Year != 0 {
		d.Year = strconv.Itoa(v.Year)
	}
	if v.Mileage != nil {
		d.Mileage = strconv.Itoa(*v.Mileage)
	}
	if v.SellingPrice != nil {
		d.SellingPrice = strconv.FormatFloat(*v.SellingPrice, 'f', -1, 64)
	}
	if d.Status == "" {
		d.Status = inventory.StatusAvailable
	}
	d.ImageURLs = append(inventory.ImageURLs{}, v.ImageURLs...)
	return d
}

// Validate 本地同步校验：vin/make/model 必填。
// 失败时不发起任何远程调用。
func (d *Draft) Validate() error {
	var missing []string
	if strings.TrimSpace(d.VIN) == "" {
		missing = append(missing, "vin")
	}
	if strings.TrimSpace(d.Make) == "" {
		missing = append(missing, "make")
	}
	if strings.TrimSpace(d.Model) == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return fmt.Errorf("please fill in required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// input 解析数值字段并组装网关入参。
func (d *Draft) input() (inventory.VehicleInput, error) {
	in := inventory.VehicleInput{
		VIN:    strings.TrimSpace(d.VIN),
		Make:   strings.TrimSpace(d.Make),
		Model:  strings.TrimSpace(d.Model),
		Color:  strings.TrimSpace(d.Color),
		Status: d.Status,
	}

	if s := strings.TrimSpace(d.Year); s != "" {
		year, err := strconv.Atoi(s)
		if err != nil {
			return in, fmt.Errorf("invalid year: %q", s)
		}
		in.Year = year
	}
	if s := strings.TrimSpace(d.Mileage); s != "" {
		mileage, err := strconv.Atoi(s)
		if err != nil {
			return in, fmt.Errorf("invalid mileage: %q", s)
		}
		in.Mileage = &mileage
	}
	if s := strings.TrimSpace(d.SellingPrice); s != "" {
		price, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return in, fmt.Errorf("invalid selling price: %q", s)
		}
		in.SellingPrice = &price
	}
	return in, nil
}

// AttachFile 往草稿里加一个本地待上传文件。
func (d *Draft) AttachFile(f LocalFile) {
	d.PendingFiles = append(d.PendingFiles, f)
}

// RemovePendingFile 移除一个本地待上传文件；纯本地操作，无网络调用。
func (d *Draft) RemovePendingFile(i int) {
	if i < 0 || i >= len(d.PendingFiles) {
		return
	}
	d.PendingFiles = append(d.PendingFiles[:i], d.PendingFiles[i+1:]...)
}
