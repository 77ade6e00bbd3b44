package view

import (
	"context"
	"fmt"
	"sync"

	"github.com/inventoryapp/inventoryapp/internal/common/logger"
	"github.com/inventoryapp/inventoryapp/internal/inventory"
)

// Gateway 列表视图依赖的远程网关端口（inventory.Service 实现）。
type Gateway interface {
	FetchInventory(ctx context.Context) []inventory.Vehicle
	DeleteVehicle(ctx context.Context, id string) error
}

// Stats 列表的聚合统计。
type Stats struct {
	Total          int     `json:"total"`
	AvailableCount int     `json:"available_count"`
	TotalValue     float64 `json:"total_value"`
}

// View 车辆列表的内存态。
// 列表是存储端行的缓存：增删改成功后按 id 原地替换/插入/移除，
// 从不靠整表重新拉取来同步。
type View struct {
	gateway Gateway
	log     logger.Logger

	mu   sync.RWMutex
	list []inventory.Vehicle
}

func NewView(gateway Gateway, log logger.Logger) *View {
	return &View{gateway: gateway, log: log}
}

// Refresh 初始加载：整表拉取并替换内存列表。
// 拉取失败时网关返回空列表，这里照常接受。
func (v *View) Refresh(ctx context.Context) {
	if v == nil || v.gateway == nil {
		return
	}
	list := v.gateway.FetchInventory(ctx)

	v.mu.Lock()
	v.list = list
	v.mu.Unlock()
}

// Vehicles 当前列表的拷贝。
func (v *View) Vehicles() []inventory.Vehicle {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]inventory.Vehicle, len(v.list))
	copy(out, v.list)
	return out
}

// Total 列表总数。
func (v *View) Total() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.list)
}

// AvailableCount 状态为 available 的行数。
func (v *View) AvailableCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	n := 0
	for i := range v.list {
		if v.list[i].Status == inventory.StatusAvailable {
			n++
		}
	}
	return n
}

// TotalValue 售价合计，缺失的售价按 0 计。
func (v *View) TotalValue() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var sum float64
	for i := range v.list {
		if v.list[i].SellingPrice != nil {
			sum += *v.list[i].SellingPrice
		}
	}
	return sum
}

// Snapshot 一次锁内算齐三个统计值。
func (v *View) Snapshot() Stats {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s := Stats{Total: len(v.list)}
	for i := range v.list {
		if v.list[i].Status == inventory.StatusAvailable {
			s.AvailableCount++
		}
		if v.list[i].SellingPrice != nil {
			s.TotalValue += *v.list[i].SellingPrice
		}
	}
	return s
}

// VehicleAdded 新插入的记录放到列表头部（列表按 created_at 倒序）。
func (v *View) VehicleAdded(vehicle *inventory.Vehicle) {
	if vehicle == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.list = append([]inventory.Vehicle{*vehicle}, v.list...)
}

// VehicleUpdated 按 id 原地替换；id 不在列表里时忽略。
func (v *View) VehicleUpdated(vehicle *inventory.Vehicle) {
	if vehicle == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.list {
		if v.list[i].ID == vehicle.ID {
			v.list[i] = *vehicle
			return
		}
	}
}

// ImageURLAdded 图片上传成功后把 URL 追加到缓存行；id 不在列表里时忽略。
func (v *View) ImageURLAdded(id, url string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.list {
		if v.list[i].ID != id {
			continue
		}
		if !v.list[i].ImageURLs.Contains(url) {
			v.list[i].ImageURLs = append(v.list[i].ImageURLs, url)
		}
		return
	}
}

// ImageURLRemoved 图片删除成功后按值把 URL 从缓存行移除。
func (v *View) ImageURLRemoved(id, url string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.list {
		if v.list[i].ID != id {
			continue
		}
		urls := make(inventory.ImageURLs, 0, len(v.list[i].ImageURLs))
		for _, u := range v.list[i].ImageURLs {
			if u != url {
				urls = append(urls, u)
			}
		}
		v.list[i].ImageURLs = urls
		return
	}
}

// Delete 删除一行：先过确认回调，确认后才请求远端；
// 只有远端报告成功才把该行从内存列表移除，失败时列表原样保留。
func (v *View) Delete(ctx context.Context, id string, confirm func() bool) error {
	if v == nil || v.gateway == nil {
		return fmt.Errorf("view not initialized")
	}
	if confirm != nil && !confirm() {
		return nil
	}

	if err := v.gateway.DeleteVehicle(ctx, id); err != nil {
		if v.log != nil {
			v.log.WithFields(map[string]interface{}{
				"vehicle_id": id,
				"error":      err.Error(),
			}).Error("failed to delete vehicle")
		}
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.list {
		if v.list[i].ID == id {
			v.list = append(v.list[:i], v.list[i+1:]...)
			return nil
		}
	}
	return nil
}
