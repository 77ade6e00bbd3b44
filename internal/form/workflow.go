package form

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/inventoryapp/inventoryapp/internal/common/logger"
	"github.com/inventoryapp/inventoryapp/internal/inventory"
)

// State 表单提交状态。
type State string

const (
	StateIdle       State = "idle"       // 空闲，可提交
	StateSubmitting State = "submitting" // 提交进行中
	StateError      State = "error"      // 上次提交失败，可重新提交
)

// allowTransition 定义提交状态机的允许流转关系。
var allowTransition = map[State][]State{
	StateIdle:       {StateSubmitting},
	StateSubmitting: {StateIdle, StateError},
	StateError:      {StateSubmitting},
}

func canTransition(from, to State) bool {
	for _, s := range allowTransition[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ErrSubmitInFlight 上一次提交还在进行中，拒绝重入。
var ErrSubmitInFlight = errors.New("a submit is already in flight")

// Gateway 表单工作流依赖的远程网关端口（inventory.Service 实现）。
type Gateway interface {
	AddVehicle(ctx context.Context, in inventory.VehicleInput) (*inventory.Vehicle, error)
	UpdateVehicle(ctx context.Context, id string, in inventory.VehicleInput, imageURLs inventory.ImageURLs) (*inventory.Vehicle, error)
	UploadVehicleImage(ctx context.Context, vehicleID, filename string, r io.Reader, size int64, contentType string) (string, error)
	DeleteVehicleImage(ctx context.Context, vehicleID, imageURL string) error
}

// SubmitResult 一次提交的结果。
// Vehicle 是通知调用方的记录，图片 URL 已把本次上传成功的合并进去；
// FailedUploads 是上传失败的文件名（行不回滚，部分成功保留）。
type SubmitResult struct {
	Vehicle       *inventory.Vehicle
	FailedUploads []string
}

// Workflow 新增/编辑车辆的表单工作流。
// 显式状态机拒绝重入提交（替代原型里无防护的双击重复提交）。
type Workflow struct {
	gateway Gateway
	log     logger.Logger

	mu    sync.Mutex
	state State
}

func NewWorkflow(gateway Gateway, log logger.Logger) *Workflow {
	return &Workflow{gateway: gateway, log: log, state: StateIdle}
}

// State 当前状态。
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Workflow) begin() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !canTransition(w.state, StateSubmitting) {
		return ErrSubmitInFlight
	}
	w.state = StateSubmitting
	return nil
}

func (w *Workflow) finish(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.state = StateError
		return
	}
	w.state = StateIdle
}

// SubmitAdd 新增提交：
// 校验 → 解析数值 → 插入记录 → 并发上传本地图片 →
// 把上传成功的 URL 合并进通知调用方的记录。
func (w *Workflow) SubmitAdd(ctx context.Context, d *Draft) (result *SubmitResult, err error) {
	if w == nil || w.gateway == nil {
		return nil, fmt.Errorf("workflow not initialized")
	}
	if err := w.begin(); err != nil {
		return nil, err
	}
	defer func() { w.finish(err) }()

	if err = d.Validate(); err != nil {
		return nil, err
	}
	in, perr := d.input()
	if perr != nil {
		err = perr
		return nil, err
	}

	inserted, aerr := w.gateway.AddVehicle(ctx, in)
	if aerr != nil {
		err = aerr
		return nil, err
	}

	uploaded, failed := w.uploadAll(ctx, inserted.ID, d.PendingFiles)
	inserted.ImageURLs = append(inserted.ImageURLs, uploaded...)
	d.PendingFiles = nil

	return &SubmitResult{Vehicle: inserted, FailedUploads: failed}, nil
}

// SubmitEdit 编辑提交：
// 校验 → 按 id 整体更新（带当前 image_urls）→ 并发上传新附的本地图片 →
// 结果 = 更新响应的基础字段 + previousImageURLs ++ newlyUploadedURLs。
func (w *Workflow) SubmitEdit(ctx context.Context, d *Draft) (result *SubmitResult, err error) {
	if w == nil || w.gateway == nil {
		return nil, fmt.Errorf("workflow not initialized")
	}
	if d.VehicleID == "" {
		return nil, fmt.Errorf("edit draft has no vehicle id")
	}
	if err := w.begin(); err != nil {
		return nil, err
	}
	defer func() { w.finish(err) }()

	if err = d.Validate(); err != nil {
		return nil, err
	}
	in, perr := d.input()
	if perr != nil {
		err = perr
		return nil, err
	}

	previous := append(inventory.ImageURLs{}, d.ImageURLs...)
	updated, uerr := w.gateway.UpdateVehicle(ctx, d.VehicleID, in, previous)
	if uerr != nil {
		err = uerr
		return nil, err
	}

	uploaded, failed := w.uploadAll(ctx, d.VehicleID, d.PendingFiles)
	merged := append(previous, uploaded...)
	updated.ImageURLs = merged
	d.ImageURLs = merged
	d.PendingFiles = nil

	return &SubmitResult{Vehicle: updated, FailedUploads: failed}, nil
}

// uploadAll 把所有待上传文件作为独立请求并发发出，全部等完再继续。
// 单个失败不影响其余：成功的 URL 按完成顺序收集，失败的只记文件名。
func (w *Workflow) uploadAll(ctx context.Context, vehicleID string, files []LocalFile) (uploaded []string, failed []string) {
	if len(files) == 0 {
		return nil, nil
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, f := range files {
		f := f
		wg.Add(1)
		go func() {
			defer wg.Done()
			url, err := w.gateway.UploadVehicleImage(ctx, vehicleID, f.Name, bytes.NewReader(f.Data), int64(len(f.Data)), f.ContentType)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, f.Name)
				if w.log != nil {
					w.log.WithFields(map[string]interface{}{
						"vehicle_id": vehicleID,
						"file":       f.Name,
						"error":      err.Error(),
					}).Warn("image upload failed")
				}
				return
			}
			uploaded = append(uploaded, url)
		}()
	}
	wg.Wait()
	return uploaded, failed
}

// RemoveImage 编辑中立即删除一张已持久化的图片（不等提交）：
// 只有网关明确报告成功，URL 才会从草稿里移除。
func (w *Workflow) RemoveImage(ctx context.Context, d *Draft, url string) error {
	if w == nil || w.gateway == nil {
		return fmt.Errorf("workflow not initialized")
	}
	if d.VehicleID == "" {
		return fmt.Errorf("edit draft has no vehicle id")
	}
	if !d.ImageURLs.Contains(url) {
		return fmt.Errorf("image url not in draft: %s", url)
	}

	if err := w.gateway.DeleteVehicleImage(ctx, d.VehicleID, url); err != nil {
		return err
	}

	urls := make(inventory.ImageURLs, 0, len(d.ImageURLs))
	for _, u := range d.ImageURLs {
		if u != url {
			urls = append(urls, u)
		}
	}
	d.ImageURLs = urls
	return nil
}
