package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inventoryapp/inventoryapp/internal/common/logger"
	"github.com/inventoryapp/inventoryapp/internal/storage"
)

// VehicleStore 车辆表的存储端口；*Repo 是 MySQL 实现，测试用 mock。
type VehicleStore interface {
	List(ctx context.Context) ([]Vehicle, error)
	Insert(ctx context.Context, v *Vehicle) error
	FindByID(ctx context.Context, id string) (*Vehicle, error)
	Update(ctx context.Context, v *Vehicle) error
	Delete(ctx context.Context, id string) error
	AppendImageURL(ctx context.Context, id, url string) error
	RemoveImageURL(ctx context.Context, id, url string) error
}

// VehicleInput 新增/编辑车辆的字段集合（不含 id、image_urls、时间戳）。
type VehicleInput struct {
	VIN          string
	Make         string
	Model        string
	Year         int
	Color        string
	Mileage      *int
	SellingPrice *float64
	Status       Status
}

// Service 封装库存领域的远程数据访问：表存储 CRUD 和图片的
// 上传/删除编排。所有依赖显式注入，不持有包级单例。
type Service struct {
	store   VehicleStore
	objects storage.ObjectStore
	log     logger.Logger
}

func NewService(store VehicleStore, objects storage.ObjectStore, log logger.Logger) *Service {
	return &Service{store: store, objects: objects, log: log}
}

// FetchInventory 拉取车辆列表（created_at 倒序）。
// 失败时记录详细日志并返回空列表而不是错误——调用方分不出
// "没有数据"和"拉取失败"，这是沿用的上游行为。
func (s *Service) FetchInventory(ctx context.Context) []Vehicle {
	if s == nil || s.store == nil {
		return []Vehicle{}
	}
	vehicles, err := s.store.List(ctx)
	if err != nil {
		if s.log != nil {
			s.log.WithFields(map[string]interface{}{
				"op":    "fetch_inventory",
				"error": err.Error(),
			}).Error("failed to fetch inventory")
		}
		return []Vehicle{}
	}
	if vehicles == nil {
		vehicles = []Vehicle{}
	}
	return vehicles
}

// AddVehicle 校验必填字段后插入一行，返回落库后的记录
// （服务端分配的 id 和 created_at）。
func (s *Service) AddVehicle(ctx context.Context, in VehicleInput) (*Vehicle, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if err := validateInput(in); err != nil {
		return nil, opErr("add_vehicle", ReasonValidation, err)
	}

	st := in.Status
	if st == "" {
		st = StatusAvailable
	}
	if !st.Valid() {
		return nil, opErr("add_vehicle", ReasonValidation, fmt.Errorf("invalid status: %s", st))
	}

	v := &Vehicle{
		ID:           uuid.NewString(),
		VIN:          strings.TrimSpace(in.VIN),
		Make:         strings.TrimSpace(in.Make),
		Model:        strings.TrimSpace(in.Model),
		Year:         in.Year,
		Color:        strings.TrimSpace(in.Color),
		Mileage:      in.Mileage,
		SellingPrice: in.SellingPrice,
		Status:       st,
		ImageURLs:    ImageURLs{},
	}
	if err := s.store.Insert(ctx, v); err != nil {
		return nil, opErr("add_vehicle", ReasonStoreUnavailable, err)
	}
	return v, nil
}

// UpdateVehicle 按 id 整体更新字段（含当前 image_urls），返回更新后的记录。
func (s *Service) UpdateVehicle(ctx context.Context, id string, in VehicleInput, imageURLs ImageURLs) (*Vehicle, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, opErr("update_vehicle", ReasonValidation, fmt.Errorf("id required"))
	}
	if err := validateInput(in); err != nil {
		return nil, opErr("update_vehicle", ReasonValidation, err)
	}
	st := in.Status
	if st == "" {
		st = StatusAvailable
	}
	if !st.Valid() {
		return nil, opErr("update_vehicle", ReasonValidation, fmt.Errorf("invalid status: %s", st))
	}

	v, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("update_vehicle", err)
	}

	v.VIN = strings.TrimSpace(in.VIN)
	v.Make = strings.TrimSpace(in.Make)
	v.Model = strings.TrimSpace(in.Model)
	v.Year = in.Year
	v.Color = strings.TrimSpace(in.Color)
	v.Mileage = in.Mileage
	v.SellingPrice = in.SellingPrice
	v.Status = st
	v.ImageURLs = imageURLs

	if err := s.store.Update(ctx, v); err != nil {
		return nil, storeErr("update_vehicle", err)
	}
	return v, nil
}

// DeleteVehicle 按 id 硬删除。
func (s *Service) DeleteVehicle(ctx context.Context, id string) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("service not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return opErr("delete_vehicle", ReasonValidation, fmt.Errorf("id required"))
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return storeErr("delete_vehicle", err)
	}
	return nil
}

// UploadVehicleImage 上传一张车辆图片：
//  1. 以 vehicles/<id>/<随机后缀><原扩展名> 为 key 存入对象存储
//  2. 解析公开 URL
//  3. 把 URL 原子追加到该车辆的 image_urls
//
// 追加失败时已存入的对象会成为孤儿，记录其 key 供对账，不做补偿删除。
func (s *Service) UploadVehicleImage(ctx context.Context, vehicleID, filename string, r io.Reader, size int64, contentType string) (string, error) {
	if s == nil || s.store == nil || s.objects == nil {
		return "", fmt.Errorf("service not initialized")
	}
	vehicleID = strings.TrimSpace(vehicleID)
	if vehicleID == "" {
		return "", opErr("upload_vehicle_image", ReasonValidation, fmt.Errorf("vehicle id required"))
	}

	ext := strings.ToLower(path.Ext(filename))
	key := fmt.Sprintf("vehicles/%s/%s%s", vehicleID, uuid.NewString(), ext)

	if err := s.objects.Put(ctx, key, r, size, contentType); err != nil {
		return "", opErr("upload_vehicle_image", ReasonObjectStorage, err)
	}

	url, err := s.objects.PublicURL(key)
	if err != nil {
		s.logOrphan(key, vehicleID, err)
		return "", opErr("upload_vehicle_image", ReasonObjectStorage, err)
	}

	if err := s.store.AppendImageURL(ctx, vehicleID, url); err != nil {
		s.logOrphan(key, vehicleID, err)
		return "", storeErr("upload_vehicle_image", err)
	}
	return url, nil
}

// DeleteVehicleImage 删除一张车辆图片：
// 从 URL 的末段推导对象 key，先删对象，成功后再把 URL 从行里移除。
// 对象删除的结果会被检查并原样上报；对象已不存在时仍移除引用。
func (s *Service) DeleteVehicleImage(ctx context.Context, vehicleID, imageURL string) error {
	if s == nil || s.store == nil || s.objects == nil {
		return fmt.Errorf("service not initialized")
	}
	vehicleID = strings.TrimSpace(vehicleID)
	imageURL = strings.TrimSpace(imageURL)
	if vehicleID == "" || imageURL == "" {
		return opErr("delete_vehicle_image", ReasonValidation, fmt.Errorf("vehicle id and image url required"))
	}

	key := objectKeyForURL(vehicleID, imageURL)
	if err := s.objects.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return opErr("delete_vehicle_image", ReasonObjectStorage, err)
	}

	if err := s.store.RemoveImageURL(ctx, vehicleID, imageURL); err != nil {
		return storeErr("delete_vehicle_image", err)
	}
	return nil
}

func (s *Service) logOrphan(key, vehicleID string, cause error) {
	if s.log == nil {
		return
	}
	s.log.WithFields(map[string]interface{}{
		"object_key": key,
		"vehicle_id": vehicleID,
		"error":      cause.Error(),
	}).Warn("uploaded object is orphaned, needs reconciliation")
}

// objectKeyForURL 从公开 URL 的末段路径推导对象 key。
func objectKeyForURL(vehicleID, imageURL string) string {
	segment := imageURL
	if i := strings.LastIndex(imageURL, "/"); i >= 0 {
		segment = imageURL[i+1:]
	}
	return fmt.Sprintf("vehicles/%s/%s", vehicleID, segment)
}

func validateInput(in VehicleInput) error {
	var missing []string
	if strings.TrimSpace(in.VIN) == "" {
		missing = append(missing, "vin")
	}
	if strings.TrimSpace(in.Make) == "" {
		missing = append(missing, "make")
	}
	if strings.TrimSpace(in.Model) == "" {
		missing = append(missing, "model")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required fields missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// storeErr 把存储层错误映射为带原因码的 OpError。
func storeErr(op string, err error) *OpError {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return opErr(op, ReasonNotFound, err)
	}
	return opErr(op, ReasonStoreUnavailable, err)
}
