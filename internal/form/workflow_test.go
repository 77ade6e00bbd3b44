package form

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/inventoryapp/inventoryapp/internal/common/logger"
	"github.com/inventoryapp/inventoryapp/internal/inventory"
)

// mockGateway 计数 + 可注入错误/阻塞的网关桩。
type mockGateway struct {
	mu sync.Mutex

	addCalls         int
	updateCalls      int
	uploadCalls      int
	deleteImageCalls int

	addErr         error
	updateErr      error
	deleteImageErr error
	uploadErrFor   map[string]error // 按文件名注入上传失败

	addBlock chan struct{} // 非 nil 时 AddVehicle 阻塞等待
}

func newMockGateway() *mockGateway {
	return &mockGateway{uploadErrFor: make(map[string]error)}
}

func (g *mockGateway) AddVehicle(ctx context.Context, in inventory.VehicleInput) (*inventory.Vehicle, error) {
	g.mu.Lock()
	g.addCalls++
	block := g.addBlock
	g.mu.Unlock()

	if block != nil {
		<-block
	}
	if g.addErr != nil {
		return nil, g.addErr
	}
	return &inventory.Vehicle{
		ID:        "v-42",
		VIN:       in.VIN,
		Make:      in.Make,
		Model:     in.Model,
		Year:      in.Year,
		Status:    in.Status,
		ImageURLs: inventory.ImageURLs{},
	}, nil
}

func (g *mockGateway) UpdateVehicle(ctx context.Context, id string, in inventory.VehicleInput, imageURLs inventory.ImageURLs) (*inventory.Vehicle, error) {
	g.mu.Lock()
	g.updateCalls++
	g.mu.Unlock()

	if g.updateErr != nil {
		return nil, g.updateErr
	}
	return &inventory.Vehicle{
		ID:        id,
		VIN:       in.VIN,
		Make:      in.Make,
		Model:     in.Model,
		Year:      in.Year,
		Status:    in.Status,
		ImageURLs: append(inventory.ImageURLs{}, imageURLs...),
	}, nil
}

func (g *mockGateway) UploadVehicleImage(ctx context.Context, vehicleID, filename string, r io.Reader, size int64, contentType string) (string, error) {
	g.mu.Lock()
	g.uploadCalls++
	err := g.uploadErrFor[filename]
	g.mu.Unlock()

	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://cdn.test/uploads/vehicles/%s/%s", vehicleID, filename), nil
}

func (g *mockGateway) DeleteVehicleImage(ctx context.Context, vehicleID, imageURL string) error {
	g.mu.Lock()
	g.deleteImageCalls++
	g.mu.Unlock()
	return g.deleteImageErr
}

func (g *mockGateway) calls() (add, update, upload, deleteImage int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addCalls, g.updateCalls, g.uploadCalls, g.deleteImageCalls
}

func validAddDraft() *Draft {
	d := NewAddDraft()
	d.VIN = "1HGCM82633A004352"
	d.Make = "Honda"
	d.Model = "Accord"
	d.Year = "2019"
	return d
}

func TestSubmitAddEmptyVINNeverCallsGateway(t *testing.T) {
	g := newMockGateway()
	w := NewWorkflow(g, logger.Nop())

	d := validAddDraft()
	d.VIN = ""

	if _, err := w.SubmitAdd(context.Background(), d); err == nil {
		t.Fatalf("expected validation error")
	}
	if add, _, upload, _ := g.calls(); add != 0 || upload != 0 {
		t.Fatalf("validation failure must not issue network calls: add=%d upload=%d", add, upload)
	}
}

func TestSubmitAddParsesNumericFields(t *testing.T) {
	g := newMockGateway()
	w := NewWorkflow(g, logger.Nop())

	d := validAddDraft()
	d.Mileage = "42000"
	d.SellingPrice = "19999.50"

	res, err := w.SubmitAdd(context.Background(), d)
	if err != nil {
		t.Fatalf("SubmitAdd: %v", err)
	}
	if res.Vehicle.Year != 2019 {
		t.Fatalf("year not parsed: %d", res.Vehicle.Year)
	}
	if w.State() != StateIdle {
		t.Fatalf("expected idle after success, got %s", w.State())
	}
}

func TestSubmitAddRejectsBadNumeric(t *testing.T) {
	g := newMockGateway()
	w := NewWorkflow(g, logger.Nop())

	d := validAddDraft()
	d.Year = "not-a-year"

	if _, err := w.SubmitAdd(context.Background(), d); err == nil {
		t.Fatalf("expected parse error")
	}
	if add, _, _, _ := g.calls(); add != 0 {
		t.Fatalf("parse failure must not reach gateway")
	}
}

func TestSubmitAddMergesUploadedURLs(t *testing.T) {
	g := newMockGateway()
	w := NewWorkflow(g, logger.Nop())

	d := validAddDraft()
	d.AttachFile(LocalFile{Name: "a.jpg", Data: []byte("a")})
	d.AttachFile(LocalFile{Name: "b.jpg", Data: []byte("b")})

	res, err := w.SubmitAdd(context.Background(), d)
	if err != nil {
		t.Fatalf("SubmitAdd: %v", err)
	}
	if len(res.Vehicle.ImageURLs) != 2 {
		t.Fatalf("expected 2 uploaded urls merged into result, got %#v", res.Vehicle.ImageURLs)
	}
	if len(d.PendingFiles) != 0 {
		t.Fatalf("expected pending files cleared")
	}
}

func TestSubmitAddPartialUploadFailureKeepsRow(t *testing.T) {
	g := newMockGateway()
	g.uploadErrFor["bad.jpg"] = fmt.Errorf("storage down")
	w := NewWorkflow(g, logger.Nop())

	d := validAddDraft()
	d.AttachFile(LocalFile{Name: "ok.jpg", Data: []byte("x")})
	d.AttachFile(LocalFile{Name: "bad.jpg", Data: []byte("y")})

	res, err := w.SubmitAdd(context.Background(), d)
	if err != nil {
		t.Fatalf("SubmitAdd: %v", err)
	}
	if len(res.Vehicle.ImageURLs) != 1 {
		t.Fatalf("expected the successful url kept, got %#v", res.Vehicle.ImageURLs)
	}
	if len(res.FailedUploads) != 1 || res.FailedUploads[0] != "bad.jpg" {
		t.Fatalf("expected bad.jpg reported failed, got %#v", res.FailedUploads)
	}
	// 行不回滚。
	if add, _, _, del := g.calls(); add != 1 || del != 0 {
		t.Fatalf("expected row kept without compensation: add=%d delete=%d", add, del)
	}
}

func TestDoubleSubmitRejected(t *testing.T) {
	g := newMockGateway()
	g.addBlock = make(chan struct{})
	w := NewWorkflow(g, logger.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = w.SubmitAdd(context.Background(), validAddDraft())
	}()

	// 等第一次提交进入 submitting。
	deadline := time.After(2 * time.Second)
	for w.State() != StateSubmitting {
		select {
		case <-deadline:
			t.Fatalf("first submit never started")
		case <-time.After(time.Millisecond):
		}
	}

	if _, err := w.SubmitAdd(context.Background(), validAddDraft()); err != ErrSubmitInFlight {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}

	close(g.addBlock)
	<-done

	if add, _, _, _ := g.calls(); add != 1 {
		t.Fatalf("expected exactly one add call, got %d", add)
	}
	if w.State() != StateIdle {
		t.Fatalf("expected idle after first submit finished, got %s", w.State())
	}
}

func TestSubmitEditMergesPreviousAndNewURLs(t *testing.T) {
	g := newMockGateway()
	w := NewWorkflow(g, logger.Nop())

	v := &inventory.Vehicle{
		ID:        "v-7",
		VIN:       "VIN7",
		Make:      "Toyota",
		Model:     "Corolla",
		Year:      2020,
		Status:    inventory.StatusAvailable,
		ImageURLs: inventory.ImageURLs{"a", "b"},
	}
	d := NewEditDraft(v)
	d.AttachFile(LocalFile{Name: "c.jpg", Data: []byte("c")})

	res, err := w.SubmitEdit(context.Background(), d)
	if err != nil {
		t.Fatalf("SubmitEdit: %v", err)
	}

	want := inventory.ImageURLs{"a", "b", "http://cdn.test/uploads/vehicles/v-7/c.jpg"}
	if len(res.Vehicle.ImageURLs) != 3 {
		t.Fatalf("expected 3 urls, got %#v", res.Vehicle.ImageURLs)
	}
	for i, u := range want {
		if res.Vehicle.ImageURLs[i] != u {
			t.Fatalf("url %d mismatch: got %s want %s", i, res.Vehicle.ImageURLs[i], u)
		}
	}
	// 草稿同步到合并后的列表。
	if len(d.ImageURLs) != 3 {
		t.Fatalf("expected draft image urls updated, got %#v", d.ImageURLs)
	}
}

func TestSubmitEditFailureSurfacesError(t *testing.T) {
	g := newMockGateway()
	g.updateErr = fmt.Errorf("store down")
	w := NewWorkflow(g, logger.Nop())

	d := NewEditDraft(&inventory.Vehicle{ID: "v-7", VIN: "V", Make: "M", Model: "X"})
	if _, err := w.SubmitEdit(context.Background(), d); err == nil {
		t.Fatalf("expected error")
	}
	if w.State() != StateError {
		t.Fatalf("expected error state, got %s", w.State())
	}

	// error 状态允许重新提交。
	g.updateErr = nil
	if _, err := w.SubmitEdit(context.Background(), d); err != nil {
		t.Fatalf("resubmit after error: %v", err)
	}
}

func TestRemoveImageOnlyOnReportedSuccess(t *testing.T) {
	g := newMockGateway()
	w := NewWorkflow(g, logger.Nop())

	d := NewEditDraft(&inventory.Vehicle{ID: "v-7", ImageURLs: inventory.ImageURLs{"u1", "u2"}})

	// 失败：URL 保留。
	g.deleteImageErr = fmt.Errorf("storage down")
	if err := w.RemoveImage(context.Background(), d, "u1"); err == nil {
		t.Fatalf("expected error")
	}
	if !d.ImageURLs.Contains("u1") {
		t.Fatalf("url must remain after failed delete")
	}

	// 成功：URL 移除。
	g.deleteImageErr = nil
	if err := w.RemoveImage(context.Background(), d, "u1"); err != nil {
		t.Fatalf("RemoveImage: %v", err)
	}
	if d.ImageURLs.Contains("u1") {
		t.Fatalf("url must be removed after successful delete")
	}
	if len(d.ImageURLs) != 1 || d.ImageURLs[0] != "u2" {
		t.Fatalf("unexpected remaining urls: %#v", d.ImageURLs)
	}
}

func TestRemovePendingFileIsLocalOnly(t *testing.T) {
	g := newMockGateway()

	d := NewAddDraft()
	d.AttachFile(LocalFile{Name: "a.jpg"})
	d.AttachFile(LocalFile{Name: "b.jpg"})

	d.RemovePendingFile(0)
	if len(d.PendingFiles) != 1 || d.PendingFiles[0].Name != "b.jpg" {
		t.Fatalf("unexpected pending files: %#v", d.PendingFiles)
	}
	if _, _, _, del := g.calls(); del != 0 {
		t.Fatalf("removing a pending file must not call the gateway")
	}
}
