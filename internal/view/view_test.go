package view

import (
	"context"
	"fmt"
	"testing"

	"github.com/inventoryapp/inventoryapp/internal/common/logger"
	"github.com/inventoryapp/inventoryapp/internal/inventory"
)

type mockGateway struct {
	list []inventory.Vehicle

	fetchCalls  int
	deleteCalls int
	deleteErr   error
}

func (g *mockGateway) FetchInventory(ctx context.Context) []inventory.Vehicle {
	g.fetchCalls++
	return append([]inventory.Vehicle{}, g.list...)
}

func (g *mockGateway) DeleteVehicle(ctx context.Context, id string) error {
	g.deleteCalls++
	return g.deleteErr
}

func price(p float64) *float64 { return &p }

func seedList() []inventory.Vehicle {
	return []inventory.Vehicle{
		{ID: "1", Status: inventory.StatusAvailable, SellingPrice: price(10000)},
		{ID: "2", Status: inventory.StatusSold, SellingPrice: price(25000)},
		{ID: "3", Status: inventory.StatusAvailable, SellingPrice: nil},
		{ID: "7", Status: inventory.StatusReserved, SellingPrice: price(500)},
	}
}

func TestStats(t *testing.T) {
	g := &mockGateway{list: seedList()}
	v := NewView(g, logger.Nop())
	v.Refresh(context.Background())

	if v.Total() != 4 {
		t.Fatalf("Total = %d, want 4", v.Total())
	}
	if v.AvailableCount() != 2 {
		t.Fatalf("AvailableCount = %d, want 2", v.AvailableCount())
	}
	// 缺失售价按 0 计。
	if v.TotalValue() != 35500 {
		t.Fatalf("TotalValue = %v, want 35500", v.TotalValue())
	}

	s := v.Snapshot()
	if s.Total != 4 || s.AvailableCount != 2 || s.TotalValue != 35500 {
		t.Fatalf("unexpected snapshot: %#v", s)
	}
}

func TestStatsEmptyList(t *testing.T) {
	v := NewView(&mockGateway{}, logger.Nop())
	v.Refresh(context.Background())

	s := v.Snapshot()
	if s.Total != 0 || s.AvailableCount != 0 || s.TotalValue != 0 {
		t.Fatalf("unexpected snapshot for empty list: %#v", s)
	}
}

func TestVehicleAddedPrepends(t *testing.T) {
	g := &mockGateway{list: seedList()}
	v := NewView(g, logger.Nop())
	v.Refresh(context.Background())

	v.VehicleAdded(&inventory.Vehicle{ID: "42", Status: inventory.StatusAvailable})

	list := v.Vehicles()
	if len(list) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(list))
	}
	if list[0].ID != "42" {
		t.Fatalf("expected new row at head, got %s", list[0].ID)
	}
	// 同步靠元素插入，不靠重新拉取。
	if g.fetchCalls != 1 {
		t.Fatalf("expected no refetch, fetchCalls=%d", g.fetchCalls)
	}
}

func TestVehicleUpdatedReplacesByID(t *testing.T) {
	g := &mockGateway{list: seedList()}
	v := NewView(g, logger.Nop())
	v.Refresh(context.Background())

	v.VehicleUpdated(&inventory.Vehicle{ID: "2", Status: inventory.StatusAvailable, SellingPrice: price(24000)})

	list := v.Vehicles()
	if list[1].ID != "2" || list[1].Status != inventory.StatusAvailable {
		t.Fatalf("row not replaced in place: %#v", list[1])
	}
	if v.TotalValue() != 34500 {
		t.Fatalf("TotalValue = %v, want 34500", v.TotalValue())
	}

	// 未知 id 不改动列表。
	v.VehicleUpdated(&inventory.Vehicle{ID: "nope"})
	if v.Total() != 4 {
		t.Fatalf("unknown id must not change the list")
	}
}

func TestDeleteRemovesOnlyOnSuccess(t *testing.T) {
	g := &mockGateway{list: seedList()}
	v := NewView(g, logger.Nop())
	v.Refresh(context.Background())

	// 远端失败：列表不变。
	g.deleteErr = fmt.Errorf("store down")
	if err := v.Delete(context.Background(), "7", func() bool { return true }); err == nil {
		t.Fatalf("expected error")
	}
	if v.Total() != 4 {
		t.Fatalf("list must be unchanged on failure")
	}

	// 远端成功：按 id 移除。
	g.deleteErr = nil
	if err := v.Delete(context.Background(), "7", func() bool { return true }); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if v.Total() != 3 {
		t.Fatalf("expected row removed, total=%d", v.Total())
	}
	for _, row := range v.Vehicles() {
		if row.ID == "7" {
			t.Fatalf("row 7 still present")
		}
	}
}

func TestImageURLAdded(t *testing.T) {
	g := &mockGateway{list: []inventory.Vehicle{
		{ID: "7", ImageURLs: inventory.ImageURLs{"u1"}},
	}}
	v := NewView(g, logger.Nop())
	v.Refresh(context.Background())

	v.ImageURLAdded("7", "u2")
	if got := v.Vehicles()[0].ImageURLs; len(got) != 2 || got[1] != "u2" {
		t.Fatalf("expected url appended, got %#v", got)
	}

	// 重复追加同一 URL 不产生重复项。
	v.ImageURLAdded("7", "u2")
	if got := v.Vehicles()[0].ImageURLs; len(got) != 2 {
		t.Fatalf("expected no duplicate, got %#v", got)
	}

	// 未知 id 不改动列表。
	v.ImageURLAdded("nope", "u9")
	if got := v.Vehicles()[0].ImageURLs; len(got) != 2 {
		t.Fatalf("unknown id must not change the list: %#v", got)
	}
}

func TestImageURLRemoved(t *testing.T) {
	g := &mockGateway{list: []inventory.Vehicle{
		{ID: "7", ImageURLs: inventory.ImageURLs{"u1", "u2", "u3"}},
	}}
	v := NewView(g, logger.Nop())
	v.Refresh(context.Background())

	v.ImageURLRemoved("7", "u2")
	if got := v.Vehicles()[0].ImageURLs; len(got) != 2 || got[0] != "u1" || got[1] != "u3" {
		t.Fatalf("expected u2 removed by value, got %#v", got)
	}

	// 不存在的 URL：列表原样。
	v.ImageURLRemoved("7", "u9")
	if got := v.Vehicles()[0].ImageURLs; len(got) != 2 {
		t.Fatalf("expected list unchanged, got %#v", got)
	}
}

func TestDeleteDeclinedConfirmSkipsGateway(t *testing.T) {
	g := &mockGateway{list: seedList()}
	v := NewView(g, logger.Nop())
	v.Refresh(context.Background())

	if err := v.Delete(context.Background(), "1", func() bool { return false }); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if g.deleteCalls != 0 {
		t.Fatalf("declined confirm must not reach the gateway")
	}
	if v.Total() != 4 {
		t.Fatalf("list must be unchanged")
	}
}
