package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
)

func makePickingList() domain.PickingList {
	now := time.Now().UTC()
	return domain.PickingList{
		ID:     "pick-1",
		SaleID: "sale-1",
		Status: domain.PickingPending,
		Items: []domain.PickingItem{
			{ID: "pi-1", MaterialID: "mat-wool", Name: "wool", RequiredQty: 4, PickedQty: 0},
			{ID: "pi-2", MaterialID: "mat-dye", Name: "dye", RequiredQty: 1, PickedQty: 0},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPickingListRecalculateStatus(t *testing.T) {
	list := makePickingList()

	list.RecalculateStatus()
	if list.Status != domain.PickingPending {
		t.Fatalf("expected pending with nothing picked, got %s", list.Status)
	}

	list.Items[0].PickedQty = 2
	list.RecalculateStatus()
	if list.Status != domain.PickingInProgress {
		t.Fatalf("expected in_progress with partial pick, got %s", list.Status)
	}

	// Даже полный сбор не завершает список автоматически.
	list.Items[0].PickedQty = 4
	list.Items[1].PickedQty = 1
	list.RecalculateStatus()
	if list.Status != domain.PickingInProgress {
		t.Fatalf("expected in_progress until explicit completion, got %s", list.Status)
	}

	list.Status = domain.PickingCompleted
	list.RecalculateStatus()
	if list.Status != domain.PickingCompleted {
		t.Fatalf("terminal status must not be recalculated, got %s", list.Status)
	}
}

func TestPickingListFullyPicked(t *testing.T) {
	list := makePickingList()
	if list.FullyPicked() {
		t.Fatal("empty pick must not be fully picked")
	}

	list.Items[0].PickedQty = 4
	list.Items[1].PickedQty = 1
	if !list.FullyPicked() {
		t.Fatal("expected fully picked list")
	}
}

func TestPickingListValidateInvariants(t *testing.T) {
	cases := []struct {
		name string
		mut  func(l *domain.PickingList)
	}{
		{
			name: "no items",
			mut: func(l *domain.PickingList) {
				l.Items = nil
			},
		},
		{
			name: "no material id",
			mut: func(l *domain.PickingList) {
				l.Items[0].MaterialID = ""
			},
		},
		{
			name: "required qty invalid",
			mut: func(l *domain.PickingList) {
				l.Items[0].RequiredQty = 0
			},
		},
		{
			name: "picked above required",
			mut: func(l *domain.PickingList) {
				l.Items[0].PickedQty = l.Items[0].RequiredQty + 1
			},
		},
		{
			name: "picked negative",
			mut: func(l *domain.PickingList) {
				l.Items[0].PickedQty = -1
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			list := makePickingList()
			tc.mut(&list)

			if len(list.ValidateInvariants()) == 0 {
				t.Fatalf("expected validation errors for case %s", tc.name)
			}
		})
	}

	list := makePickingList()
	if errs := list.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := domain.NormalizeEmail("  Jane.Doe@Example.COM "); got != "jane.doe@example.com" {
		t.Fatalf("unexpected normalized email %q", got)
	}
}
