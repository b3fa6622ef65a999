package picking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/channelsync/internal/domain"
	"github.com/vladislavdragonenkov/channelsync/internal/service/inventory"
	"github.com/vladislavdragonenkov/channelsync/internal/storage/memory"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *inventory.MockService) {
	t.Helper()
	inv := inventory.NewMockService()
	inv.RequirementsBySale["sale-1"] = []domain.MaterialRequirement{
		{MaterialID: "mat-clay", Name: "clay", Qty: 4},
		{MaterialID: "mat-glaze", Name: "glaze", Qty: 1},
	}
	return NewCoordinator(memory.NewPickingListRepository(), inv), inv
}

func TestCoordinator_CreateForSale(t *testing.T) {
	coordinator, inv := newTestCoordinator(t)

	list, err := coordinator.CreateForSale("sale-1", "worker-1")
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, domain.PickingPending, list.Status)
	assert.Equal(t, "worker-1", list.AssignedTo)
	assert.Equal(t, 1, inv.RequirementsCalls)

	// Второй открытый список под ту же продажу запрещён.
	_, err = coordinator.CreateForSale("sale-1", "worker-2")
	assert.ErrorIs(t, err, domain.ErrDuplicatePickingList)
}

func TestCoordinator_DuplicateAllowedAfterClose(t *testing.T) {
	coordinator, _ := newTestCoordinator(t)

	list, err := coordinator.CreateForSale("sale-1", "")
	require.NoError(t, err)

	_, err = coordinator.Cancel(list.ID)
	require.NoError(t, err)

	_, err = coordinator.CreateForSale("sale-1", "")
	assert.NoError(t, err, "closed list must not block a new one")
}

func TestCoordinator_UpdateItemQuantity_Clamps(t *testing.T) {
	coordinator, _ := newTestCoordinator(t)

	list, err := coordinator.CreateForSale("sale-1", "")
	require.NoError(t, err)
	item := list.Items[0]

	updated, err := coordinator.UpdateItemQuantity(list.ID, item.ID, 99)
	require.NoError(t, err)
	assert.Equal(t, item.RequiredQty, updated.Items[0].PickedQty, "over-pick clamps to required")
	assert.Equal(t, domain.PickingInProgress, updated.Status)

	updated, err = coordinator.UpdateItemQuantity(list.ID, item.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, int32(0), updated.Items[0].PickedQty, "negative clamps to zero")
	assert.Equal(t, domain.PickingPending, updated.Status)
}

func TestCoordinator_UpdateItemQuantity_UnknownItem(t *testing.T) {
	coordinator, _ := newTestCoordinator(t)

	list, err := coordinator.CreateForSale("sale-1", "")
	require.NoError(t, err)

	_, err = coordinator.UpdateItemQuantity(list.ID, "missing-item", 1)
	assert.ErrorIs(t, err, domain.ErrPickingItemNotFound)
}

func TestCoordinator_Complete(t *testing.T) {
	coordinator, _ := newTestCoordinator(t)

	list, err := coordinator.CreateForSale("sale-1", "")
	require.NoError(t, err)

	// Недобор без override отклоняется.
	_, err = coordinator.Complete(list.ID, false)
	assert.ErrorIs(t, err, domain.ErrIncompletePicking)

	for _, item := range list.Items {
		_, err = coordinator.UpdateItemQuantity(list.ID, item.ID, item.RequiredQty)
		require.NoError(t, err)
	}

	completed, err := coordinator.Complete(list.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.PickingCompleted, completed.Status)

	// Повторное завершение закрытого списка — ошибка.
	_, err = coordinator.Complete(list.ID, false)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCoordinator_CompleteWithOverride(t *testing.T) {
	coordinator, _ := newTestCoordinator(t)

	list, err := coordinator.CreateForSale("sale-1", "")
	require.NoError(t, err)

	completed, err := coordinator.Complete(list.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.PickingCompleted, completed.Status)
	assert.False(t, completed.FullyPicked())
}

func TestCoordinator_Create_RequiresItems(t *testing.T) {
	coordinator, _ := newTestCoordinator(t)

	_, err := coordinator.Create(domain.PickingList{SaleID: "sale-2"})
	assert.ErrorIs(t, err, domain.ErrPickingItemsRequired)
}

func TestCoordinator_UpdateOnClosedList(t *testing.T) {
	coordinator, _ := newTestCoordinator(t)

	list, err := coordinator.CreateForSale("sale-1", "")
	require.NoError(t, err)
	item := list.Items[0]

	_, err = coordinator.Cancel(list.ID)
	require.NoError(t, err)

	_, err = coordinator.UpdateItemQuantity(list.ID, item.ID, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}
