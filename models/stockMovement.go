package models

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/utils"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// ProjectStockMovement is a project outbound (stock leaves for a site) or a project
// return (stock comes back). Lines snapshot cost at creation.
type ProjectStockMovement struct {
	ID           int                        `gorm:"primary_key" json:"id"`
	BusinessId   string                     `gorm:"size:64;not null;index" json:"business_id"`
	MovementType MovementType               `gorm:"size:10;not null;index" json:"movement_type"`
	ProjectId    int                        `gorm:"index;not null" json:"project_id"`
	MovementDate time.Time                  `gorm:"not null" json:"movement_date"`
	Status       MovementStatus             `gorm:"size:20;not null;index" json:"status"`
	TotalCost    decimal.Decimal            `gorm:"type:decimal(20,4);not null;default:0" json:"total_cost"`
	Notes        string                     `gorm:"type:text" json:"notes"`
	ConfirmedBy  string                     `gorm:"size:100" json:"confirmed_by"`
	ConfirmedAt  *time.Time                 `json:"confirmed_at"`
	Removed      bool                       `gorm:"not null;default:false;index" json:"removed"`
	Items        []ProjectStockMovementItem `gorm:"foreignKey:MovementId" json:"items"`
	CreatedAt    time.Time                  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time                  `gorm:"autoUpdateTime" json:"updated_at"`
}

type ProjectStockMovementItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	MovementId      int             `gorm:"index;not null" json:"movement_id"`
	InventoryItemId int             `gorm:"index;not null" json:"inventory_item_id"`
	Name            string          `gorm:"size:255" json:"name"`
	Unit            string          `gorm:"size:50" json:"unit"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"unit_cost"`
	TotalCost       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_cost"`
}

type NewStockMovementItem struct {
	InventoryItemId int             `json:"inventory_item_id" binding:"required"`
	Quantity        decimal.Decimal `json:"quantity"`
}

type NewStockMovement struct {
	ProjectId    int                    `json:"project_id" binding:"required"`
	MovementDate time.Time              `json:"movement_date"`
	Notes        string                 `json:"notes"`
	Items        []NewStockMovementItem `json:"items"`
}

type stockConfirmedEvent struct {
	MovementId   int               `json:"movement_id"`
	MovementType MovementType      `json:"movement_type"`
	ProjectId    int               `json:"project_id"`
	Deltas       []stockEventDelta `json:"deltas"`
}

type stockEventDelta struct {
	InventoryItemId int             `json:"inventory_item_id"`
	Delta           decimal.Decimal `json:"delta"`
}

func (input *NewStockMovement) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateResourceId[Project](ctx, businessId, input.ProjectId); err != nil {
		return err
	}
	if len(input.Items) == 0 {
		return utils.NewEmptyItemsError()
	}
	ids := make([]int, 0, len(input.Items))
	for i, item := range input.Items {
		if !item.Quantity.IsPositive() {
			return utils.NewValidationError("item %d: quantity must be greater than zero", i+1)
		}
		ids = append(ids, item.InventoryItemId)
	}
	if len(utils.UniqueSlice(ids)) != len(ids) {
		return utils.NewValidationError("an inventory item may appear only once per movement")
	}
	if input.MovementDate.IsZero() {
		input.MovementDate = time.Now().UTC()
	}
	return utils.ValidateResourcesId[InventoryItem](ctx, businessId, ids)
}

// snapshotMovementItems freezes name, unit and cost from the current inventory items.
func snapshotMovementItems(tx *gorm.DB, businessId string, inputs []NewStockMovementItem) ([]ProjectStockMovementItem, decimal.Decimal, error) {
	ids := make([]int, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, in.InventoryItemId)
	}
	var inventoryItems []InventoryItem
	if err := tx.Where("business_id = ? AND removed = ? AND id IN ?", businessId, false, ids).Find(&inventoryItems).Error; err != nil {
		return nil, decimal.Zero, err
	}
	byId := make(map[int]InventoryItem, len(inventoryItems))
	for _, it := range inventoryItems {
		byId[it.ID] = it
	}

	items := make([]ProjectStockMovementItem, 0, len(inputs))
	total := decimal.Zero
	for _, in := range inputs {
		inv, ok := byId[in.InventoryItemId]
		if !ok {
			return nil, decimal.Zero, utils.NewNotFoundError("InventoryItem", in.InventoryItemId)
		}
		lineTotal := utils.MulMoney(in.Quantity, inv.Cost)
		items = append(items, ProjectStockMovementItem{
			InventoryItemId: inv.ID,
			Name:            inv.Name,
			Unit:            inv.Unit,
			Quantity:        in.Quantity,
			UnitCost:        inv.Cost,
			TotalCost:       lineTotal,
		})
		total = total.Add(lineTotal)
	}
	return items, total, nil
}

func CreateProjectOutbound(ctx context.Context, input *NewStockMovement) (*ProjectStockMovement, error) {
	return createStockMovement(ctx, MovementTypeOutbound, input)
}

func CreateProjectReturn(ctx context.Context, input *NewStockMovement) (*ProjectStockMovement, error) {
	return createStockMovement(ctx, MovementTypeReturn, input)
}

func createStockMovement(ctx context.Context, movementType MovementType, input *NewStockMovement) (*ProjectStockMovement, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}
	movement := ProjectStockMovement{
		BusinessId:   businessId,
		MovementType: movementType,
		ProjectId:    input.ProjectId,
		MovementDate: input.MovementDate,
		Status:       MovementStatusPending,
		Notes:        input.Notes,
	}
	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		items, total, err := snapshotMovementItems(tx, businessId, input.Items)
		if err != nil {
			return err
		}
		movement.Items = items
		movement.TotalCost = total
		if err := tx.Create(&movement).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionCreate, movement.ID, InventoryReferenceStockMovement, nil, &movement,
			fmt.Sprintf("Project %s created for %d item(s).", movement.MovementType, len(items)))
	})
	if err != nil {
		return nil, err
	}
	return &movement, nil
}

// fetchMovementTx loads a live movement of the given type with its lines.
func fetchMovementTx(tx *gorm.DB, businessId string, id int, movementType MovementType) (*ProjectStockMovement, error) {
	q := tx.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("business_id = ? AND removed = ? AND movement_type = ?", businessId, false, movementType)
	movement, err := FindOne[ProjectStockMovement](q, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if movement == nil {
		return nil, utils.NewNotFoundError("project "+string(movementType), id)
	}
	return movement, nil
}

func requirePending(movement *ProjectStockMovement) error {
	if movement.Status != MovementStatusPending {
		return utils.NewInvalidStateError("project %s %d is %s", movement.MovementType, movement.ID, movement.Status)
	}
	return nil
}

// UpdateStockMovement re-snapshots the lines of a pending movement.
func UpdateStockMovement(ctx context.Context, movementType MovementType, id int, input *NewStockMovement) (*ProjectStockMovement, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}
	var result *ProjectStockMovement
	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		movement, err := fetchMovementTx(tx, businessId, id, movementType)
		if err != nil {
			return err
		}
		if err := requirePending(movement); err != nil {
			return err
		}
		items, total, err := snapshotMovementItems(tx, businessId, input.Items)
		if err != nil {
			return err
		}
		rows, err := UpdateOne[ProjectStockMovement](tx, map[string]interface{}{
			"project_id":    input.ProjectId,
			"movement_date": input.MovementDate,
			"notes":         input.Notes,
			"total_cost":    total,
		}, "id = ? AND status = ? AND removed = ?", id, MovementStatusPending, false)
		if err != nil {
			return err
		}
		if rows == 0 {
			return utils.NewInvalidStateError("project %s %d is no longer pending", movementType, id)
		}
		if err := tx.Where("movement_id = ?", id).Delete(&ProjectStockMovementItem{}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].MovementId = id
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		result, err = fetchMovementTx(tx, businessId, id, movementType)
		if err != nil {
			return err
		}
		return createHistory(tx, HistoryActionUpdate, id, InventoryReferenceStockMovement, movement, result,
			fmt.Sprintf("Project %s %d updated.", movementType, id))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveStockMovement soft-deletes a pending movement.
func RemoveStockMovement(ctx context.Context, movementType MovementType, id int) (*ProjectStockMovement, error) {
	return finishWithoutStock(ctx, movementType, id, map[string]interface{}{"removed": true}, HistoryActionDelete, "removed")
}

// CancelStockMovement ends a pending movement without touching stock.
func CancelStockMovement(ctx context.Context, movementType MovementType, id int) (*ProjectStockMovement, error) {
	return finishWithoutStock(ctx, movementType, id, map[string]interface{}{"status": MovementStatusCancelled}, HistoryActionUpdate, "cancelled")
}

func finishWithoutStock(ctx context.Context, movementType MovementType, id int, patch map[string]interface{}, action HistoryAction, verb string) (*ProjectStockMovement, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var result *ProjectStockMovement
	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		movement, err := fetchMovementTx(tx, businessId, id, movementType)
		if err != nil {
			return err
		}
		if err := requirePending(movement); err != nil {
			return err
		}
		rows, err := UpdateOne[ProjectStockMovement](tx, patch, "id = ? AND status = ? AND removed = ?", id, MovementStatusPending, false)
		if err != nil {
			return err
		}
		if rows == 0 {
			return utils.NewInvalidStateError("project %s %d is no longer pending", movementType, id)
		}
		if v, ok := patch["status"]; ok {
			movement.Status = v.(MovementStatus)
		}
		if _, ok := patch["removed"]; ok {
			movement.Removed = true
		}
		result = movement
		return createHistory(tx, action, id, InventoryReferenceStockMovement, nil, nil,
			fmt.Sprintf("Project %s %d %s.", movementType, id, verb))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ConfirmOutbound takes the outbound's quantities out of stock, exactly once.
func ConfirmOutbound(ctx context.Context, id int) (*ProjectStockMovement, error) {
	return confirmStockMovement(ctx, MovementTypeOutbound, id)
}

// ConfirmReturn puts the return's quantities back into stock, exactly once.
func ConfirmReturn(ctx context.Context, id int) (*ProjectStockMovement, error) {
	return confirmStockMovement(ctx, MovementTypeReturn, id)
}

func confirmStockMovement(ctx context.Context, movementType MovementType, id int) (*ProjectStockMovement, error) {
	ctx, span := tracer.Start(ctx, "confirmStockMovement")
	defer span.End()
	span.SetAttributes(attribute.String("movement.type", string(movementType)), attribute.Int("movement.id", id))

	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var result *ProjectStockMovement
	err = utils.WithBusinessLock(ctx, businessId, "stockLock", "StockMovement", func() error {
		return WithTransaction(ctx, func(tx *gorm.DB) error {
			movement, err := fetchMovementTx(tx, businessId, id, movementType)
			if err != nil {
				return err
			}
			result, err = confirmMovementTx(tx, movement, utils.GetActorFromContext(ctx), time.Now().UTC())
			return err
		})
	})
	if err != nil {
		span.RecordError(err)
		config.LogError(config.GetLogger(), "StockMovement", "confirmStockMovement", fmt.Sprintf("confirm %s", movementType), id, err)
		return nil, err
	}
	return result, nil
}

// confirmMovementTx claims the pending→confirmed flip first; only the caller that wins
// the conditional update applies stock, so a stale or concurrent confirm changes nothing.
func confirmMovementTx(tx *gorm.DB, movement *ProjectStockMovement, confirmedBy string, now time.Time) (*ProjectStockMovement, error) {
	if err := requirePending(movement); err != nil {
		return nil, err
	}
	rows, err := UpdateOne[ProjectStockMovement](tx, map[string]interface{}{
		"status":       MovementStatusConfirmed,
		"confirmed_by": confirmedBy,
		"confirmed_at": now,
	}, "id = ? AND status = ? AND removed = ?", movement.ID, MovementStatusPending, false)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, utils.NewInvalidStateError("project %s %d is no longer pending", movement.MovementType, movement.ID)
	}

	event := stockConfirmedEvent{MovementId: movement.ID, MovementType: movement.MovementType, ProjectId: movement.ProjectId}
	if err := applyMovementStockForStatusTransition(tx, movement, now, confirmedBy, &event); err != nil {
		return nil, err
	}

	movement.Status = MovementStatusConfirmed
	movement.ConfirmedBy = confirmedBy
	movement.ConfirmedAt = &now
	if err := createHistory(tx, HistoryActionConfirm, movement.ID, InventoryReferenceStockMovement, nil, nil,
		fmt.Sprintf("Project %s %d confirmed by %s.", movement.MovementType, movement.ID, confirmedBy)); err != nil {
		return nil, err
	}
	if err := writeOutbox(tx, movement.BusinessId, EventStockConfirmed, InventoryReferenceStockMovement, movement.ID, event); err != nil {
		return nil, err
	}
	return movement, nil
}

// applyMovementStockForStatusTransition applies one signed delta and one ledger row per line.
func applyMovementStockForStatusTransition(tx *gorm.DB, movement *ProjectStockMovement, date time.Time, owner string, event *stockConfirmedEvent) error {
	for _, item := range movement.Items {
		delta := item.Quantity
		if movement.MovementType == MovementTypeOutbound {
			delta = delta.Neg()
		}
		if err := applyStockDelta(tx, movement.BusinessId, item.InventoryItemId, delta, date, owner,
			InventoryReferenceStockMovement, movement.ID); err != nil {
			return err
		}
		event.Deltas = append(event.Deltas, stockEventDelta{InventoryItemId: item.InventoryItemId, Delta: delta})
	}
	return nil
}

func GetStockMovement(ctx context.Context, movementType MovementType, id int) (*ProjectStockMovement, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return fetchMovementTx(config.GetDB().WithContext(ctx), businessId, id, movementType)
}

func GetStockMovements(ctx context.Context, movementType MovementType, projectId *int, status *MovementStatus) ([]*ProjectStockMovement, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dbCtx := config.GetDB().WithContext(ctx).Preload("Items").
		Where("business_id = ? AND removed = ? AND movement_type = ?", businessId, false, movementType)
	if projectId != nil {
		dbCtx = dbCtx.Where("project_id = ?", *projectId)
	}
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	var results []*ProjectStockMovement
	if err := dbCtx.Order("movement_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
