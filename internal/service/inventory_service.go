package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"hostel-management-backend/internal/metrics"
	"hostel-management-backend/internal/models"
	"hostel-management-backend/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type InventoryService struct {
	store   repository.Store
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewInventoryService(store repository.Store, log *zap.Logger, m *metrics.Metrics) *InventoryService {
	return &InventoryService{
		store:   store,
		log:     log.Named("inventory"),
		metrics: m,
		now:     time.Now,
	}
}

type CreateItemInput struct {
	Name              string
	Category          models.ItemCategory
	Unit              models.ItemUnit
	TotalQuantity     int
	AvailableQuantity *int
	MinimumThreshold  int
	CostPerUnit       decimal.Decimal
}

// UpdateItemInput carries the fields to change; nil means unchanged.
type UpdateItemInput struct {
	Name             *string
	Category         *models.ItemCategory
	Unit             *models.ItemUnit
	TotalQuantity    *int
	MinimumThreshold *int
	CostPerUnit      *decimal.Decimal
}

type DirectAllocation struct {
	ItemID     uint
	Trainee    models.TraineeRef
	Quantity   int
	RoomNumber *int
}

type DirectReturn struct {
	ItemID    uint
	Trainee   models.TraineeRef
	Quantity  int
	Condition models.ReturnCondition
}

type AmenityResult struct {
	Item    *models.InventoryItem `json:"item"`
	Trainee *models.Trainee       `json:"trainee"`
}

type CategorySummary struct {
	Category              models.ItemCategory `json:"category"`
	TotalItems            int                 `json:"totalItems"`
	TotalQuantity         int                 `json:"totalQuantity"`
	AvailableQuantity     int                 `json:"availableQuantity"`
	InUseQuantity         int                 `json:"inUseQuantity"`
	UsedQuantity          int                 `json:"usedQuantity"`
	DamagedQuantity       int                 `json:"damagedQuantity"`
	LowStockItems         int                 `json:"lowStockItems"`
	UtilizationPercentage float64             `json:"utilizationPercentage"`
	StockValue            decimal.Decimal     `json:"stockValue"`
}

func (s *InventoryService) List(ctx context.Context, filter repository.InventoryFilter) ([]models.InventoryItem, models.Pagination, error) {
	filter.Page = filter.Page.Normalize(20)
	items, total, err := s.store.Inventory().List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list inventory items: %w", err)
	}
	return items, models.NewPagination(filter.Page, total), nil
}

// Get returns an item with its full transaction log.
func (s *InventoryService) Get(ctx context.Context, id uint) (*models.InventoryItem, error) {
	return s.store.Inventory().GetByID(ctx, id, true)
}

func (s *InventoryService) Create(ctx context.Context, in CreateItemInput, performedBy uint) (*models.InventoryItem, error) {
	item := &models.InventoryItem{
		Name:              strings.TrimSpace(in.Name),
		Category:          in.Category,
		Unit:              in.Unit,
		TotalQuantity:     in.TotalQuantity,
		AvailableQuantity: in.TotalQuantity,
		MinimumThreshold:  in.MinimumThreshold,
		CostPerUnit:       in.CostPerUnit,
	}
	if item.Unit == "" {
		item.Unit = models.UnitPiece
	}
	if in.AvailableQuantity != nil {
		item.AvailableQuantity = *in.AvailableQuantity
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Inventory().Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create inventory item: %w", err)
	}

	writeAudit(ctx, s.store, s.log, performedBy, "inventory_create",
		fmt.Sprintf("Created inventory item %s (%s, total %d)", item.Name, item.Category, item.TotalQuantity), nil)
	return item, nil
}

// Update changes descriptive fields and the total; the counter invariant is
// re-checked before the write.
func (s *InventoryService) Update(ctx context.Context, id uint, in UpdateItemInput, performedBy uint) (*models.InventoryItem, error) {
	var item *models.InventoryItem
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		item, err = tx.Inventory().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			item.Name = strings.TrimSpace(*in.Name)
		}
		if in.Category != nil {
			item.Category = *in.Category
		}
		if in.Unit != nil {
			item.Unit = *in.Unit
		}
		if in.TotalQuantity != nil {
			item.TotalQuantity = *in.TotalQuantity
		}
		if in.MinimumThreshold != nil {
			item.MinimumThreshold = *in.MinimumThreshold
		}
		if in.CostPerUnit != nil {
			item.CostPerUnit = *in.CostPerUnit
		}
		if err := item.Validate(); err != nil {
			return err
		}
		return tx.Inventory().Update(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	writeAudit(ctx, s.store, s.log, performedBy, "inventory_update",
		fmt.Sprintf("Updated inventory item %s", item.Name), map[string]interface{}{"itemId": item.ID})
	return item, nil
}

// Delete removes an item that has nothing in use.
func (s *InventoryService) Delete(ctx context.Context, id uint, performedBy uint) error {
	var name string
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		item, err := tx.Inventory().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if item.InUseQuantity > 0 {
			return models.ErrItemInUse
		}
		name = item.Name
		return tx.Inventory().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	writeAudit(ctx, s.store, s.log, performedBy, "inventory_delete",
		fmt.Sprintf("Deleted inventory item %s", name), map[string]interface{}{"itemId": id})
	return nil
}

func (s *InventoryService) Restock(ctx context.Context, id uint, quantity int, performedBy uint) (*models.InventoryItem, error) {
	item, err := s.mutate(ctx, id, func(item *models.InventoryItem) (*models.InventoryTransaction, error) {
		return item.Restock(quantity, performedBy, s.now())
	})
	if err != nil {
		return nil, err
	}
	writeAudit(ctx, s.store, s.log, performedBy, "inventory_restock",
		fmt.Sprintf("Restocked %d of %s", quantity, item.Name), map[string]interface{}{"itemId": id, "quantity": quantity})
	return item, nil
}

func (s *InventoryService) Dispose(ctx context.Context, id uint, quantity int, performedBy uint) (*models.InventoryItem, error) {
	item, err := s.mutate(ctx, id, func(item *models.InventoryItem) (*models.InventoryTransaction, error) {
		return item.Dispose(quantity, performedBy, s.now())
	})
	if err != nil {
		return nil, err
	}
	writeAudit(ctx, s.store, s.log, performedBy, "inventory_dispose",
		fmt.Sprintf("Disposed %d damaged %s", quantity, item.Name), map[string]interface{}{"itemId": id, "quantity": quantity})
	return item, nil
}

// appendLedger persists entry and attaches the stored copy to item.
func appendLedger(ctx context.Context, tx repository.Store, item *models.InventoryItem, entry *models.InventoryTransaction) error {
	if err := tx.Inventory().AppendTransaction(ctx, entry); err != nil {
		return err
	}
	item.AttachTransaction(*entry)
	return nil
}

// mutate applies one ledger operation under the item's row lock and
// persists the counters together with the new ledger entry.
func (s *InventoryService) mutate(ctx context.Context, id uint, apply func(*models.InventoryItem) (*models.InventoryTransaction, error)) (*models.InventoryItem, error) {
	var item *models.InventoryItem
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		item, err = tx.Inventory().GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		entry, err := apply(item)
		if err != nil {
			return err
		}
		if err := tx.Inventory().Update(ctx, item); err != nil {
			return err
		}
		return appendLedger(ctx, tx, item, entry)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// AllocateToTrainee hands an item to a trainee. The ledger and the trainee's
// amenity line change in one transaction; any failure fails the call.
func (s *InventoryService) AllocateToTrainee(ctx context.Context, in DirectAllocation, performedBy uint) (*AmenityResult, error) {
	started := time.Now()
	res, err := s.allocateToTrainee(ctx, in, performedBy)
	s.observe("amenity_allocate", started, err)
	return res, err
}

func (s *InventoryService) allocateToTrainee(ctx context.Context, in DirectAllocation, performedBy uint) (*AmenityResult, error) {
	var item *models.InventoryItem
	var trainee *models.Trainee
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		item, err = tx.Inventory().GetByIDForUpdate(ctx, in.ItemID)
		if err != nil {
			return err
		}
		trainee, err = tx.Trainees().GetByRef(ctx, in.Trainee)
		if err != nil {
			return err
		}
		if !trainee.Status.Active() {
			return models.ErrInvalidState
		}

		roomNumber := in.RoomNumber
		if roomNumber == nil {
			roomNumber = trainee.RoomNumber
		}
		now := s.now()
		entry, err := item.Allocate(in.Quantity, trainee.TraineeCode, roomNumber, performedBy, now)
		if err != nil {
			return err
		}
		if err := tx.Inventory().Update(ctx, item); err != nil {
			return err
		}
		if err := appendLedger(ctx, tx, item, entry); err != nil {
			return err
		}

		line, ok := heldLine(trainee, item.ID)
		if ok {
			line.Quantity += in.Quantity
		} else {
			id := item.ID
			trainee.Amenities = append(trainee.Amenities, models.TraineeAmenity{
				TraineeID:       trainee.ID,
				InventoryItemID: &id,
				Name:            item.Name,
				Quantity:        in.Quantity,
				Allocated:       true,
				AllocatedDate:   now,
			})
			line = &trainee.Amenities[len(trainee.Amenities)-1]
		}
		return tx.Trainees().SaveAmenity(ctx, line)
	})
	if err != nil {
		return nil, err
	}

	writeAudit(ctx, s.store, s.log, performedBy, "amenity_allocate",
		fmt.Sprintf("Allocated %d %s to trainee %s", in.Quantity, item.Name, trainee.TraineeCode),
		map[string]interface{}{"itemId": item.ID, "traineeId": string(trainee.TraineeCode), "quantity": in.Quantity})
	return &AmenityResult{Item: item, Trainee: trainee}, nil
}

// ReturnFromTrainee takes back part or all of an amenity a trainee holds.
func (s *InventoryService) ReturnFromTrainee(ctx context.Context, in DirectReturn, performedBy uint) (*AmenityResult, error) {
	started := time.Now()
	res, err := s.returnFromTrainee(ctx, in, performedBy)
	s.observe("amenity_return", started, err)
	return res, err
}

func (s *InventoryService) returnFromTrainee(ctx context.Context, in DirectReturn, performedBy uint) (*AmenityResult, error) {
	if in.Condition == "" {
		in.Condition = models.ConditionGood
	}

	var item *models.InventoryItem
	var trainee *models.Trainee
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		item, err = tx.Inventory().GetByIDForUpdate(ctx, in.ItemID)
		if err != nil {
			return err
		}
		trainee, err = tx.Trainees().GetByRef(ctx, in.Trainee)
		if err != nil {
			return err
		}

		line, ok := heldLine(trainee, item.ID)
		if !ok || line.Quantity < in.Quantity {
			return models.ErrExceedsInUse
		}
		entry, err := item.Return(in.Quantity, trainee.TraineeCode, in.Condition, performedBy, s.now())
		if err != nil {
			return err
		}
		if err := tx.Inventory().Update(ctx, item); err != nil {
			return err
		}
		if err := appendLedger(ctx, tx, item, entry); err != nil {
			return err
		}

		line.Quantity -= in.Quantity
		if line.Quantity > 0 {
			return tx.Trainees().SaveAmenity(ctx, line)
		}
		lineID := line.ID
		kept := trainee.Amenities[:0]
		for _, a := range trainee.Amenities {
			if a.ID != lineID {
				kept = append(kept, a)
			}
		}
		trainee.Amenities = kept
		return tx.Trainees().DeleteAmenity(ctx, lineID)
	})
	if err != nil {
		return nil, err
	}

	writeAudit(ctx, s.store, s.log, performedBy, "amenity_return",
		fmt.Sprintf("Returned %d %s from trainee %s in %s condition", in.Quantity, item.Name, trainee.TraineeCode, in.Condition),
		map[string]interface{}{"itemId": item.ID, "traineeId": string(trainee.TraineeCode), "quantity": in.Quantity, "condition": string(in.Condition)})
	return &AmenityResult{Item: item, Trainee: trainee}, nil
}

// heldLine finds the trainee's allocated line for an item.
func heldLine(trainee *models.Trainee, itemID uint) (*models.TraineeAmenity, bool) {
	for i := range trainee.Amenities {
		a := &trainee.Amenities[i]
		if a.Returnable() && *a.InventoryItemID == itemID {
			return a, true
		}
	}
	return nil, false
}

// TraineeAmenities returns the trainee with its amenity lines.
func (s *InventoryService) TraineeAmenities(ctx context.Context, ref models.TraineeRef) (*models.Trainee, error) {
	return s.store.Trainees().GetByRef(ctx, ref)
}

// StayingWithAmenities lists staying trainees for the amenities page.
func (s *InventoryService) StayingWithAmenities(ctx context.Context, block models.Block, search string) ([]models.Trainee, error) {
	trainees, _, err := s.store.Trainees().List(ctx, repository.TraineeFilter{
		Statuses: []models.TraineeStatus{models.TraineeStaying, models.TraineeExtended},
		Block:    block,
		Search:   search,
		Sort:     repository.SortRoom,
	})
	return trainees, err
}

func (s *InventoryService) LowStock(ctx context.Context) ([]models.InventoryItem, error) {
	return s.store.Inventory().ListLowStock(ctx)
}

// CategorySummary aggregates counters and stock value per category.
func (s *InventoryService) CategorySummary(ctx context.Context) ([]CategorySummary, error) {
	items, _, err := s.store.Inventory().List(ctx, repository.InventoryFilter{})
	if err != nil {
		return nil, err
	}

	byCategory := map[models.ItemCategory]*CategorySummary{}
	for i := range items {
		item := &items[i]
		sum, ok := byCategory[item.Category]
		if !ok {
			sum = &CategorySummary{Category: item.Category, StockValue: decimal.Zero}
			byCategory[item.Category] = sum
		}
		sum.TotalItems++
		sum.TotalQuantity += item.TotalQuantity
		sum.AvailableQuantity += item.AvailableQuantity
		sum.InUseQuantity += item.InUseQuantity
		sum.UsedQuantity += item.UsedQuantity
		sum.DamagedQuantity += item.DamagedQuantity
		if item.IsLowStock() {
			sum.LowStockItems++
		}
		sum.StockValue = sum.StockValue.Add(item.StockValue())
	}

	summary := make([]CategorySummary, 0, len(byCategory))
	for _, sum := range byCategory {
		if circulating := sum.AvailableQuantity + sum.InUseQuantity; circulating > 0 {
			rate := decimal.NewFromInt(int64(sum.InUseQuantity)).
				Div(decimal.NewFromInt(int64(circulating))).
				Mul(decimal.NewFromInt(100)).
				Round(2)
			sum.UtilizationPercentage = rate.InexactFloat64()
		}
		summary = append(summary, *sum)
	}
	sort.Slice(summary, func(i, j int) bool { return summary[i].Category < summary[j].Category })
	return summary, nil
}

func (s *InventoryService) observe(operation string, started time.Time, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	s.metrics.ObserveOperation(operation, result, started)
}
