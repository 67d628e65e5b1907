package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ItemCategory string

const (
	CategoryLinen      ItemCategory = "linen"
	CategoryBlanket    ItemCategory = "blanket"
	CategoryFurniture  ItemCategory = "furniture"
	CategoryElectrical ItemCategory = "electrical"
	CategoryCleaning   ItemCategory = "cleaning"
	CategoryOther      ItemCategory = "other"
)

type ItemUnit string

const (
	UnitPiece ItemUnit = "piece"
	UnitSet   ItemUnit = "set"
	UnitPair  ItemUnit = "pair"
	UnitMeter ItemUnit = "meter"
	UnitKg    ItemUnit = "kg"
	UnitLiter ItemUnit = "liter"
)

type TransactionType string

const (
	TxPurchase   TransactionType = "purchase"
	TxAllocation TransactionType = "allocation"
	TxReturn     TransactionType = "return"
	TxDamage     TransactionType = "damage"
	TxDisposal   TransactionType = "disposal"
)

// ReturnCondition decides which bucket a returned quantity lands in.
type ReturnCondition string

const (
	ConditionGood    ReturnCondition = "good"
	ConditionUsed    ReturnCondition = "used"
	ConditionDamaged ReturnCondition = "damaged"
)

func (c ReturnCondition) Valid() bool {
	return c == ConditionGood || c == ConditionUsed || c == ConditionDamaged
}

// InventoryItem represents the inventory_items table
type InventoryItem struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Name              string          `gorm:"size:100;not null;index:idx_inventory_name_category,priority:1" json:"name"`
	Category          ItemCategory    `gorm:"size:20;not null;index:idx_inventory_name_category,priority:2;index" json:"category"`
	Unit              ItemUnit        `gorm:"size:10;not null" json:"unit"`
	TotalQuantity     int             `gorm:"not null" json:"totalQuantity"`
	AvailableQuantity int             `gorm:"not null;index" json:"availableQuantity"`
	InUseQuantity     int             `gorm:"not null" json:"inUseQuantity"`
	UsedQuantity      int             `gorm:"not null" json:"usedQuantity"`
	DamagedQuantity   int             `gorm:"not null" json:"damagedQuantity"`
	MinimumThreshold  int             `gorm:"not null" json:"minimumThreshold"`
	CostPerUnit       decimal.Decimal `gorm:"type:decimal(12,2)" json:"costPerUnit"`
	LastRestocked     *time.Time      `json:"lastRestocked,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`

	// Relationships
	Transactions []InventoryTransaction `gorm:"foreignKey:ItemID" json:"transactions,omitempty"`
}

// TableName specifies the table name for InventoryItem model
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// BeforeSave rejects any write that would break the quantity invariant.
func (i *InventoryItem) BeforeSave(tx *gorm.DB) error {
	return i.Validate()
}

// Validate checks the counter invariant:
// available + inUse + used + damaged <= total, every counter non-negative.
func (i *InventoryItem) Validate() error {
	if i.TotalQuantity < 0 || i.AvailableQuantity < 0 || i.InUseQuantity < 0 ||
		i.UsedQuantity < 0 || i.DamagedQuantity < 0 || i.MinimumThreshold < 0 {
		return fmt.Errorf("%w: quantities cannot be negative", ErrInventoryInvariant)
	}
	if i.CostPerUnit.IsNegative() {
		return fmt.Errorf("%w: cost per unit cannot be negative", ErrInventoryInvariant)
	}
	if i.AvailableQuantity+i.InUseQuantity+i.UsedQuantity+i.DamagedQuantity > i.TotalQuantity {
		return ErrInventoryInvariant
	}
	return nil
}

func (i *InventoryItem) IsLowStock() bool {
	return i.AvailableQuantity <= i.MinimumThreshold
}

// StockValue is the cost of the whole stock of this item.
func (i *InventoryItem) StockValue() decimal.Decimal {
	return i.CostPerUnit.Mul(decimal.NewFromInt(int64(i.TotalQuantity)))
}

// Allocate moves quantity from available to in use and returns the ledger
// entry to persist. Nothing changes when an error is returned.
func (i *InventoryItem) Allocate(quantity int, trainee TraineeCode, roomNumber *int, performedBy uint, at time.Time) (*InventoryTransaction, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if i.AvailableQuantity < quantity {
		return nil, ErrInsufficientQuantity
	}

	i.AvailableQuantity -= quantity
	i.InUseQuantity += quantity

	return i.record(&InventoryTransaction{
		Type:        TxAllocation,
		Quantity:    quantity,
		Date:        at,
		TraineeCode: trainee,
		RoomNumber:  roomNumber,
		PerformedBy: performedBy,
	}), nil
}

// Return moves quantity out of in use into the bucket chosen by condition.
func (i *InventoryItem) Return(quantity int, trainee TraineeCode, condition ReturnCondition, performedBy uint, at time.Time) (*InventoryTransaction, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if !condition.Valid() {
		return nil, ErrInvalidCondition
	}
	if i.InUseQuantity < quantity {
		return nil, ErrExceedsInUse
	}

	i.InUseQuantity -= quantity
	switch condition {
	case ConditionGood:
		i.AvailableQuantity += quantity
	case ConditionUsed:
		i.UsedQuantity += quantity
	case ConditionDamaged:
		i.DamagedQuantity += quantity
	}

	return i.record(&InventoryTransaction{
		Type:        TxReturn,
		Quantity:    quantity,
		Date:        at,
		TraineeCode: trainee,
		Notes:       fmt.Sprintf("Returned in %s condition", condition),
		PerformedBy: performedBy,
	}), nil
}

// Restock adds newly purchased stock.
func (i *InventoryItem) Restock(quantity int, performedBy uint, at time.Time) (*InventoryTransaction, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	i.TotalQuantity += quantity
	i.AvailableQuantity += quantity
	restocked := at
	i.LastRestocked = &restocked

	return i.record(&InventoryTransaction{
		Type:        TxPurchase,
		Quantity:    quantity,
		Date:        at,
		Notes:       fmt.Sprintf("Restocked %d %s(s)", quantity, i.Unit),
		PerformedBy: performedBy,
	}), nil
}

// Dispose writes damaged stock off the books.
func (i *InventoryItem) Dispose(quantity int, performedBy uint, at time.Time) (*InventoryTransaction, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if i.DamagedQuantity < quantity {
		return nil, ErrExceedsDamaged
	}

	i.DamagedQuantity -= quantity
	i.TotalQuantity -= quantity

	return i.record(&InventoryTransaction{
		Type:        TxDisposal,
		Quantity:    quantity,
		Date:        at,
		Notes:       fmt.Sprintf("Disposed %d damaged %s(s)", quantity, i.Unit),
		PerformedBy: performedBy,
	}), nil
}

// record ties the entry to the item. The caller persists it and attaches
// the stored copy with AttachTransaction.
func (i *InventoryItem) record(tx *InventoryTransaction) *InventoryTransaction {
	tx.ItemID = i.ID
	return tx
}

// AttachTransaction adds a persisted ledger entry to the loaded item.
func (i *InventoryItem) AttachTransaction(tx InventoryTransaction) {
	i.Transactions = append(i.Transactions, tx)
}

// InventoryTransaction is one append-only ledger entry of an item.
type InventoryTransaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ItemID      uint            `gorm:"not null;index" json:"-"`
	Type        TransactionType `gorm:"size:20;not null;index" json:"type"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Date        time.Time       `gorm:"index" json:"date"`
	TraineeCode TraineeCode     `gorm:"size:40;index" json:"traineeId,omitempty"`
	RoomNumber  *int            `json:"roomNumber,omitempty"`
	Notes       string          `gorm:"size:255" json:"notes,omitempty"`
	PerformedBy uint            `json:"performedBy"`
}

// TableName specifies the table name for InventoryTransaction model
func (InventoryTransaction) TableName() string {
	return "inventory_transactions"
}
