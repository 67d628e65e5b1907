package repository

import (
	"context"
	"errors"
	"strings"

	"hostel-management-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepo struct {
	db *gorm.DB
}

func NewInventoryRepo(db *gorm.DB) *InventoryRepo {
	return &InventoryRepo{db: db}
}

func orderTransactions(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// List retrieves inventory items matching the filter and the total match count
func (r *InventoryRepo) List(ctx context.Context, filter InventoryFilter) ([]models.InventoryItem, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.InventoryItem{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.LowStock {
		q = q.Where("available_quantity <= minimum_threshold")
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = q.Order("category ASC, name ASC")
	if filter.Page.Limit > 0 {
		q = q.Offset(filter.Page.Offset()).Limit(filter.Page.Limit)
	}

	var items []models.InventoryItem
	err := q.Find(&items).Error
	return items, total, err
}

// GetByID retrieves an item, optionally with its full transaction ledger
func (r *InventoryRepo) GetByID(ctx context.Context, id uint, withTransactions bool) (*models.InventoryItem, error) {
	q := r.db.WithContext(ctx)
	if withTransactions {
		q = q.Preload("Transactions", orderTransactions)
	}

	var item models.InventoryItem
	if err := q.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// GetByIDForUpdate retrieves an item under SELECT ... FOR UPDATE
func (r *InventoryRepo) GetByIDForUpdate(ctx context.Context, id uint) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindByName resolves an item by exact, case-insensitive name
func (r *InventoryRepo) FindByName(ctx context.Context, name string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Order("id ASC").
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *InventoryRepo) Create(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

// Update saves the item's counters; BeforeSave enforces the quantity invariant
func (r *InventoryRepo) Update(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(item).Error
}

// Delete removes an item together with its ledger
func (r *InventoryRepo) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("item_id = ?", id).Delete(&models.InventoryTransaction{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.InventoryItem{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrItemNotFound
	}
	return nil
}

func (r *InventoryRepo) AppendTransaction(ctx context.Context, tx *models.InventoryTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

// ListLowStock retrieves items at or below their minimum threshold
func (r *InventoryRepo) ListLowStock(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("available_quantity <= minimum_threshold").
		Order("available_quantity ASC, name ASC").
		Find(&items).Error
	return items, err
}
