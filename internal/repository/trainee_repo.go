package repository

import (
	"context"
	"errors"
	"strings"

	"hostel-management-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TraineeRepo struct {
	db *gorm.DB
}

func NewTraineeRepo(db *gorm.DB) *TraineeRepo {
	return &TraineeRepo{db: db}
}

// List retrieves trainees matching the filter and the total match count
func (r *TraineeRepo) List(ctx context.Context, filter TraineeFilter) ([]models.Trainee, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Trainee{})
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	if filter.Block != "" {
		q = q.Where("block = ?", filter.Block)
	}
	if filter.RoomNumber != nil {
		q = q.Where("room_number = ?", *filter.RoomNumber)
	}
	if filter.Designation != "" {
		q = q.Where("designation = ?", filter.Designation)
	}
	if filter.Ref != "" {
		id, code := filter.Ref.Parse()
		q = q.Where("(id = ? OR trainee_code = ?)", id, code)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(trainee_code) LIKE ? OR LOWER(division) LIKE ? OR mobile LIKE ?)",
			like, like, like, like)
	}
	if filter.CheckInFrom != nil {
		q = q.Where("check_in_date >= ?", *filter.CheckInFrom)
	}
	if filter.CheckInTo != nil {
		q = q.Where("check_in_date <= ?", *filter.CheckInTo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.Sort {
	case SortCheckIn:
		q = q.Order("check_in_date DESC").Order("id DESC")
	case SortRoom:
		q = q.Order("block ASC, room_number ASC, bed_number ASC")
	default:
		q = q.Order("created_at DESC").Order("id DESC")
	}
	if filter.Page.Limit > 0 {
		q = q.Offset(filter.Page.Offset()).Limit(filter.Page.Limit)
	}

	var trainees []models.Trainee
	err := q.Preload("Amenities").Find(&trainees).Error
	return trainees, total, err
}

// GetByRef finds a trainee by internal id first, then by trainee code
func (r *TraineeRepo) GetByRef(ctx context.Context, ref models.TraineeRef) (*models.Trainee, error) {
	id, code := ref.Parse()
	if id > 0 {
		var trainee models.Trainee
		err := r.db.WithContext(ctx).Preload("Amenities").First(&trainee, id).Error
		if err == nil {
			return &trainee, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return r.GetByCode(ctx, code)
}

// GetByCode finds a trainee by trainee code
func (r *TraineeRepo) GetByCode(ctx context.Context, code models.TraineeCode) (*models.Trainee, error) {
	var trainee models.Trainee
	err := r.db.WithContext(ctx).
		Preload("Amenities").
		Where("trainee_code = ?", code).
		First(&trainee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrTraineeNotFound
		}
		return nil, err
	}
	return &trainee, nil
}

// Create inserts the trainee under a placeholder code, then derives the
// final code from the generated id. Call it inside a transaction.
func (r *TraineeRepo) Create(ctx context.Context, trainee *models.Trainee) error {
	db := r.db.WithContext(ctx)
	trainee.TraineeCode = models.PendingTraineeCode()
	if err := db.Omit(clause.Associations).Create(trainee).Error; err != nil {
		return err
	}

	code := models.FormatTraineeCode(trainee.ID)
	if err := db.Model(&models.Trainee{ID: trainee.ID}).UpdateColumn("trainee_code", code).Error; err != nil {
		return err
	}
	trainee.TraineeCode = code

	for i := range trainee.Amenities {
		trainee.Amenities[i].TraineeID = trainee.ID
		if err := db.Create(&trainee.Amenities[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Update saves the trainee's own columns
func (r *TraineeRepo) Update(ctx context.Context, trainee *models.Trainee) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(trainee).Error
}

// Delete removes the trainee and its amenity lines
func (r *TraineeRepo) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("trainee_id = ?", id).Delete(&models.TraineeAmenity{}).Error; err != nil {
		return err
	}
	res := db.Delete(&models.Trainee{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrTraineeNotFound
	}
	return nil
}

// SaveAmenity creates or updates an amenity line
func (r *TraineeRepo) SaveAmenity(ctx context.Context, amenity *models.TraineeAmenity) error {
	if amenity.ID == 0 {
		return r.db.WithContext(ctx).Create(amenity).Error
	}
	return r.db.WithContext(ctx).Save(amenity).Error
}

func (r *TraineeRepo) DeleteAmenity(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.TraineeAmenity{}, id).Error
}
