package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hostel-management-backend/internal/models"
	"hostel-management-backend/internal/repository"

	"go.uber.org/zap"
)

// TraineeService serves trainee reads and profile edits. Anything that moves
// a trainee between beds goes through AllocationService.
type TraineeService struct {
	store repository.Store
	log   *zap.Logger
}

func NewTraineeService(store repository.Store, log *zap.Logger) *TraineeService {
	return &TraineeService{
		store: store,
		log:   log.Named("trainees"),
	}
}

type TraineeQuery struct {
	Status      models.TraineeStatus
	Block       models.Block
	Designation models.Designation
	Search      string
	Page        models.PageRequest
}

type HistoryQuery struct {
	Trainee    models.TraineeRef
	RoomNumber *int
	Block      models.Block
	From       *time.Time
	To         *time.Time
	Page       models.PageRequest
}

// ProfileInput carries profile fields to change; nil means unchanged.
type ProfileInput struct {
	Name             *string
	Designation      *models.Designation
	Division         *string
	Mobile           *string
	TrainingUnder    *string
	EmergencyContact *models.EmergencyContact
}

// CurrentAllotments groups active trainees by block.
type CurrentAllotments struct {
	Allotments map[models.Block][]models.Trainee `json:"allotments"`
	Total      int                               `json:"total"`
}

func (s *TraineeService) List(ctx context.Context, q TraineeQuery) ([]models.Trainee, models.Pagination, error) {
	page := q.Page.Normalize(10)
	filter := repository.TraineeFilter{
		Block:       q.Block,
		Designation: q.Designation,
		Search:      q.Search,
		Page:        page,
	}
	if q.Status != "" {
		filter.Statuses = []models.TraineeStatus{q.Status}
	}

	trainees, total, err := s.store.Trainees().List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to list trainees: %w", err)
	}
	return trainees, models.NewPagination(page, total), nil
}

func (s *TraineeService) Get(ctx context.Context, ref models.TraineeRef) (*models.Trainee, error) {
	return s.store.Trainees().GetByRef(ctx, ref)
}

// UpdateProfile edits personal details only; room fields and status are
// owned by the allocation operations.
func (s *TraineeService) UpdateProfile(ctx context.Context, ref models.TraineeRef, in ProfileInput, performedBy uint) (*models.Trainee, error) {
	var trainee *models.Trainee
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		trainee, err = tx.Trainees().GetByRef(ctx, ref)
		if err != nil {
			return err
		}
		if in.Name != nil {
			trainee.Name = strings.TrimSpace(*in.Name)
		}
		if in.Designation != nil {
			trainee.Designation = *in.Designation
		}
		if in.Division != nil {
			trainee.Division = strings.TrimSpace(*in.Division)
		}
		if in.Mobile != nil {
			trainee.Mobile = *in.Mobile
		}
		if in.TrainingUnder != nil {
			trainee.TrainingUnder = strings.TrimSpace(*in.TrainingUnder)
		}
		if in.EmergencyContact != nil {
			trainee.EmergencyContact = *in.EmergencyContact
		}
		return tx.Trainees().Update(ctx, trainee)
	})
	if err != nil {
		return nil, err
	}

	writeAudit(ctx, s.store, s.log, performedBy, "trainee_update",
		fmt.Sprintf("Updated profile of trainee %s", trainee.TraineeCode), nil)
	return trainee, nil
}

// ByBlock lists the trainees of a block in room order; status defaults to staying.
func (s *TraineeService) ByBlock(ctx context.Context, block models.Block, status models.TraineeStatus) ([]models.Trainee, error) {
	if status == "" {
		status = models.TraineeStaying
	}
	trainees, _, err := s.store.Trainees().List(ctx, repository.TraineeFilter{
		Statuses: []models.TraineeStatus{status},
		Block:    block,
		Sort:     repository.SortRoom,
	})
	return trainees, err
}

// Current returns staying and extended trainees grouped by block.
func (s *TraineeService) Current(ctx context.Context, block models.Block) (*CurrentAllotments, error) {
	trainees, _, err := s.store.Trainees().List(ctx, repository.TraineeFilter{
		Statuses: []models.TraineeStatus{models.TraineeStaying, models.TraineeExtended},
		Block:    block,
		Sort:     repository.SortRoom,
	})
	if err != nil {
		return nil, err
	}

	grouped := map[models.Block][]models.Trainee{}
	for _, t := range trainees {
		if t.Block == nil {
			continue
		}
		grouped[*t.Block] = append(grouped[*t.Block], t)
	}
	return &CurrentAllotments{Allotments: grouped, Total: len(trainees)}, nil
}

// History lists every stay, newest check-in first.
func (s *TraineeService) History(ctx context.Context, q HistoryQuery) ([]models.Trainee, models.Pagination, error) {
	page := q.Page.Normalize(20)
	trainees, total, err := s.store.Trainees().List(ctx, repository.TraineeFilter{
		Ref:         q.Trainee,
		RoomNumber:  q.RoomNumber,
		Block:       q.Block,
		CheckInFrom: q.From,
		CheckInTo:   q.To,
		Sort:        repository.SortCheckIn,
		Page:        page,
	})
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("failed to fetch allotment history: %w", err)
	}
	return trainees, models.NewPagination(page, total), nil
}
