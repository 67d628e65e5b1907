package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"hostel-management-backend/internal/metrics"
	"hostel-management-backend/internal/models"
	"hostel-management-backend/internal/repository"

	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomePartial   Outcome = "partial"
)

// AmenityIssue is one amenity side effect that could not be applied after
// the room and trainee changes were committed.
type AmenityIssue struct {
	Name     string `json:"name"`
	ItemID   *uint  `json:"itemId,omitempty"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason"`
}

// Result reports whether every amenity side effect of an operation landed.
type Result struct {
	Outcome       Outcome        `json:"outcome"`
	AmenityIssues []AmenityIssue `json:"amenityIssues,omitempty"`
}

func newResult() Result {
	return Result{Outcome: OutcomeCompleted}
}

func (r *Result) fail(issue AmenityIssue) {
	r.Outcome = OutcomePartial
	r.AmenityIssues = append(r.AmenityIssues, issue)
}

// AmenityRequest asks for an inventory item by id, or by exact name when no
// id is given.
type AmenityRequest struct {
	ItemID   *uint
	Name     string
	Quantity int
}

type TraineeInput struct {
	Name                 string
	Designation          models.Designation
	Division             string
	Mobile               string
	CheckInDate          time.Time
	ExpectedCheckOutDate time.Time
	TrainingUnder        string
	EmergencyContact     models.EmergencyContact
	Amenities            []AmenityRequest
}

type AllocateInput struct {
	Trainee   TraineeInput
	Room      models.RoomKey
	BedNumber int
}

type AllocateResult struct {
	Result
	Trainee *models.Trainee `json:"trainee"`
	Room    *models.Room    `json:"room"`
}

type TransferInput struct {
	Trainee   models.TraineeRef
	Room      models.RoomKey
	BedNumber int
	Reason    string
}

type TransferResult struct {
	Trainee *models.Trainee `json:"trainee"`
	OldRoom *models.RoomKey `json:"oldRoom"`
	NewRoom models.RoomKey  `json:"newRoom"`
}

type ExtendInput struct {
	Trainee         models.TraineeRef
	NewCheckOutDate time.Time
	Reason          string
}

type DeallocateResult struct {
	Result
	TraineeID models.TraineeCode `json:"traineeId"`
}

type CheckoutResult struct {
	Result
	Trainee *models.Trainee `json:"trainee"`
}

// AllocationService coordinates the operations that touch rooms, trainees
// and inventory together. Room and trainee writes of one operation commit in
// a single transaction; amenity bookkeeping runs afterwards, one transaction
// per line, and its failures are reported in the Result instead of failing
// the operation.
type AllocationService struct {
	store   repository.Store
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewAllocationService(store repository.Store, log *zap.Logger, m *metrics.Metrics) *AllocationService {
	return &AllocationService{
		store:   store,
		log:     log.Named("allocation"),
		metrics: m,
		now:     time.Now,
	}
}

// Allocate creates a staying trainee in the given room and bed.
func (s *AllocationService) Allocate(ctx context.Context, in AllocateInput, performedBy uint) (*AllocateResult, error) {
	started := time.Now()
	res, err := s.allocate(ctx, in, performedBy)
	var result *Result
	if res != nil {
		result = &res.Result
	}
	s.observe("allocate", started, result, err)
	return res, err
}

func (s *AllocationService) allocate(ctx context.Context, in AllocateInput, performedBy uint) (*AllocateResult, error) {
	if err := validateAllocation(in); err != nil {
		return nil, err
	}

	now := s.now()
	lines := s.amenityLines(ctx, in.Trainee.Amenities, now)
	trainee := &models.Trainee{
		Name:                 strings.TrimSpace(in.Trainee.Name),
		Designation:          in.Trainee.Designation,
		Division:             strings.TrimSpace(in.Trainee.Division),
		Mobile:               in.Trainee.Mobile,
		CheckInDate:          in.Trainee.CheckInDate,
		ExpectedCheckOutDate: in.Trainee.ExpectedCheckOutDate,
		Status:               models.TraineeStaying,
		TrainingUnder:        strings.TrimSpace(in.Trainee.TrainingUnder),
		EmergencyContact:     in.Trainee.EmergencyContact,
		Amenities:            lines,
	}
	if trainee.CheckInDate.IsZero() {
		trainee.CheckInDate = now
	}

	var room *models.Room
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		room, err = tx.Rooms().GetByKeyForUpdate(ctx, in.Room)
		if err != nil {
			return err
		}
		if err := checkBed(room, in.BedNumber, ""); err != nil {
			return err
		}

		trainee.AssignBed(in.Room, in.BedNumber)
		if err := tx.Trainees().Create(ctx, trainee); err != nil {
			return fmt.Errorf("failed to create trainee: %w", err)
		}

		occupant := room.AddOccupant(trainee.TraineeCode, in.BedNumber, now)
		if err := tx.Rooms().AddOccupant(ctx, &occupant); err != nil {
			return err
		}
		return tx.Rooms().Update(ctx, room)
	})
	if err != nil {
		return nil, err
	}

	result := newResult()
	for i := range trainee.Amenities {
		line := &trainee.Amenities[i]
		requested := in.Trainee.Amenities[i].ItemID
		if err := s.allocateAmenity(ctx, trainee, line, requested, performedBy); err != nil {
			s.amenityFailed(&result, "allocate", trainee.TraineeCode, line.Name, requested, line.Quantity, err)
		}
	}

	s.log.Info("Room allocated",
		zap.String("trainee_id", string(trainee.TraineeCode)),
		zap.String("room", in.Room.String()),
		zap.Int("bed", in.BedNumber),
		zap.String("outcome", string(result.Outcome)),
	)
	writeAudit(ctx, s.store, s.log, performedBy, "room_allocate",
		fmt.Sprintf("Allocated trainee %s (%s) to room %s bed %d", trainee.TraineeCode, trainee.Name, in.Room, in.BedNumber),
		auditMetadata(trainee.TraineeCode, result, map[string]interface{}{
			"room": in.Room.String(),
			"bed":  in.BedNumber,
		}))

	return &AllocateResult{Result: result, Trainee: trainee, Room: room}, nil
}

// Deallocate frees the trainee's bed, returns its amenities in good
// condition and deletes the trainee record.
func (s *AllocationService) Deallocate(ctx context.Context, ref models.TraineeRef, performedBy uint) (*DeallocateResult, error) {
	started := time.Now()
	res, err := s.deallocate(ctx, ref, performedBy)
	var result *Result
	if res != nil {
		result = &res.Result
	}
	s.observe("deallocate", started, result, err)
	return res, err
}

func (s *AllocationService) deallocate(ctx context.Context, ref models.TraineeRef, performedBy uint) (*DeallocateResult, error) {
	var trainee *models.Trainee
	var released *models.RoomKey
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		trainee, err = tx.Trainees().GetByRef(ctx, ref)
		if err != nil {
			return err
		}
		if released, err = s.releaseBed(ctx, tx, trainee); err != nil {
			return err
		}
		return tx.Trainees().Delete(ctx, trainee.ID)
	})
	if err != nil {
		return nil, err
	}

	result := newResult()
	for i := range trainee.Amenities {
		line := &trainee.Amenities[i]
		if !line.Returnable() {
			continue
		}
		if err := s.returnAmenity(ctx, trainee.TraineeCode, line, models.ConditionGood, performedBy, false); err != nil {
			s.amenityFailed(&result, "deallocate", trainee.TraineeCode, line.Name, line.InventoryItemID, line.Quantity, err)
		}
	}

	room := ""
	if released != nil {
		room = released.String()
	}
	s.log.Info("Trainee deallocated",
		zap.String("trainee_id", string(trainee.TraineeCode)),
		zap.String("room", room),
		zap.String("outcome", string(result.Outcome)),
	)
	writeAudit(ctx, s.store, s.log, performedBy, "room_deallocate",
		fmt.Sprintf("Deallocated and removed trainee %s (%s)", trainee.TraineeCode, trainee.Name),
		auditMetadata(trainee.TraineeCode, result, map[string]interface{}{"room": room}))

	return &DeallocateResult{Result: result, TraineeID: trainee.TraineeCode}, nil
}

// Transfer moves a trainee to another bed, in another room or the same one.
// Leaving the old bed and taking the new one commit together.
func (s *AllocationService) Transfer(ctx context.Context, in TransferInput, performedBy uint) (*TransferResult, error) {
	started := time.Now()
	res, err := s.transfer(ctx, in, performedBy)
	s.observe("transfer", started, nil, err)
	return res, err
}

func (s *AllocationService) transfer(ctx context.Context, in TransferInput, performedBy uint) (*TransferResult, error) {
	if !in.Room.Valid() {
		return nil, models.ErrInvalidRoom
	}

	var trainee *models.Trainee
	var oldRoom *models.RoomKey
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		trainee, err = tx.Trainees().GetByRef(ctx, in.Trainee)
		if err != nil {
			return err
		}
		if trainee.Status == models.TraineeCheckedOut {
			return models.ErrInvalidState
		}

		oldKey, hasOld := trainee.Room()
		sameRoom := hasOld && oldKey == in.Room
		if hasOld {
			k := oldKey
			oldRoom = &k
		}

		rooms, err := lockRooms(ctx, tx, in.Room, oldKey, hasOld && !sameRoom)
		if err != nil {
			return err
		}
		newRoom := rooms[in.Room]
		if err := checkBed(newRoom, in.BedNumber, trainee.TraineeCode); err != nil {
			return err
		}

		code := trainee.TraineeCode
		if sameRoom {
			newRoom.RemoveOccupant(code)
			if err := tx.Rooms().RemoveOccupant(ctx, newRoom.ID, code); err != nil {
				return err
			}
		} else if previous, ok := rooms[oldKey]; hasOld && ok {
			if previous.RemoveOccupant(code) {
				if err := tx.Rooms().RemoveOccupant(ctx, previous.ID, code); err != nil {
					return err
				}
			}
			if err := tx.Rooms().Update(ctx, previous); err != nil {
				return err
			}
		}

		occupant := newRoom.AddOccupant(code, in.BedNumber, s.now())
		if err := tx.Rooms().AddOccupant(ctx, &occupant); err != nil {
			return err
		}
		if err := tx.Rooms().Update(ctx, newRoom); err != nil {
			return err
		}

		trainee.AssignBed(in.Room, in.BedNumber)
		return tx.Trainees().Update(ctx, trainee)
	})
	if err != nil {
		return nil, err
	}

	from := "none"
	if oldRoom != nil {
		from = oldRoom.String()
	}
	s.log.Info("Trainee transferred",
		zap.String("trainee_id", string(trainee.TraineeCode)),
		zap.String("from", from),
		zap.String("to", in.Room.String()),
		zap.Int("bed", in.BedNumber),
	)
	writeAudit(ctx, s.store, s.log, performedBy, "room_transfer",
		fmt.Sprintf("Transferred trainee %s from %s to %s bed %d", trainee.TraineeCode, from, in.Room, in.BedNumber),
		map[string]interface{}{
			"traineeId": string(trainee.TraineeCode),
			"from":      from,
			"to":        in.Room.String(),
			"bed":       in.BedNumber,
			"reason":    in.Reason,
		})

	return &TransferResult{Trainee: trainee, OldRoom: oldRoom, NewRoom: in.Room}, nil
}

// Extend pushes a staying trainee's expected check-out date later.
func (s *AllocationService) Extend(ctx context.Context, in ExtendInput, performedBy uint) (*models.Trainee, error) {
	started := time.Now()
	trainee, err := s.extend(ctx, in, performedBy)
	s.observe("extend", started, nil, err)
	return trainee, err
}

func (s *AllocationService) extend(ctx context.Context, in ExtendInput, performedBy uint) (*models.Trainee, error) {
	var trainee *models.Trainee
	var previous time.Time
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		trainee, err = tx.Trainees().GetByRef(ctx, in.Trainee)
		if err != nil {
			return err
		}
		if trainee.Status != models.TraineeStaying {
			return models.ErrInvalidState
		}
		if !in.NewCheckOutDate.After(trainee.ExpectedCheckOutDate) {
			return models.ErrInvalidDate
		}

		previous = trainee.ExpectedCheckOutDate
		trainee.ExpectedCheckOutDate = in.NewCheckOutDate
		trainee.Status = models.TraineeExtended
		return tx.Trainees().Update(ctx, trainee)
	})
	if err != nil {
		return nil, err
	}

	writeAudit(ctx, s.store, s.log, performedBy, "stay_extend",
		fmt.Sprintf("Extended stay of trainee %s to %s", trainee.TraineeCode, in.NewCheckOutDate.Format("2006-01-02")),
		map[string]interface{}{
			"traineeId": string(trainee.TraineeCode),
			"from":      previous.Format(time.RFC3339),
			"to":        in.NewCheckOutDate.Format(time.RFC3339),
			"reason":    in.Reason,
		})
	return trainee, nil
}

// Checkout closes a stay: the bed is freed, amenities come back as used and
// the trainee record is kept as checked out.
func (s *AllocationService) Checkout(ctx context.Context, ref models.TraineeRef, performedBy uint) (*CheckoutResult, error) {
	started := time.Now()
	res, err := s.checkout(ctx, ref, performedBy)
	var result *Result
	if res != nil {
		result = &res.Result
	}
	s.observe("checkout", started, result, err)
	return res, err
}

func (s *AllocationService) checkout(ctx context.Context, ref models.TraineeRef, performedBy uint) (*CheckoutResult, error) {
	var trainee *models.Trainee
	var released *models.RoomKey
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		trainee, err = tx.Trainees().GetByRef(ctx, ref)
		if err != nil {
			return err
		}
		if trainee.Status == models.TraineeCheckedOut {
			return models.ErrAlreadyCheckedOut
		}
		if released, err = s.releaseBed(ctx, tx, trainee); err != nil {
			return err
		}

		checkedOut := s.now()
		trainee.Status = models.TraineeCheckedOut
		trainee.CheckOutDate = &checkedOut
		trainee.ClearRoom()
		return tx.Trainees().Update(ctx, trainee)
	})
	if err != nil {
		return nil, err
	}

	result := newResult()
	for i := range trainee.Amenities {
		line := &trainee.Amenities[i]
		if !line.Returnable() {
			continue
		}
		if err := s.returnAmenity(ctx, trainee.TraineeCode, line, models.ConditionUsed, performedBy, true); err != nil {
			s.amenityFailed(&result, "checkout", trainee.TraineeCode, line.Name, line.InventoryItemID, line.Quantity, err)
		}
	}

	room := ""
	if released != nil {
		room = released.String()
	}
	s.log.Info("Trainee checked out",
		zap.String("trainee_id", string(trainee.TraineeCode)),
		zap.String("room", room),
		zap.String("outcome", string(result.Outcome)),
	)
	writeAudit(ctx, s.store, s.log, performedBy, "trainee_checkout",
		fmt.Sprintf("Checked out trainee %s (%s)", trainee.TraineeCode, trainee.Name),
		auditMetadata(trainee.TraineeCode, result, map[string]interface{}{"room": room}))

	return &CheckoutResult{Result: result, Trainee: trainee}, nil
}

// releaseBed removes the trainee from the room it is recorded in. A room
// that no longer exists is skipped.
func (s *AllocationService) releaseBed(ctx context.Context, tx repository.Store, trainee *models.Trainee) (*models.RoomKey, error) {
	key, ok := trainee.Room()
	if !ok {
		return nil, nil
	}

	room, err := tx.Rooms().GetByKeyForUpdate(ctx, key)
	if errors.Is(err, models.ErrRoomNotFound) {
		s.log.Warn("Trainee references a missing room",
			zap.String("trainee_id", string(trainee.TraineeCode)),
			zap.String("room", key.String()),
		)
		return &key, nil
	}
	if err != nil {
		return nil, err
	}

	if room.RemoveOccupant(trainee.TraineeCode) {
		if err := tx.Rooms().RemoveOccupant(ctx, room.ID, trainee.TraineeCode); err != nil {
			return nil, err
		}
	}
	return &key, tx.Rooms().Update(ctx, room)
}

// allocateAmenity draws one amenity line from inventory and marks the line
// as allocated. line is only modified when the transaction commits.
func (s *AllocationService) allocateAmenity(ctx context.Context, trainee *models.Trainee, line *models.TraineeAmenity, itemID *uint, performedBy uint) error {
	updated := *line
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		item, err := resolveItem(ctx, tx, itemID, line.Name)
		if err != nil {
			return err
		}
		entry, err := item.Allocate(line.Quantity, trainee.TraineeCode, trainee.RoomNumber, performedBy, s.now())
		if err != nil {
			return err
		}
		if err := tx.Inventory().Update(ctx, item); err != nil {
			return err
		}
		if err := appendLedger(ctx, tx, item, entry); err != nil {
			return err
		}

		id := item.ID
		updated.InventoryItemID = &id
		updated.Allocated = true
		return tx.Trainees().SaveAmenity(ctx, &updated)
	})
	if err != nil {
		return err
	}
	*line = updated
	return nil
}

// returnAmenity puts an allocated amenity line back into inventory. With
// keepLine the line stays on the trainee, marked as no longer allocated.
func (s *AllocationService) returnAmenity(ctx context.Context, code models.TraineeCode, line *models.TraineeAmenity, condition models.ReturnCondition, performedBy uint, keepLine bool) error {
	updated := *line
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		item, err := tx.Inventory().GetByIDForUpdate(ctx, *line.InventoryItemID)
		if err != nil {
			return err
		}
		entry, err := item.Return(line.Quantity, code, condition, performedBy, s.now())
		if err != nil {
			return err
		}
		if err := tx.Inventory().Update(ctx, item); err != nil {
			return err
		}
		if err := appendLedger(ctx, tx, item, entry); err != nil {
			return err
		}
		if !keepLine {
			return nil
		}
		updated.Allocated = false
		return tx.Trainees().SaveAmenity(ctx, &updated)
	})
	if err != nil {
		return err
	}
	*line = updated
	return nil
}

// amenityLines turns requested amenities into trainee amenity rows. Lines
// requested by id without a name take the item's name when it can be read.
func (s *AllocationService) amenityLines(ctx context.Context, requests []AmenityRequest, now time.Time) []models.TraineeAmenity {
	lines := make([]models.TraineeAmenity, 0, len(requests))
	for _, req := range requests {
		name := strings.TrimSpace(req.Name)
		if name == "" && req.ItemID != nil {
			if item, err := s.store.Inventory().GetByID(ctx, *req.ItemID, false); err == nil {
				name = item.Name
			} else {
				name = fmt.Sprintf("item #%d", *req.ItemID)
			}
		}
		quantity := req.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		lines = append(lines, models.TraineeAmenity{
			Name:          name,
			Quantity:      quantity,
			AllocatedDate: now,
		})
	}
	return lines
}

func (s *AllocationService) amenityFailed(result *Result, operation string, code models.TraineeCode, name string, itemID *uint, quantity int, err error) {
	s.log.Warn("Amenity bookkeeping failed",
		zap.String("operation", operation),
		zap.String("trainee_id", string(code)),
		zap.String("amenity", name),
		zap.Int("quantity", quantity),
		zap.Error(err),
	)
	s.metrics.AmenityFailure(operation)
	result.fail(AmenityIssue{Name: name, ItemID: itemID, Quantity: quantity, Reason: err.Error()})
}

func (s *AllocationService) observe(operation string, started time.Time, result *Result, err error) {
	outcome := metrics.ResultSuccess
	switch {
	case err != nil:
		outcome = metrics.ResultError
	case result != nil && result.Outcome == OutcomePartial:
		outcome = metrics.ResultPartial
	}
	s.metrics.ObserveOperation(operation, outcome, started)
}

func validateAllocation(in AllocateInput) error {
	if !in.Room.Valid() {
		return models.ErrInvalidRoom
	}
	if in.BedNumber < 1 || in.BedNumber > models.MaxBedsPerRoom {
		return models.ErrInvalidBed
	}
	if !in.Trainee.CheckInDate.IsZero() && in.Trainee.ExpectedCheckOutDate.Before(in.Trainee.CheckInDate) {
		return models.ErrInvalidStay
	}
	for _, a := range in.Trainee.Amenities {
		if a.ItemID == nil && strings.TrimSpace(a.Name) == "" {
			return models.ErrInvalidAmenity
		}
	}
	return nil
}

// checkBed verifies that bed in room can be taken. self is the trainee
// moving within the room, if any; its current bed does not count against
// room capacity but asking for that same bed is still a conflict.
func checkBed(room *models.Room, bed int, self models.TraineeCode) error {
	_, inRoom := room.OccupantOf(self)
	if self == "" || !inRoom {
		if !room.IsAvailable() {
			return models.ErrRoomUnavailable
		}
	} else if room.Status != models.RoomOccupied && room.Status != models.RoomVacant {
		return models.ErrRoomUnavailable
	}
	if bed < 1 || bed > room.Beds {
		return models.ErrInvalidBed
	}
	if _, taken := room.BedHolder(bed); taken {
		return models.ErrBedOccupied
	}
	return nil
}

// lockRooms locks the destination room, and the source room when it
// differs, in (block, number) order so concurrent transfers cannot deadlock.
// A missing source room is tolerated; a missing destination is not.
func lockRooms(ctx context.Context, tx repository.Store, dest, source models.RoomKey, withSource bool) (map[models.RoomKey]*models.Room, error) {
	keys := []models.RoomKey{dest}
	if withSource {
		keys = append(keys, source)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Block != keys[j].Block {
			return keys[i].Block < keys[j].Block
		}
		return keys[i].Number < keys[j].Number
	})

	rooms := make(map[models.RoomKey]*models.Room, len(keys))
	for _, key := range keys {
		room, err := tx.Rooms().GetByKeyForUpdate(ctx, key)
		if errors.Is(err, models.ErrRoomNotFound) && key != dest {
			continue
		}
		if err != nil {
			return nil, err
		}
		rooms[key] = room
	}
	return rooms, nil
}

func resolveItem(ctx context.Context, tx repository.Store, itemID *uint, name string) (*models.InventoryItem, error) {
	if itemID != nil {
		return tx.Inventory().GetByIDForUpdate(ctx, *itemID)
	}
	found, err := tx.Inventory().FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return tx.Inventory().GetByIDForUpdate(ctx, found.ID)
}

func auditMetadata(code models.TraineeCode, result Result, extra map[string]interface{}) map[string]interface{} {
	meta := map[string]interface{}{
		"traineeId": string(code),
		"outcome":   string(result.Outcome),
	}
	if len(result.AmenityIssues) > 0 {
		issues := make([]map[string]interface{}, 0, len(result.AmenityIssues))
		for _, issue := range result.AmenityIssues {
			issues = append(issues, map[string]interface{}{
				"name":     issue.Name,
				"quantity": issue.Quantity,
				"reason":   issue.Reason,
			})
		}
		meta["amenityIssues"] = issues
	}
	for k, v := range extra {
		meta[k] = v
	}
	return meta
}
