package repository

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"hostel-management-backend/internal/models"

	"gorm.io/datatypes"
)

// MemoryStore keeps every table in process memory. It is used when no
// database is configured (DB_DRIVER=memory) and by service tests.
//
// A transaction holds the store mutex for its whole duration, so writes are
// fully serialized; a failed transaction restores the snapshot taken when it
// began.
type MemoryStore struct {
	mu    *sync.Mutex
	state *memoryState
	inTx  bool
}

type memoryState struct {
	seq         map[string]uint
	rooms       map[uint]models.Room
	occupants   map[uint]models.Occupant
	maintenance map[uint]models.MaintenanceRecord
	trainees    map[uint]models.Trainee
	amenities   map[uint]models.TraineeAmenity
	items       map[uint]models.InventoryItem
	ledger      map[uint]models.InventoryTransaction
	users       map[uint]models.User
	tokens      map[uint]models.RefreshToken
	audit       []models.AuditLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu: &sync.Mutex{},
		state: &memoryState{
			seq:         map[string]uint{},
			rooms:       map[uint]models.Room{},
			occupants:   map[uint]models.Occupant{},
			maintenance: map[uint]models.MaintenanceRecord{},
			trainees:    map[uint]models.Trainee{},
			amenities:   map[uint]models.TraineeAmenity{},
			items:       map[uint]models.InventoryItem{},
			ledger:      map[uint]models.InventoryTransaction{},
			users:       map[uint]models.User{},
			tokens:      map[uint]models.RefreshToken{},
		},
	}
}

// Stored values never share pointers with callers, so a shallow map copy
// is a complete snapshot.
func (st *memoryState) clone() *memoryState {
	return &memoryState{
		seq:         maps.Clone(st.seq),
		rooms:       maps.Clone(st.rooms),
		occupants:   maps.Clone(st.occupants),
		maintenance: maps.Clone(st.maintenance),
		trainees:    maps.Clone(st.trainees),
		amenities:   maps.Clone(st.amenities),
		items:       maps.Clone(st.items),
		ledger:      maps.Clone(st.ledger),
		users:       maps.Clone(st.users),
		tokens:      maps.Clone(st.tokens),
		audit:       append([]models.AuditLog(nil), st.audit...),
	}
}

func (st *memoryState) next(table string) uint {
	st.seq[table]++
	return st.seq[table]
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) Rooms() RoomRepository           { return memoryRooms{s} }
func (s *MemoryStore) Trainees() TraineeRepository     { return memoryTrainees{s} }
func (s *MemoryStore) Inventory() InventoryRepository { return memoryInventory{s} }
func (s *MemoryStore) Users() UserRepository           { return memoryUsers{s} }
func (s *MemoryStore) Audit() AuditRepository          { return memoryAudit{s} }

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.lock()
	defer unlock()

	snapshot := s.state.clone()
	committed := false
	defer func() {
		if !committed {
			*s.state = *snapshot
		}
	}()

	if err := fn(&MemoryStore{mu: s.mu, state: s.state, inTx: true}); err != nil {
		return err
	}
	committed = true
	return nil
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ---- rooms ----

type memoryRooms struct{ s *MemoryStore }

func (r memoryRooms) load(room models.Room, withHistory bool) models.Room {
	st := r.s.state
	room.Occupants = []models.Occupant{}
	for _, o := range st.occupants {
		if o.RoomID == room.ID {
			room.Occupants = append(room.Occupants, o)
		}
	}
	sort.Slice(room.Occupants, func(i, j int) bool {
		return room.Occupants[i].BedNumber < room.Occupants[j].BedNumber
	})
	room.MaintenanceHistory = nil
	if withHistory {
		for _, m := range st.maintenance {
			if m.RoomID == room.ID {
				room.MaintenanceHistory = append(room.MaintenanceHistory, m)
			}
		}
		sort.Slice(room.MaintenanceHistory, func(i, j int) bool {
			return room.MaintenanceHistory[i].Date.After(room.MaintenanceHistory[j].Date)
		})
	}
	return room
}

func (r memoryRooms) find(key models.RoomKey) (models.Room, bool) {
	for _, room := range r.s.state.rooms {
		if room.Number == key.Number && room.Block == key.Block {
			return room, true
		}
	}
	return models.Room{}, false
}

func (r memoryRooms) List(_ context.Context, filter RoomFilter) ([]models.Room, error) {
	defer r.s.lock()()
	rooms := []models.Room{}
	for _, room := range r.s.state.rooms {
		if filter.Block != "" && room.Block != filter.Block {
			continue
		}
		if filter.Status != "" && room.Status != filter.Status {
			continue
		}
		if filter.Type != "" && room.Type != filter.Type {
			continue
		}
		rooms = append(rooms, r.load(room, false))
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Block != rooms[j].Block {
			return rooms[i].Block < rooms[j].Block
		}
		return rooms[i].Number < rooms[j].Number
	})
	return rooms, nil
}

func (r memoryRooms) GetByKey(_ context.Context, key models.RoomKey) (*models.Room, error) {
	defer r.s.lock()()
	room, ok := r.find(key)
	if !ok {
		return nil, models.ErrRoomNotFound
	}
	loaded := r.load(room, true)
	return &loaded, nil
}

func (r memoryRooms) GetByKeyForUpdate(_ context.Context, key models.RoomKey) (*models.Room, error) {
	defer r.s.lock()()
	room, ok := r.find(key)
	if !ok {
		return nil, models.ErrRoomNotFound
	}
	loaded := r.load(room, false)
	return &loaded, nil
}

func (r memoryRooms) Create(_ context.Context, room *models.Room) error {
	defer r.s.lock()()
	if _, exists := r.find(room.Key()); exists {
		return models.ErrDuplicateRoom
	}
	st := r.s.state
	now := time.Now()
	room.ID = st.next("rooms")
	room.CreatedAt, room.UpdatedAt = now, now
	stored := *room
	stored.Occupants, stored.MaintenanceHistory = nil, nil
	st.rooms[room.ID] = stored
	return nil
}

func (r memoryRooms) Update(_ context.Context, room *models.Room) error {
	defer r.s.lock()()
	st := r.s.state
	current, ok := st.rooms[room.ID]
	if !ok {
		return models.ErrRoomNotFound
	}
	if other, exists := r.find(room.Key()); exists && other.ID != room.ID {
		return models.ErrDuplicateRoom
	}
	room.CreatedAt = current.CreatedAt
	room.UpdatedAt = time.Now()
	stored := *room
	stored.Occupants, stored.MaintenanceHistory = nil, nil
	st.rooms[room.ID] = stored
	return nil
}

func (r memoryRooms) Delete(_ context.Context, id uint) error {
	defer r.s.lock()()
	st := r.s.state
	if _, ok := st.rooms[id]; !ok {
		return models.ErrRoomNotFound
	}
	for mid, m := range st.maintenance {
		if m.RoomID == id {
			delete(st.maintenance, mid)
		}
	}
	delete(st.rooms, id)
	return nil
}

func (r memoryRooms) AddOccupant(_ context.Context, occupant *models.Occupant) error {
	defer r.s.lock()()
	st := r.s.state
	for _, o := range st.occupants {
		if (o.RoomID == occupant.RoomID && o.BedNumber == occupant.BedNumber) || o.TraineeCode == occupant.TraineeCode {
			return models.ErrBedOccupied
		}
	}
	occupant.ID = st.next("room_occupants")
	st.occupants[occupant.ID] = *occupant
	return nil
}

func (r memoryRooms) RemoveOccupant(_ context.Context, roomID uint, code models.TraineeCode) error {
	defer r.s.lock()()
	st := r.s.state
	for id, o := range st.occupants {
		if o.RoomID == roomID && o.TraineeCode == code {
			delete(st.occupants, id)
		}
	}
	return nil
}

func (r memoryRooms) AddMaintenance(_ context.Context, record *models.MaintenanceRecord) error {
	defer r.s.lock()()
	st := r.s.state
	record.ID = st.next("room_maintenance")
	st.maintenance[record.ID] = *record
	return nil
}

// ---- trainees ----

type memoryTrainees struct{ s *MemoryStore }

func detachTrainee(t models.Trainee) models.Trainee {
	t.RoomNumber = clonePtr(t.RoomNumber)
	t.Block = clonePtr(t.Block)
	t.BedNumber = clonePtr(t.BedNumber)
	t.CheckOutDate = clonePtr(t.CheckOutDate)
	t.Amenities = nil
	return t
}

func detachAmenity(a models.TraineeAmenity) models.TraineeAmenity {
	a.InventoryItemID = clonePtr(a.InventoryItemID)
	return a
}

func (r memoryTrainees) load(t models.Trainee) models.Trainee {
	t = detachTrainee(t)
	t.Amenities = []models.TraineeAmenity{}
	for _, a := range r.s.state.amenities {
		if a.TraineeID == t.ID {
			t.Amenities = append(t.Amenities, detachAmenity(a))
		}
	}
	sort.Slice(t.Amenities, func(i, j int) bool { return t.Amenities[i].ID < t.Amenities[j].ID })
	return t
}

func (r memoryTrainees) matches(t models.Trainee, f TraineeFilter) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Block != "" && (t.Block == nil || *t.Block != f.Block) {
		return false
	}
	if f.RoomNumber != nil && (t.RoomNumber == nil || *t.RoomNumber != *f.RoomNumber) {
		return false
	}
	if f.Designation != "" && t.Designation != f.Designation {
		return false
	}
	if f.Ref != "" {
		id, code := f.Ref.Parse()
		if t.ID != id && t.TraineeCode != code {
			return false
		}
	}
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		if !strings.Contains(strings.ToLower(t.Name), s) &&
			!strings.Contains(strings.ToLower(string(t.TraineeCode)), s) &&
			!strings.Contains(strings.ToLower(t.Division), s) &&
			!strings.Contains(t.Mobile, s) {
			return false
		}
	}
	if f.CheckInFrom != nil && t.CheckInDate.Before(*f.CheckInFrom) {
		return false
	}
	if f.CheckInTo != nil && t.CheckInDate.After(*f.CheckInTo) {
		return false
	}
	return true
}

func derefOr[T any](p *T, zero T) T {
	if p == nil {
		return zero
	}
	return *p
}

func (r memoryTrainees) List(_ context.Context, filter TraineeFilter) ([]models.Trainee, int64, error) {
	defer r.s.lock()()
	all := []models.Trainee{}
	for _, t := range r.s.state.trainees {
		if r.matches(t, filter) {
			all = append(all, t)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		switch filter.Sort {
		case SortCheckIn:
			if !a.CheckInDate.Equal(b.CheckInDate) {
				return a.CheckInDate.After(b.CheckInDate)
			}
			return a.ID > b.ID
		case SortRoom:
			if ab, bb := derefOr(a.Block, ""), derefOr(b.Block, ""); ab != bb {
				return ab < bb
			}
			if an, bn := derefOr(a.RoomNumber, 0), derefOr(b.RoomNumber, 0); an != bn {
				return an < bn
			}
			return derefOr(a.BedNumber, 0) < derefOr(b.BedNumber, 0)
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.ID > b.ID
		}
	})

	total := int64(len(all))
	if filter.Page.Limit > 0 {
		start := filter.Page.Offset()
		if start > len(all) {
			start = len(all)
		}
		end := start + filter.Page.Limit
		if end > len(all) {
			end = len(all)
		}
		all = all[start:end]
	}

	trainees := make([]models.Trainee, 0, len(all))
	for _, t := range all {
		trainees = append(trainees, r.load(t))
	}
	return trainees, total, nil
}

func (r memoryTrainees) GetByRef(_ context.Context, ref models.TraineeRef) (*models.Trainee, error) {
	defer r.s.lock()()
	id, code := ref.Parse()
	if t, ok := r.s.state.trainees[id]; ok && id > 0 {
		loaded := r.load(t)
		return &loaded, nil
	}
	return r.byCode(code)
}

func (r memoryTrainees) GetByCode(_ context.Context, code models.TraineeCode) (*models.Trainee, error) {
	defer r.s.lock()()
	return r.byCode(code)
}

func (r memoryTrainees) byCode(code models.TraineeCode) (*models.Trainee, error) {
	for _, t := range r.s.state.trainees {
		if t.TraineeCode == code {
			loaded := r.load(t)
			return &loaded, nil
		}
	}
	return nil, models.ErrTraineeNotFound
}

func (r memoryTrainees) Create(_ context.Context, trainee *models.Trainee) error {
	defer r.s.lock()()
	st := r.s.state
	now := time.Now()
	trainee.ID = st.next("trainees")
	trainee.TraineeCode = models.FormatTraineeCode(trainee.ID)
	trainee.CreatedAt, trainee.UpdatedAt = now, now
	st.trainees[trainee.ID] = detachTrainee(*trainee)

	for i := range trainee.Amenities {
		a := &trainee.Amenities[i]
		a.TraineeID = trainee.ID
		a.ID = st.next("trainee_amenities")
		st.amenities[a.ID] = detachAmenity(*a)
	}
	return nil
}

func (r memoryTrainees) Update(_ context.Context, trainee *models.Trainee) error {
	defer r.s.lock()()
	st := r.s.state
	current, ok := st.trainees[trainee.ID]
	if !ok {
		return models.ErrTraineeNotFound
	}
	trainee.CreatedAt = current.CreatedAt
	trainee.UpdatedAt = time.Now()
	st.trainees[trainee.ID] = detachTrainee(*trainee)
	return nil
}

func (r memoryTrainees) Delete(_ context.Context, id uint) error {
	defer r.s.lock()()
	st := r.s.state
	if _, ok := st.trainees[id]; !ok {
		return models.ErrTraineeNotFound
	}
	for aid, a := range st.amenities {
		if a.TraineeID == id {
			delete(st.amenities, aid)
		}
	}
	delete(st.trainees, id)
	return nil
}

func (r memoryTrainees) SaveAmenity(_ context.Context, amenity *models.TraineeAmenity) error {
	defer r.s.lock()()
	st := r.s.state
	if amenity.ID == 0 {
		amenity.ID = st.next("trainee_amenities")
	}
	st.amenities[amenity.ID] = detachAmenity(*amenity)
	return nil
}

func (r memoryTrainees) DeleteAmenity(_ context.Context, id uint) error {
	defer r.s.lock()()
	delete(r.s.state.amenities, id)
	return nil
}

// ---- inventory ----

type memoryInventory struct{ s *MemoryStore }

func detachItem(item models.InventoryItem) models.InventoryItem {
	item.LastRestocked = clonePtr(item.LastRestocked)
	item.Transactions = nil
	return item
}

func (r memoryInventory) List(_ context.Context, filter InventoryFilter) ([]models.InventoryItem, int64, error) {
	defer r.s.lock()()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	items := []models.InventoryItem{}
	for _, item := range r.s.state.items {
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		if filter.LowStock && !item.IsLowStock() {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(item.Name), search) {
			continue
		}
		items = append(items, detachItem(item))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		return items[i].Name < items[j].Name
	})

	total := int64(len(items))
	if filter.Page.Limit > 0 {
		start := filter.Page.Offset()
		if start > len(items) {
			start = len(items)
		}
		end := start + filter.Page.Limit
		if end > len(items) {
			end = len(items)
		}
		items = items[start:end]
	}
	return items, total, nil
}

func (r memoryInventory) GetByID(_ context.Context, id uint, withTransactions bool) (*models.InventoryItem, error) {
	defer r.s.lock()()
	st := r.s.state
	stored, ok := st.items[id]
	if !ok {
		return nil, models.ErrItemNotFound
	}
	item := detachItem(stored)
	if withTransactions {
		item.Transactions = []models.InventoryTransaction{}
		for _, tx := range st.ledger {
			if tx.ItemID == id {
				tx.RoomNumber = clonePtr(tx.RoomNumber)
				item.Transactions = append(item.Transactions, tx)
			}
		}
		sort.Slice(item.Transactions, func(i, j int) bool {
			return item.Transactions[i].ID < item.Transactions[j].ID
		})
	}
	return &item, nil
}

func (r memoryInventory) GetByIDForUpdate(ctx context.Context, id uint) (*models.InventoryItem, error) {
	return r.GetByID(ctx, id, false)
}

func (r memoryInventory) FindByName(_ context.Context, name string) (*models.InventoryItem, error) {
	defer r.s.lock()()
	want := strings.ToLower(strings.TrimSpace(name))
	var found *models.InventoryItem
	for _, item := range r.s.state.items {
		if strings.ToLower(item.Name) != want {
			continue
		}
		if found == nil || item.ID < found.ID {
			candidate := detachItem(item)
			found = &candidate
		}
	}
	if found == nil {
		return nil, models.ErrItemNotFound
	}
	return found, nil
}

func (r memoryInventory) Create(_ context.Context, item *models.InventoryItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	defer r.s.lock()()
	st := r.s.state
	now := time.Now()
	item.ID = st.next("inventory_items")
	item.CreatedAt, item.UpdatedAt = now, now
	st.items[item.ID] = detachItem(*item)
	return nil
}

func (r memoryInventory) Update(_ context.Context, item *models.InventoryItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	defer r.s.lock()()
	st := r.s.state
	current, ok := st.items[item.ID]
	if !ok {
		return models.ErrItemNotFound
	}
	item.CreatedAt = current.CreatedAt
	item.UpdatedAt = time.Now()
	st.items[item.ID] = detachItem(*item)
	return nil
}

func (r memoryInventory) Delete(_ context.Context, id uint) error {
	defer r.s.lock()()
	st := r.s.state
	if _, ok := st.items[id]; !ok {
		return models.ErrItemNotFound
	}
	for tid, tx := range st.ledger {
		if tx.ItemID == id {
			delete(st.ledger, tid)
		}
	}
	delete(st.items, id)
	return nil
}

func (r memoryInventory) AppendTransaction(_ context.Context, tx *models.InventoryTransaction) error {
	defer r.s.lock()()
	st := r.s.state
	tx.ID = st.next("inventory_transactions")
	stored := *tx
	stored.RoomNumber = clonePtr(tx.RoomNumber)
	st.ledger[tx.ID] = stored
	return nil
}

func (r memoryInventory) ListLowStock(_ context.Context) ([]models.InventoryItem, error) {
	defer r.s.lock()()
	items := []models.InventoryItem{}
	for _, item := range r.s.state.items {
		if item.IsLowStock() {
			items = append(items, detachItem(item))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].AvailableQuantity != items[j].AvailableQuantity {
			return items[i].AvailableQuantity < items[j].AvailableQuantity
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

// ---- users ----

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.state.users {
		if u.Username == username {
			user := u
			return &user, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (r memoryUsers) CreateUser(_ context.Context, user *models.User) error {
	defer r.s.lock()()
	st := r.s.state
	for _, u := range st.users {
		if u.Username == user.Username {
			return models.ErrDuplicateUser
		}
	}
	user.ID = st.next("users")
	user.CreatedAt = time.Now()
	st.users[user.ID] = *user
	return nil
}

func (r memoryUsers) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	defer r.s.lock()()
	st := r.s.state
	token.ID = st.next("refresh_tokens")
	token.CreatedAt = time.Now()
	stored := *token
	stored.User = models.User{}
	st.tokens[token.ID] = stored
	return nil
}

func (r memoryUsers) FindRefreshTokenByHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	defer r.s.lock()()
	st := r.s.state
	for _, t := range st.tokens {
		if t.TokenHash == hash && !t.Revoked {
			token := t
			token.User = st.users[t.UserID]
			return &token, nil
		}
	}
	return nil, errRefreshTokenNotFound
}

func (r memoryUsers) RevokeRefreshTokenByHash(_ context.Context, hash string) error {
	defer r.s.lock()()
	st := r.s.state
	for id, t := range st.tokens {
		if t.TokenHash == hash {
			t.Revoked = true
			st.tokens[id] = t
		}
	}
	return nil
}

// ---- audit ----

type memoryAudit struct{ s *MemoryStore }

func (r memoryAudit) CreateAuditLog(_ context.Context, userID *uint, action, details string, metadata map[string]interface{}) error {
	defer r.s.lock()()
	st := r.s.state
	entry := models.AuditLog{
		ID:        st.next("audit_logs"),
		UserID:    clonePtr(userID),
		Action:    action,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if len(metadata) > 0 {
		entry.Metadata = datatypes.JSONMap(maps.Clone(metadata))
	}
	st.audit = append(st.audit, entry)
	return nil
}

func (r memoryAudit) Recent(_ context.Context, limit int) ([]models.AuditLog, error) {
	defer r.s.lock()()
	st := r.s.state
	logs := []models.AuditLog{}
	for i := len(st.audit) - 1; i >= 0 && (limit <= 0 || len(logs) < limit); i-- {
		logs = append(logs, st.audit[i])
	}
	return logs, nil
}
