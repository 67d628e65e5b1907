package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"hostel-management-backend/internal/models"
	"hostel-management-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	upcomingWindow  = 7 * 24 * time.Hour
	maxUpcomingDays = 90
)

// ReportService builds read-only views over rooms, trainees and inventory.
type ReportService struct {
	store repository.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewReportService(store repository.Store, log *zap.Logger) *ReportService {
	return &ReportService{
		store: store,
		log:   log.Named("reports"),
		now:   time.Now,
	}
}

type BlockOccupancy struct {
	Block         models.Block `json:"block"`
	TotalRooms    int          `json:"totalRooms"`
	OccupiedRooms int          `json:"occupiedRooms"`
	TotalBeds     int          `json:"totalBeds"`
	OccupiedBeds  int          `json:"occupiedBeds"`
	AvailableBeds int          `json:"availableBeds"`
	OccupancyRate float64      `json:"occupancyRate"`
}

type Dashboard struct {
	Occupancy         []BlockOccupancy               `json:"occupancy"`
	TraineesByStatus  map[models.TraineeStatus]int64 `json:"traineesByStatus"`
	OverdueTrainees   int                            `json:"overdueTrainees"`
	UpcomingCheckouts int                            `json:"upcomingCheckouts"`
	LowStockItems     int                            `json:"lowStockItems"`
	InventoryValue    decimal.Decimal                `json:"inventoryValue"`
	RecentActivity    []models.AuditLog              `json:"recentActivity"`
	GeneratedAt       time.Time                      `json:"generatedAt"`
}

// Dashboard gathers the summary figures concurrently.
func (s *ReportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	var (
		rooms    []models.Room
		active   []models.Trainee
		items    []models.InventoryItem
		activity []models.AuditLog
		counts   = make([]int64, 3)
	)
	statuses := []models.TraineeStatus{models.TraineeStaying, models.TraineeExtended, models.TraineeCheckedOut}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rooms, err = s.store.Rooms().List(gctx, repository.RoomFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		active, _, err = s.store.Trainees().List(gctx, repository.TraineeFilter{
			Statuses: []models.TraineeStatus{models.TraineeStaying, models.TraineeExtended},
		})
		return err
	})
	for i, status := range statuses {
		g.Go(func() error {
			_, total, err := s.store.Trainees().List(gctx, repository.TraineeFilter{
				Statuses: []models.TraineeStatus{status},
				Page:     models.PageRequest{Page: 1, Limit: 1},
			})
			counts[i] = total
			return err
		})
	}
	g.Go(func() error {
		var err error
		items, _, err = s.store.Inventory().List(gctx, repository.InventoryFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		activity, err = s.store.Audit().Recent(gctx, 10)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}

	now := s.now()
	dash := &Dashboard{
		Occupancy:        OccupancyByBlock(rooms),
		TraineesByStatus: map[models.TraineeStatus]int64{},
		InventoryValue:   decimal.Zero,
		RecentActivity:   activity,
		GeneratedAt:      now,
	}
	for i, status := range statuses {
		dash.TraineesByStatus[status] = counts[i]
	}
	for _, t := range active {
		switch {
		case t.ExpectedCheckOutDate.Before(now):
			dash.OverdueTrainees++
		case t.ExpectedCheckOutDate.Before(now.Add(upcomingWindow)):
			dash.UpcomingCheckouts++
		}
	}
	for i := range items {
		if items[i].IsLowStock() {
			dash.LowStockItems++
		}
		dash.InventoryValue = dash.InventoryValue.Add(items[i].StockValue())
	}
	return dash, nil
}

// Occupancy returns the per-block room and bed figures.
func (s *ReportService) Occupancy(ctx context.Context) ([]BlockOccupancy, error) {
	rooms, err := s.store.Rooms().List(ctx, repository.RoomFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load rooms: %w", err)
	}
	return OccupancyByBlock(rooms), nil
}

// Upcoming lists staying and extended trainees due to check out within the
// next days, soonest first. Overdue trainees are not included.
func (s *ReportService) Upcoming(ctx context.Context, days int) ([]models.Trainee, error) {
	if days < 1 || days > maxUpcomingDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", models.ErrInvalidDate, maxUpcomingDays)
	}
	active, _, err := s.store.Trainees().List(ctx, repository.TraineeFilter{
		Statuses: []models.TraineeStatus{models.TraineeStaying, models.TraineeExtended},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load trainees: %w", err)
	}

	now := s.now()
	until := now.AddDate(0, 0, days)
	upcoming := make([]models.Trainee, 0, len(active))
	for _, t := range active {
		if !t.ExpectedCheckOutDate.Before(now) && t.ExpectedCheckOutDate.Before(until) {
			upcoming = append(upcoming, t)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].ExpectedCheckOutDate.Before(upcoming[j].ExpectedCheckOutDate)
	})
	return upcoming, nil
}

// OccupancyByBlock summarizes rooms per block, in block order.
func OccupancyByBlock(rooms []models.Room) []BlockOccupancy {
	byBlock := map[models.Block]*BlockOccupancy{}
	for _, b := range models.Blocks {
		byBlock[b] = &BlockOccupancy{Block: b}
	}
	for i := range rooms {
		room := &rooms[i]
		occ, ok := byBlock[room.Block]
		if !ok {
			continue
		}
		occ.TotalRooms++
		occ.TotalBeds += room.Beds
		occ.OccupiedBeds += len(room.Occupants)
		if len(room.Occupants) > 0 {
			occ.OccupiedRooms++
		}
		if room.IsAvailable() {
			occ.AvailableBeds += room.AvailableBeds()
		}
	}

	out := make([]BlockOccupancy, 0, len(models.Blocks))
	for _, b := range models.Blocks {
		occ := byBlock[b]
		if occ.TotalBeds > 0 {
			occ.OccupancyRate = decimal.NewFromInt(int64(occ.OccupiedBeds)).
				Div(decimal.NewFromInt(int64(occ.TotalBeds))).
				Mul(decimal.NewFromInt(100)).
				Round(2).
				InexactFloat64()
		}
		out = append(out, *occ)
	}
	return out
}

var allotmentHeaders = []string{
	"Trainee ID", "Name", "Designation", "Division", "Mobile", "Block", "Room", "Bed",
	"Check-in", "Expected Check-out", "Status", "Amenities",
}

// ExportAllotments renders current allotments as an xlsx workbook.
func (s *ReportService) ExportAllotments(ctx context.Context, block models.Block) ([]byte, error) {
	trainees, _, err := s.store.Trainees().List(ctx, repository.TraineeFilter{
		Statuses: []models.TraineeStatus{models.TraineeStaying, models.TraineeExtended},
		Block:    block,
		Sort:     repository.SortRoom,
	})
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Allotments"
	index, err := f.NewSheet(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range allotmentHeaders {
		if err := setCell(f, sheet, col+1, 1, header); err != nil {
			f.Close()
			return nil, err
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(allotmentHeaders), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for i, t := range trainees {
		row := i + 2
		values := []interface{}{
			string(t.TraineeCode),
			t.Name,
			string(t.Designation),
			t.Division,
			t.Mobile,
			string(derefOr(t.Block, "")),
			derefOr(t.RoomNumber, 0),
			derefOr(t.BedNumber, 0),
			t.CheckInDate.Format("2006-01-02"),
			t.ExpectedCheckOutDate.Format("2006-01-02"),
			string(t.Status),
			amenitySummary(t.Amenities),
		}
		for col, v := range values {
			if err := setCell(f, sheet, col+1, row, v); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}

	s.log.Info("Exported allotments", zap.Int("rows", len(trainees)), zap.String("block", string(block)))
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}

func amenitySummary(lines []models.TraineeAmenity) string {
	var buf bytes.Buffer
	for i, a := range lines {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%s x%d", a.Name, a.Quantity)
	}
	return buf.String()
}

func derefOr[T any](p *T, zero T) T {
	if p == nil {
		return zero
	}
	return *p
}
