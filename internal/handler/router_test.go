package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"hostel-management-backend/internal/config"
	"hostel-management-backend/internal/metrics"
	"hostel-management-backend/internal/models"
	"hostel-management-backend/internal/repository"
	"hostel-management-backend/internal/service"
	"hostel-management-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.InitJWT("handler-test-secret", 15*time.Minute, 24*time.Hour)
	utils.SetPasswordCost(bcrypt.MinCost)
	os.Exit(m.Run())
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details []string        `json:"details"`
}

type testServer struct {
	router *gin.Engine
	store  *repository.MemoryStore
	svc    Services
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	log := zap.NewNop()
	m := metrics.New(prometheus.NewRegistry())
	svc := Services{
		Auth:       service.NewAuthService(store, log),
		Allocation: service.NewAllocationService(store, log, m),
		Trainees:   service.NewTraineeService(store, log),
		Rooms:      service.NewRoomService(store, log),
		Inventory:  service.NewInventoryService(store, log, m),
		Reports:    service.NewReportService(store, log),
		Worker:     service.NewWorkerService(store, log, m, time.Minute),
	}
	cfg := &config.Config{
		Server: config.ServerConfig{GinMode: gin.TestMode, MetricsEnabled: true},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
	router, err := SetupRouter(cfg, log, m, svc)
	require.NoError(t, err)
	return &testServer{router: router, store: store, svc: svc}
}

func token(t *testing.T, userID uint, role string) string {
	t.Helper()
	tok, err := utils.GenerateAccessToken(userID, role)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) seedRoom(t *testing.T, number int, block models.Block, typ models.RoomType) {
	t.Helper()
	_, err := s.svc.Rooms.CreateRoom(context.Background(), service.CreateRoomInput{Number: number, Block: block, Type: typ}, 1)
	require.NoError(t, err)
}

func allocateBody(name string, room int, block models.Block, bed int) gin.H {
	return gin.H{
		"traineeData": gin.H{
			"name":                 name,
			"designation":          "JE",
			"division":             "Electrical",
			"mobile":               "9876543210",
			"checkInDate":          "2024-01-15",
			"expectedCheckOutDate": "2024-02-15",
			"emergencyContact":     gin.H{"name": "Lata", "contact": "9000000001", "relation": "Mother"},
			"amenities":            []gin.H{{"name": "Pillow", "quantity": 1}},
		},
		"roomNumber": room,
		"block":      block,
		"bedNumber":  bed,
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hostel_http_requests_total")
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	w, _ = s.do(t, http.MethodGet, "/rooms", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(t, http.MethodGet, "/auth/me", token(t, 4, models.RoleStaff), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		UserID uint   `json:"userId"`
		Role   string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.EqualValues(t, 4, me.UserID)
	assert.Equal(t, models.RoleStaff, me.Role)
}

func TestRoleGuards(t *testing.T) {
	s := newTestServer(t)
	staff := token(t, 2, models.RoleStaff)
	manager := token(t, 3, models.RoleManager)
	body := gin.H{"number": 12, "block": "A", "type": "Double"}

	w, env := s.do(t, http.MethodPost, "/rooms", staff, body)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Insufficient permissions for this operation", env.Message)

	w, env = s.do(t, http.MethodPost, "/rooms", manager, body)
	require.Equal(t, http.StatusCreated, w.Code)
	var room models.Room
	require.NoError(t, json.Unmarshal(env.Data, &room))
	assert.Equal(t, 2, room.Beds)

	w, _ = s.do(t, http.MethodPost, "/auth/register", manager, gin.H{"username": "clerk", "password": "clerk-pass"})
	assert.Equal(t, http.StatusForbidden, w.Code, "only admins register users")

	w, _ = s.do(t, http.MethodGet, "/reports/integrity", staff, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLoginFlow(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.svc.Auth.EnsureAdmin(context.Background(), "warden", "s3cret-pass"))

	w, env := s.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "warden", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	w, env = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "warden"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Details, "password is required")

	w, env = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "warden", "password": "s3cret-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.NotEmpty(t, login.AccessToken)

	var refresh *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == refreshCookie {
			refresh = c
		}
	}
	require.NotNil(t, refresh)
	assert.True(t, refresh.HttpOnly)

	w, _ = s.do(t, http.MethodPost, "/auth/register", login.AccessToken, gin.H{"username": "clerk", "password": "clerk-pass", "role": "staff"})
	assert.Equal(t, http.StatusCreated, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(refresh)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAllocateEndpoint(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, 1, models.RoleStaff)
	s.seedRoom(t, 12, models.BlockA, models.RoomTypeDouble)

	w, env := s.do(t, http.MethodPost, "/allotments/allocate", tok, allocateBody("Asha", 12, models.BlockA, 1))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)
	assert.Contains(t, env.Message, "some amenities could not be processed", "no Pillow item exists")

	var res struct {
		Outcome string         `json:"outcome"`
		Trainee models.Trainee `json:"trainee"`
		Room    models.Room    `json:"room"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "partial", res.Outcome)
	assert.Equal(t, models.TraineeCode("ID001"), res.Trainee.TraineeCode)
	require.Len(t, res.Room.Occupants, 1)

	w, env = s.do(t, http.MethodPost, "/allotments/allocate", tok, allocateBody("Ravi", 12, models.BlockA, 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrBedOccupied.Error(), env.Message)

	w, env = s.do(t, http.MethodPost, "/allotments/allocate", tok, allocateBody("Ravi", 99, models.BlockC, 1))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ErrRoomNotFound.Error(), env.Message)
}

func TestAllocateValidation(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, 1, models.RoleStaff)

	body := allocateBody("Asha", 12, "D", 9)
	data := body["traineeData"].(gin.H)
	data["mobile"] = "12345"
	data["designation"] = "Intern"

	w, env := s.do(t, http.MethodPost, "/allotments/allocate", tok, body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Validation error", env.Message)
	assert.Contains(t, env.Details, "mobile must be a 10-digit number")
	assert.Contains(t, env.Details, "designation must be one of: SSE, JE, Tech-I, Tech-II, AJE")
	assert.Contains(t, env.Details, "block must be one of: A, B, C")
	assert.Contains(t, env.Details, "bedNumber must be at most 4")

	body = allocateBody("Asha", 12, models.BlockA, 1)
	body["traineeData"].(gin.H)["expectedCheckOutDate"] = "15/02/2024"
	w, env = s.do(t, http.MethodPost, "/allotments/allocate", tok, body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, env.Details, 1)
	assert.Contains(t, env.Details[0], "expectedCheckOutDate")

	req := httptest.NewRequest(http.MethodPost, "/allotments/allocate", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStayLifecycleEndpoints(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, 1, models.RoleStaff)
	s.seedRoom(t, 12, models.BlockA, models.RoomTypeDouble)
	s.seedRoom(t, 3, models.BlockB, models.RoomTypeSingle)

	w, _ := s.do(t, http.MethodPost, "/allotments/allocate", tok, allocateBody("Asha", 12, models.BlockA, 1))
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := s.do(t, http.MethodPost, "/allotments/extend", tok, gin.H{"traineeId": "ID001", "newCheckOutDate": "2024-02-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrInvalidDate.Error(), env.Message)

	w, _ = s.do(t, http.MethodPost, "/allotments/extend", tok, gin.H{"traineeId": "ID001", "newCheckOutDate": "2024-03-01", "reason": "Course extended"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodPost, "/allotments/transfer", tok, gin.H{"traineeId": "ID001", "newRoomNumber": 3, "newBlock": "B", "newBedNumber": 1})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodGet, "/rooms/b/3", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var room models.Room
	require.NoError(t, json.Unmarshal(env.Data, &room))
	require.Len(t, room.Occupants, 1)
	assert.Equal(t, models.TraineeCode("ID001"), room.Occupants[0].TraineeCode)

	w, _ = s.do(t, http.MethodPut, "/trainees/ID001/checkout", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, env = s.do(t, http.MethodPut, "/trainees/ID001/checkout", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrAlreadyCheckedOut.Error(), env.Message)

	w, env = s.do(t, http.MethodGet, "/allotments/history?traineeId=ID001", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Allotments []models.Trainee  `json:"allotments"`
		Pagination models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history.Allotments, 1)
	assert.Equal(t, models.TraineeCheckedOut, history.Allotments[0].Status)

	w, _ = s.do(t, http.MethodPost, "/allotments/deallocate", tok, gin.H{"traineeId": "ID001"})
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/trainees/ID001", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAmenityEndpoints(t *testing.T) {
	s := newTestServer(t)
	admin := token(t, 1, models.RoleAdmin)
	s.seedRoom(t, 12, models.BlockA, models.RoomTypeDouble)

	w, env := s.do(t, http.MethodPost, "/amenities", admin, gin.H{"name": "Pillow", "category": "linen", "totalQuantity": 5, "minimumThreshold": 1, "costPerUnit": "120.50"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var item models.InventoryItem
	require.NoError(t, json.Unmarshal(env.Data, &item))
	assert.Equal(t, 5, item.AvailableQuantity)

	w, env = s.do(t, http.MethodPost, "/allotments/allocate", admin, allocateBody("Asha", 12, models.BlockA, 1))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Room allocated successfully", env.Message)

	w, env = s.do(t, http.MethodPost, "/amenities/allocate", admin, gin.H{"itemId": item.ID, "traineeId": "ID001", "quantity": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrInsufficientQuantity.Error(), env.Message)

	w, _ = s.do(t, http.MethodPost, "/amenities/return", admin, gin.H{"itemId": item.ID, "traineeId": "ID001", "quantity": 1, "condition": "damaged"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodDelete, "/amenities/"+jsonID(item.ID), admin, nil)
	assert.Equal(t, http.StatusOK, w.Code, env.Message)

	w, _ = s.do(t, http.MethodGet, "/amenities/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportAllotmentsEndpoint(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, 1, models.RoleStaff)

	w, _ := s.do(t, http.MethodGet, "/reports/export/allotments", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "allotments-")
	assert.NotZero(t, w.Body.Len())

	w, _ = s.do(t, http.MethodGet, "/reports/export/allotments?block=Z", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportEndpoints(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, 1, models.RoleStaff)
	s.seedRoom(t, 12, models.BlockA, models.RoomTypeDouble)

	w, env := s.do(t, http.MethodGet, "/reports/occupancy", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var occupancy []service.BlockOccupancy
	require.NoError(t, json.Unmarshal(env.Data, &occupancy))
	require.Len(t, occupancy, 3)
	assert.Equal(t, 2, occupancy[0].TotalBeds)

	w, env = s.do(t, http.MethodGet, "/reports/upcoming", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", string(env.Data))

	w, _ = s.do(t, http.MethodGet, "/reports/upcoming?days=abc", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = s.do(t, http.MethodGet, "/reports/upcoming?days=365", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func jsonID(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
