package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "paycore/internal/errors"
	"paycore/internal/models"
	"paycore/internal/services/transfer"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTransferService struct {
	mock.Mock
}

func (m *MockTransferService) CreateTransfer(ctx context.Context, req transfer.CreateTransferRequest) (*models.Transfer, error) {
	args := m.Called(ctx, req)
	t, _ := args.Get(0).(*models.Transfer)
	return t, args.Error(1)
}

func (m *MockTransferService) CancelTransfer(ctx context.Context, id string, actor transfer.Actor) (*models.Transfer, error) {
	args := m.Called(ctx, id, actor)
	t, _ := args.Get(0).(*models.Transfer)
	return t, args.Error(1)
}

func (m *MockTransferService) ResolveExternalTransfer(ctx context.Context, id string, req transfer.ResolveRequest) (*models.Transfer, error) {
	args := m.Called(ctx, id, req)
	t, _ := args.Get(0).(*models.Transfer)
	return t, args.Error(1)
}

func (m *MockTransferService) ExecuteScheduled(ctx context.Context, id string) (*models.Transfer, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*models.Transfer)
	return t, args.Error(1)
}

func (m *MockTransferService) GetTransfer(ctx context.Context, id string, actor transfer.Actor) (*models.Transfer, error) {
	args := m.Called(ctx, id, actor)
	t, _ := args.Get(0).(*models.Transfer)
	return t, args.Error(1)
}

func (m *MockTransferService) ListTransfers(ctx context.Context, filter transfer.TransferFilter) (*transfer.TransferPage, error) {
	args := m.Called(ctx, filter)
	p, _ := args.Get(0).(*transfer.TransferPage)
	return p, args.Error(1)
}

func withClaims(claims *models.UserClaims) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if claims != nil {
			c.Locals("claims", claims)
		}
		return c.Next()
	}
}

func userClaims() *models.UserClaims {
	return &models.UserClaims{UserID: "u1", Role: models.RoleUser, Permissions: models.GetDefaultPermissions(models.RoleUser)}
}

func newTransferApp(svc transfer.Service, claims *models.UserClaims) *fiber.App {
	app := fiber.New()
	h := NewTransferHandler(svc)
	app.Use(withClaims(claims))
	app.Post("/transfers", h.CreateTransfer)
	app.Get("/transfers", h.ListTransfers)
	app.Get("/transfers/:id", h.GetTransfer)
	app.Post("/transfers/:id/cancel", h.CancelTransfer)
	return app
}

func decodeBody(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

const createBody = `{"type":"internal","from_account_id":"A","to_account_id":"B","amount":"25.00","currency":"EUR"}`

func TestTransferHandler_IdempotencyKeyOutlivesRequest(t *testing.T) {
	svc := new(MockTransferService)
	var refs []string
	svc.On("CreateTransfer", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			refs = append(refs, args.Get(1).(transfer.CreateTransferRequest).Reference)
		}).
		Return(&models.Transfer{ID: "t1", Status: models.TransferStatusCompleted}, nil)
	app := newTransferApp(svc, userClaims())

	for _, key := range []string{"key-aaaa", "key-bbbb", "key-cccc"} {
		req := httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(createBody))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(HeaderIdempotencyKey, key)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	}

	assert.Equal(t, []string{"key-aaaa", "key-bbbb", "key-cccc"}, refs)
}

func TestTransferHandler_CreateTransfer(t *testing.T) {
	completed := &models.Transfer{ID: "t1", Status: models.TransferStatusCompleted}
	failed := &models.Transfer{ID: "t2", Status: models.TransferStatusFailed, FailureCode: apperrors.CodeInsufficientFunds}

	tests := []struct {
		name       string
		body       string
		idemKey    string
		setupMock  func(*MockTransferService)
		wantStatus int
		wantCode   string
		check      func(*testing.T, *http.Response, map[string]interface{})
	}{
		{
			name:    "completed with idempotency key",
			body:    createBody,
			idemKey: "key-1",
			setupMock: func(m *MockTransferService) {
				m.On("CreateTransfer", mock.Anything, mock.MatchedBy(func(req transfer.CreateTransferRequest) bool {
					return req.InitiatedBy == "u1" &&
						req.Reference == "key-1" &&
						req.Amount.Equal(decimal.RequireFromString("25")) &&
						req.Type == models.TransferTypeInternal
				})).Return(completed, nil).Once()
			},
			wantStatus: fiber.StatusCreated,
		},
		{
			name: "body reference wins over header",
			body: `{"type":"internal","from_account_id":"A","to_account_id":"B","amount":"1","currency":"EUR","reference":"body-ref"}`,
			idemKey: "key-1",
			setupMock: func(m *MockTransferService) {
				m.On("CreateTransfer", mock.Anything, mock.MatchedBy(func(req transfer.CreateTransferRequest) bool {
					return req.Reference == "body-ref"
				})).Return(completed, nil).Once()
			},
			wantStatus: fiber.StatusCreated,
		},
		{
			name: "initiator cannot be spoofed",
			body: `{"initiated_by":"u2","type":"internal","from_account_id":"A","to_account_id":"B","amount":"1","currency":"EUR"}`,
			setupMock: func(m *MockTransferService) {
				m.On("CreateTransfer", mock.Anything, mock.MatchedBy(func(req transfer.CreateTransferRequest) bool {
					return req.InitiatedBy == "u1"
				})).Return(completed, nil).Once()
			},
			wantStatus: fiber.StatusCreated,
		},
		{
			name: "persisted failure returns transfer",
			body: createBody,
			setupMock: func(m *MockTransferService) {
				m.On("CreateTransfer", mock.Anything, mock.Anything).Return(failed, apperrors.ErrInsufficientFunds.WithDetail("short")).Once()
			},
			wantStatus: fiber.StatusUnprocessableEntity,
			wantCode:   apperrors.CodeInsufficientFunds,
			check: func(t *testing.T, _ *http.Response, body map[string]interface{}) {
				data, ok := body["data"].(map[string]interface{})
				require.True(t, ok)
				assert.Equal(t, "t2", data["id"])
			},
		},
		{
			name: "verification required",
			body: createBody,
			setupMock: func(m *MockTransferService) {
				m.On("CreateTransfer", mock.Anything, mock.Anything).Return(nil, apperrors.ErrVerificationRequired).Once()
			},
			wantStatus: fiber.StatusForbidden,
			wantCode:   apperrors.CodeVerificationRequired,
		},
		{
			name: "limit exceeded",
			body: createBody,
			setupMock: func(m *MockTransferService) {
				m.On("CreateTransfer", mock.Anything, mock.Anything).Return(nil, apperrors.ErrLimitExceeded).Once()
			},
			wantStatus: fiber.StatusUnprocessableEntity,
			wantCode:   apperrors.CodeLimitExceeded,
		},
		{
			name: "lock timeout is retryable",
			body: createBody,
			setupMock: func(m *MockTransferService) {
				m.On("CreateTransfer", mock.Anything, mock.Anything).Return(nil, apperrors.ErrLockTimeout).Once()
			},
			wantStatus: fiber.StatusServiceUnavailable,
			wantCode:   apperrors.CodeLockTimeout,
			check: func(t *testing.T, resp *http.Response, _ map[string]interface{}) {
				assert.Equal(t, "1", resp.Header.Get(fiber.HeaderRetryAfter))
			},
		},
		{
			name: "internal errors are not exposed",
			body: createBody,
			setupMock: func(m *MockTransferService) {
				m.On("CreateTransfer", mock.Anything, mock.Anything).
					Return(nil, apperrors.Internal(errors.New("pq: connection reset"))).Once()
			},
			wantStatus: fiber.StatusInternalServerError,
			wantCode:   apperrors.CodeInternal,
			check: func(t *testing.T, _ *http.Response, body map[string]interface{}) {
				assert.NotContains(t, body["error"], "pq")
				assert.NotContains(t, body, "detail")
			},
		},
		{
			name:       "malformed body",
			body:       `{"amount":`,
			setupMock:  func(m *MockTransferService) {},
			wantStatus: fiber.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockTransferService)
			tt.setupMock(svc)
			app := newTransferApp(svc, userClaims())

			req := httptest.NewRequest(fiber.MethodPost, "/transfers", strings.NewReader(tt.body))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			if tt.idemKey != "" {
				req.Header.Set(HeaderIdempotencyKey, tt.idemKey)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			body := decodeBody(t, resp.Body)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["code"])
			}
			if tt.check != nil {
				tt.check(t, resp, body)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestTransferHandler_RequiresClaims(t *testing.T) {
	app := newTransferApp(new(MockTransferService), nil)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/transfers/t1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestTransferHandler_GetAndCancel(t *testing.T) {
	svc := new(MockTransferService)
	actor := transfer.Actor{UserID: "u1"}
	svc.On("GetTransfer", mock.Anything, "t1", actor).Return(&models.Transfer{ID: "t1"}, nil).Once()
	svc.On("GetTransfer", mock.Anything, "nope", actor).Return(nil, apperrors.ErrNotFound).Once()
	svc.On("CancelTransfer", mock.Anything, "t1", actor).Return(nil, apperrors.ErrInvalidState).Once()
	app := newTransferApp(svc, userClaims())

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/transfers/t1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/transfers/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodPost, "/transfers/t1/cancel", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	svc.AssertExpectations(t)
}

func TestTransferHandler_ListTransfers(t *testing.T) {
	svc := new(MockTransferService)
	svc.On("ListTransfers", mock.Anything, transfer.TransferFilter{
		OwnerID:   "u1",
		AccountID: "A",
		Status:    models.TransferStatusCompleted,
		Limit:     5,
		Offset:    5,
	}).Return(&transfer.TransferPage{Transfers: []*models.Transfer{{ID: "t1"}}, Total: 11}, nil).Once()
	app := newTransferApp(svc, userClaims())

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/transfers?account_id=A&status=completed&page=2&limit=5", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, float64(11), meta["total_items"])
	assert.Equal(t, float64(3), meta["total_pages"])
	svc.AssertExpectations(t)
}
