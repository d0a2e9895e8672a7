package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dumelo/kolo/internal/context"
	"github.com/dumelo/kolo/internal/lifecycle"
	"github.com/dumelo/kolo/internal/repository"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func initiatePayoutRequest(t *testing.T, routeHandler *RouteHandler, jarID string, user *repository.User, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()

	requestBody, _ := json.Marshal(body)

	req, err := http.NewRequest("POST", "/jars/"+jarID+"/payouts", bytes.NewBuffer(requestBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.SetPathValue("id", jarID)
	req = context.ContextSetAuthenticatedUser(req, user)

	rr := httptest.NewRecorder()
	routeHandler.HandleInitiatePayout(rr, req)

	return rr
}

func TestHandleInitiatePayout_CreatesPendingTransfer(t *testing.T) {
	routeHandler, mocks := newTestHandler()

	creator := &repository.User{
		ID:            "creator-1",
		Role:          repository.UserRoleMember,
		AccountNumber: nullString("0241234567"),
	}

	jar := &repository.Jar{
		ID:        "jar-1",
		Name:      "School fees",
		Currency:  "GHS",
		Status:    repository.JarStatusOpen,
		CreatorID: "creator-1",
	}

	mocks.JarRepo.On("GetOne", "jar-1").Return(jar, true, nil)
	mocks.TransactionRepo.On("SumCompletedContributions", "jar-1").Return(1000.00, nil)

	mocks.TransactionRepo.On("Insert", mock.Anything, mock.Anything).
		Return(&repository.Transaction{
			ID:            "txn-3",
			JarID:         "jar-1",
			Type:          lifecycle.TypePayout,
			Amount:        500.00,
			PaymentStatus: lifecycle.StatusPending,
			Reference:     "KOLO-20260830-CCCCCC",
			CollectorID:   sql.NullString{String: "creator-1", Valid: true},
		}, nil)

	mocks.Paystack.On("InitiateTransfer", mock.Anything).Return(nil)

	rr := initiatePayoutRequest(t, routeHandler, "jar-1", creator, map[string]any{
		"amount": 500,
	})

	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string]any
	err := json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)

	data := response["data"].(map[string]any)
	require.Equal(t, lifecycle.StatusPending, data["payment_status"])
	require.Equal(t, lifecycle.TypePayout, data["type"])

	mocks.Paystack.AssertExpectations(t)
	mocks.TransactionRepo.AssertExpectations(t)
}

func TestHandleInitiatePayout_InsufficientBalanceRejected(t *testing.T) {
	routeHandler, mocks := newTestHandler()

	creator := &repository.User{
		ID:            "creator-1",
		Role:          repository.UserRoleMember,
		AccountNumber: nullString("0241234567"),
	}

	jar := &repository.Jar{
		ID:        "jar-1",
		Status:    repository.JarStatusOpen,
		CreatorID: "creator-1",
	}

	mocks.JarRepo.On("GetOne", "jar-1").Return(jar, true, nil)
	mocks.TransactionRepo.On("SumCompletedContributions", "jar-1").Return(100.00, nil)

	rr := initiatePayoutRequest(t, routeHandler, "jar-1", creator, map[string]any{
		"amount": 500,
	})

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	mocks.TransactionRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	mocks.Paystack.AssertNotCalled(t, "InitiateTransfer", mock.Anything)
}

func TestHandleInitiatePayout_NoWithdrawalAccountRejected(t *testing.T) {
	routeHandler, mocks := newTestHandler()

	creator := &repository.User{
		ID:   "creator-1",
		Role: repository.UserRoleMember,
	}

	jar := &repository.Jar{
		ID:        "jar-1",
		Status:    repository.JarStatusOpen,
		CreatorID: "creator-1",
	}

	mocks.JarRepo.On("GetOne", "jar-1").Return(jar, true, nil)

	rr := initiatePayoutRequest(t, routeHandler, "jar-1", creator, map[string]any{
		"amount": 50,
	})

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	mocks.TransactionRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestHandleInitiatePayout_NonCreatorForbidden(t *testing.T) {
	routeHandler, mocks := newTestHandler()

	stranger := &repository.User{
		ID:            "someone-else",
		Role:          repository.UserRoleMember,
		AccountNumber: nullString("0241234567"),
	}

	jar := &repository.Jar{
		ID:        "jar-1",
		Status:    repository.JarStatusOpen,
		CreatorID: "creator-1",
	}

	mocks.JarRepo.On("GetOne", "jar-1").Return(jar, true, nil)

	rr := initiatePayoutRequest(t, routeHandler, "jar-1", stranger, map[string]any{
		"amount": 50,
	})

	require.Equal(t, http.StatusForbidden, rr.Code)
	mocks.TransactionRepo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}
