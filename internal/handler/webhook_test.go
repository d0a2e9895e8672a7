package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dumelo/kolo/internal/lifecycle"
	"github.com/dumelo/kolo/internal/repository"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func postWebhook(t *testing.T, routeHandler *RouteHandler, provider string, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	req, err := http.NewRequest("POST", "/webhooks/"+provider, bytes.NewBuffer(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.SetPathValue("provider", provider)

	rr := httptest.NewRecorder()
	routeHandler.HandleGatewayWebhook(rr, req)

	return rr
}

func TestHandleGatewayWebhook_CompletesPendingContribution(t *testing.T) {
	routeHandler, mocks := newTestHandler()

	transaction := &repository.Transaction{
		ID:            "txn-1",
		JarID:         "jar-1",
		Type:          lifecycle.TypeContribution,
		Amount:        100.00,
		PaymentStatus: lifecycle.StatusPending,
		Reference:     "KOLO-20260830-AAAAAA",
	}

	mocks.TransactionRepo.On("FindByReference", "KOLO-20260830-AAAAAA").Return(transaction, true, nil)
	mocks.TransactionRepo.On("UpdateStatus", "txn-1", lifecycle.StatusCompleted).Return(true, nil)

	// completion triggers the recount
	mocks.TransactionRepo.On("SumCompletedContributions", "jar-1").Return(100.00, nil)
	mocks.TransactionRepo.On("CountCompletedContributions", "jar-1").Return(1, nil)
	mocks.JarRepo.On("UpdateAggregates", "jar-1", 100.00, 1).Return(nil)
	mocks.JarRepo.On("GetOne", "jar-1").Return(&repository.Jar{
		ID:     "jar-1",
		Status: repository.JarStatusOpen,
	}, true, nil)

	body, _ := json.Marshal(map[string]any{
		"reference": "KOLO-20260830-AAAAAA",
		"status":    "SUCCESSFUL",
	})

	rr := postWebhook(t, routeHandler, lifecycle.ProviderEganow, body)

	require.Equal(t, http.StatusOK, rr.Code)
	mocks.TransactionRepo.AssertExpectations(t)
	mocks.JarRepo.AssertExpectations(t)
}

func TestHandleGatewayWebhook_DuplicateDeliveryIsNoOp(t *testing.T) {
	routeHandler, mocks := newTestHandler()

	transaction := &repository.Transaction{
		ID:            "txn-1",
		JarID:         "jar-1",
		Type:          lifecycle.TypeContribution,
		PaymentStatus: lifecycle.StatusCompleted,
		Reference:     "KOLO-20260830-AAAAAA",
	}

	mocks.TransactionRepo.On("FindByReference", "KOLO-20260830-AAAAAA").Return(transaction, true, nil)

	body, _ := json.Marshal(map[string]any{
		"reference": "KOLO-20260830-AAAAAA",
		"status":    "successful",
	})

	rr := postWebhook(t, routeHandler, lifecycle.ProviderEganow, body)

	// acknowledged so the gateway stops retrying, but nothing was applied
	require.Equal(t, http.StatusOK, rr.Code)
	mocks.TransactionRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
	mocks.JarRepo.AssertNotCalled(t, "UpdateAggregates", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleGatewayWebhook_TransientStatusLeavesTransactionPending(t *testing.T) {
	routeHandler, mocks := newTestHandler()

	transaction := &repository.Transaction{
		ID:            "txn-1",
		JarID:         "jar-1",
		Type:          lifecycle.TypeContribution,
		PaymentStatus: lifecycle.StatusPending,
		Reference:     "KOLO-20260830-AAAAAA",
	}

	mocks.TransactionRepo.On("FindByReference", "KOLO-20260830-AAAAAA").Return(transaction, true, nil)

	body, _ := json.Marshal(map[string]any{
		"reference": "KOLO-20260830-AAAAAA",
		"status":    "initiated",
	})

	rr := postWebhook(t, routeHandler, lifecycle.ProviderEganow, body)

	require.Equal(t, http.StatusOK, rr.Code)
	mocks.TransactionRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
}

func TestHandleGatewayWebhook_MalformedPayloadRejected(t *testing.T) {
	routeHandler, mocks := newTestHandler()

	rr := postWebhook(t, routeHandler, lifecycle.ProviderEganow, []byte(`{"no_reference": true}`))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	mocks.TransactionRepo.AssertNotCalled(t, "FindByReference", mock.Anything)
}

func TestHandleGatewayWebhook_UnknownProviderRejected(t *testing.T) {
	routeHandler, mocks := newTestHandler()

	body, _ := json.Marshal(map[string]any{
		"reference": "KOLO-20260830-AAAAAA",
		"status":    "successful",
	})

	rr := postWebhook(t, routeHandler, "unknown-gateway", body)

	require.Equal(t, http.StatusNotFound, rr.Code)
	mocks.TransactionRepo.AssertNotCalled(t, "FindByReference", mock.Anything)
}

func TestHandleGatewayWebhook_FailureDoesNotRecount(t *testing.T) {
	routeHandler, mocks := newTestHandler()

	transaction := &repository.Transaction{
		ID:            "txn-1",
		JarID:         "jar-1",
		Type:          lifecycle.TypeContribution,
		PaymentStatus: lifecycle.StatusPending,
		Reference:     "KOLO-20260830-AAAAAA",
	}

	mocks.TransactionRepo.On("FindByReference", "KOLO-20260830-AAAAAA").Return(transaction, true, nil)
	mocks.TransactionRepo.On("UpdateStatus", "txn-1", lifecycle.StatusFailed).Return(true, nil)

	body, _ := json.Marshal(map[string]any{
		"reference": "KOLO-20260830-AAAAAA",
		"status":    "declined",
	})

	rr := postWebhook(t, routeHandler, lifecycle.ProviderEganow, body)

	// a failed charge never entered the completed set; no recount needed
	require.Equal(t, http.StatusOK, rr.Code)
	mocks.JarRepo.AssertNotCalled(t, "UpdateAggregates", mock.Anything, mock.Anything, mock.Anything)
	mocks.TransactionRepo.AssertExpectations(t)
}
