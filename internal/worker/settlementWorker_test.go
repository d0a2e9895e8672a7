package worker

import (
	"testing"

	"github.com/dumelo/kolo/internal/fees"
	"github.com/dumelo/kolo/internal/handler"
	"github.com/dumelo/kolo/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTransactionRepo implements TransactionRepository but only mocks the
// methods the settlement path touches.
type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) Insert(transaction *repository.Transaction, tx *sqlx.Tx) (*repository.Transaction, error) {
	return nil, nil
}

func (m *MockTransactionRepo) GetOne(id string) (*repository.Transaction, bool, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*repository.Transaction), args.Bool(1), args.Error(2)
}

func (m *MockTransactionRepo) FindByReference(reference string) (*repository.Transaction, bool, error) {
	return nil, false, nil
}

func (m *MockTransactionRepo) UpdateStatus(id, status string) (bool, error) {
	return false, nil
}

func (m *MockTransactionRepo) MarkSettled(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockTransactionRepo) UpdateCharges(id string, breakdown fees.Breakdown, amount float64) error {
	return nil
}

func (m *MockTransactionRepo) SumCompletedContributions(jarID string) (float64, error) {
	return 0, nil
}

func (m *MockTransactionRepo) CountCompletedContributions(jarID string) (int, error) {
	return 0, nil
}

func (m *MockTransactionRepo) SumCompletedPayouts(jarID string) (float64, error) {
	return 0, nil
}

func (m *MockTransactionRepo) ListMobileMoney() ([]repository.Transaction, error) {
	return nil, nil
}

func (m *MockTransactionRepo) List(filter *repository.TransactionFilter) ([]repository.Transaction, error) {
	return nil, nil
}

func TestSettleSourceContribution_MarksLinkedContribution(t *testing.T) {
	mockTransactionRepo := new(MockTransactionRepo)

	mockTransactionRepo.On("GetOne", "contribution-1").Return(&repository.Transaction{
		ID:        "contribution-1",
		IsSettled: false,
	}, true, nil)
	mockTransactionRepo.On("MarkSettled", "contribution-1").Return(nil)

	wk := New(&Worker{TransactionRepo: mockTransactionRepo})

	ok := wk.settleSourceContribution(&handler.CompletedTransactionEvent{
		TransactionID:        "payout-1",
		SourceContributionID: "contribution-1",
	})

	require.True(t, ok)
	mockTransactionRepo.AssertExpectations(t)
}

func TestSettleSourceContribution_RedeliveryIsIdempotent(t *testing.T) {
	mockTransactionRepo := new(MockTransactionRepo)

	mockTransactionRepo.On("GetOne", "contribution-1").Return(&repository.Transaction{
		ID:        "contribution-1",
		IsSettled: true,
	}, true, nil)

	wk := New(&Worker{TransactionRepo: mockTransactionRepo})

	ok := wk.settleSourceContribution(&handler.CompletedTransactionEvent{
		TransactionID:        "payout-1",
		SourceContributionID: "contribution-1",
	})

	require.True(t, ok)
	mockTransactionRepo.AssertNotCalled(t, "MarkSettled", mock.Anything)
}

func TestSettleSourceContribution_NoSourceIsNoOp(t *testing.T) {
	mockTransactionRepo := new(MockTransactionRepo)

	wk := New(&Worker{TransactionRepo: mockTransactionRepo})

	ok := wk.settleSourceContribution(&handler.CompletedTransactionEvent{
		TransactionID: "payout-1",
	})

	require.True(t, ok)
	mockTransactionRepo.AssertNotCalled(t, "GetOne", mock.Anything)
}
