package jarbalance

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dumelo/kolo/internal/fees"
	"github.com/dumelo/kolo/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockJarRepo implements JarRepository but only mocks the needed methods.
type MockJarRepo struct {
	mock.Mock
}

func (m *MockJarRepo) Insert(jar *repository.Jar, tx *sqlx.Tx) (string, error) {
	return "", nil
}

func (m *MockJarRepo) GetOne(id string) (*repository.Jar, bool, error) {
	args := m.Called(id)
	return args.Get(0).(*repository.Jar), args.Bool(1), args.Error(2)
}

func (m *MockJarRepo) GetByShortCode(code string) (*repository.Jar, bool, error) {
	return nil, false, nil
}

func (m *MockJarRepo) ListByCreator(creatorID string) ([]repository.Jar, bool, error) {
	return nil, false, nil
}

func (m *MockJarRepo) ListAllIDs() ([]string, error) {
	args := m.Called()
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockJarRepo) Update(jar *repository.Jar) error {
	return nil
}

func (m *MockJarRepo) UpdateStatus(id, status, reason string) error {
	args := m.Called(id, status, reason)
	return args.Error(0)
}

func (m *MockJarRepo) SetCoverImage(id, imageURL string) error {
	return nil
}

func (m *MockJarRepo) UpdateAggregates(id string, totalContributed float64, contributionCount int) error {
	args := m.Called(id, totalContributed, contributionCount)
	return args.Error(0)
}

func (m *MockJarRepo) Delete(id string) error {
	return nil
}

type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) Insert(transaction *repository.Transaction, tx *sqlx.Tx) (*repository.Transaction, error) {
	return nil, nil
}

func (m *MockTransactionRepo) GetOne(id string) (*repository.Transaction, bool, error) {
	return nil, false, nil
}

func (m *MockTransactionRepo) FindByReference(reference string) (*repository.Transaction, bool, error) {
	return nil, false, nil
}

func (m *MockTransactionRepo) UpdateStatus(id, status string) (bool, error) {
	return false, nil
}

func (m *MockTransactionRepo) MarkSettled(id string) error {
	return nil
}

func (m *MockTransactionRepo) UpdateCharges(id string, breakdown fees.Breakdown, amount float64) error {
	return nil
}

func (m *MockTransactionRepo) SumCompletedContributions(jarID string) (float64, error) {
	args := m.Called(jarID)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockTransactionRepo) CountCompletedContributions(jarID string) (int, error) {
	args := m.Called(jarID)
	return args.Int(0), args.Error(1)
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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecalculate_OverwritesCachedAggregates(t *testing.T) {
	jarRepo := new(MockJarRepo)
	transactionRepo := new(MockTransactionRepo)

	transactionRepo.On("SumCompletedContributions", "jar-1").Return(350.75, nil)
	transactionRepo.On("CountCompletedContributions", "jar-1").Return(7, nil)
	jarRepo.On("UpdateAggregates", "jar-1", 350.75, 7).Return(nil)
	jarRepo.On("GetOne", "jar-1").Return(&repository.Jar{
		ID:     "jar-1",
		Status: repository.JarStatusOpen,
	}, true, nil)

	aggregator := New(jarRepo, transactionRepo, testLogger())
	aggregator.Recalculate("jar-1")

	jarRepo.AssertExpectations(t)
	transactionRepo.AssertExpectations(t)
}

func TestRecalculate_SealsJarWhenGoalReached(t *testing.T) {
	jarRepo := new(MockJarRepo)
	transactionRepo := new(MockTransactionRepo)

	transactionRepo.On("SumCompletedContributions", "jar-1").Return(1000.00, nil)
	transactionRepo.On("CountCompletedContributions", "jar-1").Return(10, nil)
	jarRepo.On("UpdateAggregates", "jar-1", 1000.00, 10).Return(nil)
	jarRepo.On("GetOne", "jar-1").Return(&repository.Jar{
		ID:         "jar-1",
		Status:     repository.JarStatusOpen,
		GoalAmount: sql.NullFloat64{Float64: 1000, Valid: true},
	}, true, nil)
	jarRepo.On("UpdateStatus", "jar-1", repository.JarStatusSealed, "").Return(nil)

	aggregator := New(jarRepo, transactionRepo, testLogger())
	aggregator.Recalculate("jar-1")

	jarRepo.AssertExpectations(t)
}

func TestRecalculate_FrozenJarIsNotSealed(t *testing.T) {
	jarRepo := new(MockJarRepo)
	transactionRepo := new(MockTransactionRepo)

	transactionRepo.On("SumCompletedContributions", "jar-1").Return(5000.00, nil)
	transactionRepo.On("CountCompletedContributions", "jar-1").Return(3, nil)
	jarRepo.On("UpdateAggregates", "jar-1", 5000.00, 3).Return(nil)
	jarRepo.On("GetOne", "jar-1").Return(&repository.Jar{
		ID:         "jar-1",
		Status:     repository.JarStatusFrozen,
		GoalAmount: sql.NullFloat64{Float64: 1000, Valid: true},
	}, true, nil)

	aggregator := New(jarRepo, transactionRepo, testLogger())
	aggregator.Recalculate("jar-1")

	// no UpdateStatus call expected
	jarRepo.AssertExpectations(t)
}

func TestRecalculate_SwallowsErrors(t *testing.T) {
	jarRepo := new(MockJarRepo)
	transactionRepo := new(MockTransactionRepo)

	transactionRepo.On("SumCompletedContributions", "jar-1").Return(0.0, errors.New("connection reset"))

	aggregator := New(jarRepo, transactionRepo, testLogger())

	// must not panic or surface the error to the caller
	aggregator.Recalculate("jar-1")

	transactionRepo.AssertExpectations(t)
}

func TestRecalculateAll_ContinuesPastFailures(t *testing.T) {
	jarRepo := new(MockJarRepo)
	transactionRepo := new(MockTransactionRepo)

	jarRepo.On("ListAllIDs").Return([]string{"jar-1", "jar-2"}, nil)

	transactionRepo.On("SumCompletedContributions", "jar-1").Return(0.0, errors.New("timeout"))

	transactionRepo.On("SumCompletedContributions", "jar-2").Return(40.00, nil)
	transactionRepo.On("CountCompletedContributions", "jar-2").Return(2, nil)
	jarRepo.On("UpdateAggregates", "jar-2", 40.00, 2).Return(nil)
	jarRepo.On("GetOne", "jar-2").Return(&repository.Jar{ID: "jar-2", Status: repository.JarStatusOpen}, true, nil)

	aggregator := New(jarRepo, transactionRepo, testLogger())
	recounted, err := aggregator.RecalculateAll()

	require.NoError(t, err)
	require.Equal(t, 1, recounted)
	jarRepo.AssertExpectations(t)
}
