package handler

import (
	dctx "context"
	"database/sql"
	"io"
	"log/slog"
	"sync"

	"github.com/dumelo/kolo/internal/config"
	"github.com/dumelo/kolo/internal/errHandler"
	"github.com/dumelo/kolo/internal/fees"
	"github.com/dumelo/kolo/internal/gateway"
	"github.com/dumelo/kolo/internal/helper"
	"github.com/dumelo/kolo/internal/jarbalance"
	"github.com/dumelo/kolo/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
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
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*repository.Jar), args.Bool(1), args.Error(2)
}

func (m *MockJarRepo) GetByShortCode(code string) (*repository.Jar, bool, error) {
	return nil, false, nil
}

func (m *MockJarRepo) ListByCreator(creatorID string) ([]repository.Jar, bool, error) {
	return nil, false, nil
}

func (m *MockJarRepo) ListAllIDs() ([]string, error) {
	return nil, nil
}

func (m *MockJarRepo) Update(jar *repository.Jar) error {
	return nil
}

func (m *MockJarRepo) UpdateStatus(id, status, reason string) error {
	return nil
}

func (m *MockJarRepo) SetCoverImage(id, imageURL string) error {
	return nil
}

func (m *MockJarRepo) UpdateAggregates(id string, totalContributed float64, contributionCount int) error {
	args := m.Called(id, totalContributed, contributionCount)
	return args.Error(0)
}

func (m *MockJarRepo) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockTransactionRepo implements TransactionRepository.
type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) Insert(transaction *repository.Transaction, tx *sqlx.Tx) (*repository.Transaction, error) {
	args := m.Called(transaction, tx)
	return args.Get(0).(*repository.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) GetOne(id string) (*repository.Transaction, bool, error) {
	return nil, false, nil
}

func (m *MockTransactionRepo) FindByReference(reference string) (*repository.Transaction, bool, error) {
	args := m.Called(reference)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*repository.Transaction), args.Bool(1), args.Error(2)
}

func (m *MockTransactionRepo) UpdateStatus(id, status string) (bool, error) {
	args := m.Called(id, status)
	return args.Bool(0), args.Error(1)
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

// MockUserRepo implements UserRepository.
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Insert(user *repository.User, tx *sqlx.Tx) (string, error) {
	return "", nil
}

func (m *MockUserRepo) GetOne(id string) (*repository.User, bool, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*repository.User), args.Bool(1), args.Error(2)
}

func (m *MockUserRepo) GetByEmail(email string) (*repository.User, bool, error) {
	return nil, false, nil
}

func (m *MockUserRepo) CheckIfPhoneNumberExist(phoneNumber string) (bool, error) {
	return false, nil
}

func (m *MockUserRepo) SetWithdrawalAccount(id, accountNumber, accountBank, accountNetwork string) error {
	return nil
}

func (m *MockUserRepo) Lock(id string) error {
	return nil
}

type MockActivityRepo struct {
	mock.Mock
}

func (m *MockActivityRepo) Insert(log *repository.ActivityLog) (*repository.ActivityLog, error) {
	return &repository.ActivityLog{}, nil
}

func (m *MockActivityRepo) CountConsecutiveFailedLoginAttempts(userID, actionDesc string) int {
	return 0
}

type MockSettingsRepo struct{}

func (m *MockSettingsRepo) GetFeeSettings() (fees.Settings, error) {
	return fees.Settings{
		ProviderFeePercent:       1.95,
		PlatformFeePercent:       2.00,
		TransferFeePercent:       0.50,
		PlatformTransferFeeShare: 0.25,
	}, nil
}

func (m *MockSettingsRepo) UpdateFeeSettings(settings fees.Settings) error {
	return nil
}

type MockStream struct{}

func (m *MockStream) ProduceMessage(topic, message string) error {
	return nil
}

type MockEganow struct {
	mock.Mock
}

func (m *MockEganow) Collect(ctx dctx.Context, collection *gateway.EganowCollectionRequest) error {
	args := m.Called(collection)
	return args.Error(0)
}

type MockPaystack struct {
	mock.Mock
}

func (m *MockPaystack) InitiateTransfer(ctx dctx.Context, transfer *gateway.PaystackTransferRequest) error {
	args := m.Called(transfer)
	return args.Error(0)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type testHandlerMocks struct {
	UserRepo        *MockUserRepo
	JarRepo         *MockJarRepo
	TransactionRepo *MockTransactionRepo
	ActivityRepo    *MockActivityRepo
	Eganow          *MockEganow
	Paystack        *MockPaystack
}

func newTestHandler() (*RouteHandler, *testHandlerMocks) {
	mocks := &testHandlerMocks{
		UserRepo:        new(MockUserRepo),
		JarRepo:         new(MockJarRepo),
		TransactionRepo: new(MockTransactionRepo),
		ActivityRepo:    new(MockActivityRepo),
		Eganow:          new(MockEganow),
		Paystack:        new(MockPaystack),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	baseURL := "http://localhost"
	var wg sync.WaitGroup

	errorHandler := errHandler.New("", nil, logger, baseURL)
	helperRepo := helper.New(&baseURL, &wg, errorHandler)

	cfg := &config.Config{BaseURL: baseURL}
	cfg.Jwt.SecretKey = "test_secret"

	routeHandler := NewRouteHandler(&RouteHandler{
		UserRepo:        mocks.UserRepo,
		JarRepo:         mocks.JarRepo,
		TransactionRepo: mocks.TransactionRepo,
		ActivityRepo:    mocks.ActivityRepo,
		SettingsRepo:    &MockSettingsRepo{},

		ErrHandler: errorHandler,
		Helper:     helperRepo,
		Config:     cfg,
		Kafka:      &MockStream{},
		Aggregator: jarbalance.New(mocks.JarRepo, mocks.TransactionRepo, logger),
		Eganow:     mocks.Eganow,
		Paystack:   mocks.Paystack,
	})

	return routeHandler, mocks
}
