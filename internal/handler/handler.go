package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dumelo/kolo/internal/config"
	"github.com/dumelo/kolo/internal/errHandler"
	"github.com/dumelo/kolo/internal/file"
	"github.com/dumelo/kolo/internal/gateway"
	"github.com/dumelo/kolo/internal/helper"
	"github.com/dumelo/kolo/internal/jarbalance"
	"github.com/dumelo/kolo/internal/repository"
	"github.com/dumelo/kolo/internal/smtp"
)

// Business failures surfaced to clients. Validation and permission errors
// abort the write entirely; no partial transaction is ever persisted.
var (
	ErrJarNotFound         = errors.New("jar not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	ErrJarNotAcceptingContributions = errors.New("this jar is not accepting contributions at the moment")
	ErrAccountNotConfigured         = errors.New("the jar creator has not configured a withdrawal account")
	ErrPermission                   = errors.New("only the jar creator can perform this action")

	ErrJarFrozen          = errors.New("a frozen jar cannot be deleted")
	ErrJarHasFunds        = errors.New("a jar that holds contributions cannot be deleted")
	ErrInsufficientFunds  = errors.New("payout amount exceeds the jar's available balance")
	ErrGatewayUnavailable = errors.New("payment provider is unavailable, please try again")
	ErrMalformedWebhook   = errors.New("webhook payload could not be parsed")
)

// Activity log descriptions.
const (
	UserActivityLogRegistrationDescription      = "User registered"
	UserActivityLogLoginDescription             = "User logged in"
	UserActivityLogFailedLoginDescription       = "Failed login attempt"
	UserActivityLogLockedAccountDescription     = "Account locked after failed logins"
	UserActivityLogWithdrawalAccountDescription = "Withdrawal account updated"

	JarActivityLogCreatedDescription  = "Jar created"
	JarActivityLogFrozenDescription   = "Jar frozen by admin"
	JarActivityLogUnfrozenDescription = "Jar unfrozen by admin"
	JarActivityLogDeletedDescription  = "Jar deleted"

	TransactionActivityLogContributionDescription = "Contribution recorded"
	TransactionActivityLogPayoutDescription       = "Payout initiated"
	TransactionActivityLogCompletedDescription    = "Transaction completed"
	TransactionActivityLogFailedDescription       = "Transaction failed"
)

// Kafka topics produced by the write path; the workers consume them.
const (
	contributionCompletedTopic = "transaction.contribution.completed"
	payoutCompletedTopic       = "transaction.payout.completed"
)

// StreamProducer is what the handlers need from the Kafka stream.
type StreamProducer interface {
	ProduceMessage(topic, message string) error
}

// MomoCollector initiates a mobile-money charge.
type MomoCollector interface {
	Collect(ctx context.Context, collection *gateway.EganowCollectionRequest) error
}

// TransferInitiator starts a payout transfer.
type TransferInitiator interface {
	InitiateTransfer(ctx context.Context, transfer *gateway.PaystackTransferRequest) error
}

type RouteHandler struct {
	UserRepo        repository.UserRepository
	JarRepo         repository.JarRepository
	TransactionRepo repository.TransactionRepository
	ActivityRepo    repository.ActivityRepository
	SettingsRepo    repository.SettingsRepository

	ErrHandler   *errHandler.ErrorHandler
	Helper       *helper.HelperRepository
	Mailer       smtp.MailerInterface
	Config       *config.Config
	Kafka        StreamProducer
	Aggregator   *jarbalance.Aggregator
	Eganow       MomoCollector
	Paystack     TransferInitiator
	FileUploader *file.FileUploader
}

func NewRouteHandler(handler *RouteHandler) *RouteHandler {
	return handler
}

type queryStringValues struct {
	StartDate *time.Time
	EndDate   *time.Time
	Search    string
	Limit     int
	Offset    int
}

func retrieveUrlQueryValues(r *http.Request) *queryStringValues {
	var queryValues = &queryStringValues{}

	// Parse start_date if provided
	startDateStr := r.URL.Query().Get("start_date")
	if startDateStr != "" {
		parsedStart, err := time.Parse("2006-01-02", startDateStr)
		if err == nil {
			queryValues.StartDate = &parsedStart
		}
	}

	// Parse end_date if provided
	endDateStr := r.URL.Query().Get("end_date")
	if endDateStr != "" {
		parsedEnd, err := time.Parse("2006-01-02", endDateStr)
		if err == nil {
			queryValues.EndDate = &parsedEnd
		}
	}

	// Parse pagination params
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("page")

	// Default pagination values
	offset := 0
	limit := 10

	if limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}
	queryValues.Limit = limit

	if offsetStr != "" {
		if parsedOffset, err := strconv.Atoi(offsetStr); err == nil && parsedOffset >= 1 {
			offset = (parsedOffset - 1) * limit
		}
	}
	queryValues.Offset = offset

	// search params
	searchQuery := r.URL.Query().Get("search")
	queryValues.Search = searchQuery

	return queryValues
}
