package handler

import (
	dctx "context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/dumelo/kolo/internal/context"
	"github.com/dumelo/kolo/internal/fees"
	"github.com/dumelo/kolo/internal/gateway"
	"github.com/dumelo/kolo/internal/lifecycle"
	"github.com/dumelo/kolo/internal/repository"
	"github.com/dumelo/kolo/internal/request"
	"github.com/dumelo/kolo/internal/response"
	"github.com/dumelo/kolo/internal/validator"
)

type TransactionResponseData struct {
	ID             string  `json:"id"`
	JarID          string  `json:"jar_id"`
	Type           string  `json:"type"`
	Amount         float64 `json:"amount"`
	PaymentMethod  string  `json:"payment_method"`
	PaymentStatus  string  `json:"payment_status"`
	Reference      string  `json:"reference"`
	IsSettled      bool    `json:"is_settled"`
	ViaPaymentLink bool    `json:"via_payment_link"`

	AmountPaidByContributor float64 `json:"amount_paid_by_contributor"`
	PlatformCharge          float64 `json:"platform_charge"`
	ProviderCharge          float64 `json:"provider_charge"`

	ContributorName string `json:"contributor_name,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func newTransactionResponseData(transaction *repository.Transaction) *TransactionResponseData {
	return &TransactionResponseData{
		ID:                      transaction.ID,
		JarID:                   transaction.JarID,
		Type:                    transaction.Type,
		Amount:                  transaction.Amount,
		PaymentMethod:           transaction.PaymentMethod,
		PaymentStatus:           transaction.PaymentStatus,
		Reference:               transaction.Reference,
		IsSettled:               transaction.IsSettled,
		ViaPaymentLink:          transaction.ViaPaymentLink,
		AmountPaidByContributor: transaction.AmountPaidByContributor,
		PlatformCharge:          transaction.PlatformCharge,
		ProviderCharge:          transaction.ProviderCharge,
		ContributorName:         transaction.ContributorName.String,
		CreatedAt:               transaction.CreatedAt.Format(time.RFC3339),
	}
}

// CompletedTransactionEvent is the payload produced to Kafka when a
// transaction reaches completed; the receipt and settlement workers
// consume it.
type CompletedTransactionEvent struct {
	TransactionID        string  `json:"transaction_id"`
	JarID                string  `json:"jar_id"`
	Type                 string  `json:"type"`
	Amount               float64 `json:"amount"`
	Reference            string  `json:"reference"`
	SourceContributionID string  `json:"source_contribution_id,omitempty"`
}

// HandleCreateContribution records money entering a jar.
//
// To record a contribution, we need to
// Step 1: Validate the input and locate the jar
// Step 2: Check the jar is open and, for gateway methods, that the creator
// has a withdrawal account on file — money must have somewhere to go
// Step 3: Price the contribution with the current fee settings
// Step 4: Persist the transaction with its breakdown attached
// Step 5: Either kick off the gateway charge (mobile money / card) or,
// for collector-recorded methods, complete immediately and recount the jar
func (h *RouteHandler) HandleCreateContribution(w http.ResponseWriter, r *http.Request) {
	type ContributionInput struct {
		ContributorName  string              `json:"contributor_name"`
		ContributorPhone string              `json:"contributor_phone_number"`
		PaymentMethod    string              `json:"payment_method"`
		Amount           float64             `json:"amount"`
		Validator        validator.Validator `json:"-"`
	}

	var input ContributionInput

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	viaPaymentLink := false
	jarID := r.PathValue("id")

	var jar *repository.Jar
	var found bool

	if jarID != "" {
		jar, found, err = h.JarRepo.GetOne(jarID)
	} else {
		// public payment-link route carries a short code instead of an id
		viaPaymentLink = true
		jar, found, err = h.JarRepo.GetByShortCode(r.PathValue("code"))
	}

	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if !found {
		response.JSONErrorResponse(w, nil, ErrJarNotFound.Error(), http.StatusNotFound, nil)
		return
	}

	input.Validator.Check(input.Amount > 0, "Amount must be greater than zero")
	input.Validator.Check(validator.NotBlank(input.ContributorPhone), "Contributor phone number is required")
	input.Validator.Check(validator.In(input.PaymentMethod,
		lifecycle.MethodMobileMoney,
		lifecycle.MethodCard,
		lifecycle.MethodCash,
		lifecycle.MethodBankTransfer,
	), "Payment method is not supported")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	if !jar.AcceptsContributions() {
		response.JSONErrorResponse(w, nil, ErrJarNotAcceptingContributions.Error(), http.StatusUnprocessableEntity, nil)
		return
	}

	// gateway methods need the creator's withdrawal account configured
	// before any money is collected
	if input.PaymentMethod == lifecycle.MethodMobileMoney || input.PaymentMethod == lifecycle.MethodCard {
		creator, found, err := h.UserRepo.GetOne(jar.CreatorID)
		if err != nil {
			h.ErrHandler.ServerError(w, r, err)
			return
		}

		if !found || !creator.HasWithdrawalAccount() {
			response.JSONErrorResponse(w, nil, ErrAccountNotConfigured.Error(), http.StatusUnprocessableEntity, nil)
			return
		}
	}

	settings, err := h.SettingsRepo.GetFeeSettings()
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	creatorPaysFees := jar.WhoPaysFees == repository.JarCreatorPaysFees
	charges, err := fees.CalculateContributionCharges(input.Amount, creatorPaysFees, settings)
	if err != nil {
		if errors.Is(err, fees.ErrInvalidAmount) {
			h.ErrHandler.BadRequest(w, r, err)
			return
		}
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	reference, err := h.Helper.GenerateReference()
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	newTransaction := &repository.Transaction{
		JarID:          jar.ID,
		Type:           lifecycle.TypeContribution,
		Amount:         charges.CreditedAmount,
		PaymentMethod:  input.PaymentMethod,
		PaymentStatus:  lifecycle.InitialStatus(input.PaymentMethod),
		Reference:      reference,
		ViaPaymentLink: viaPaymentLink,

		AmountPaidByContributor: charges.Breakdown.AmountPaidByContributor,
		PlatformCharge:          charges.Breakdown.PlatformCharge,
		ProviderCharge:          charges.Breakdown.ProviderCharge,
		PlatformRevenue:         charges.Breakdown.PlatformRevenue,

		ContributorName:  sql.NullString{String: input.ContributorName, Valid: input.ContributorName != ""},
		ContributorPhone: sql.NullString{String: input.ContributorPhone, Valid: true},
	}

	if collector := context.ContextGetAuthenticatedUser(r); collector != nil {
		newTransaction.CollectorID = sql.NullString{String: collector.ID, Valid: true}
	}

	transaction, err := h.TransactionRepo.Insert(newTransaction, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if transaction.PaymentStatus == lifecycle.StatusCompleted {
		// collector-recorded methods are already settled; recount now and
		// let the receipt worker pick it up
		h.Aggregator.Recalculate(jar.ID)
		h.produceCompletedEvent(transaction)
	} else if input.PaymentMethod == lifecycle.MethodMobileMoney {
		ctx, cancel := dctx.WithTimeout(r.Context(), 20*time.Second)
		defer cancel()

		err = h.Eganow.Collect(ctx, &gateway.EganowCollectionRequest{
			Amount:      charges.Breakdown.AmountPaidByContributor,
			Currency:    jar.Currency,
			PhoneNumber: input.ContributorPhone,
			Reference:   transaction.Reference,
			Narration:   "Contribution to " + jar.Name,
		})
		if err != nil {
			// the transaction stays pending; the webhook (or a retry by
			// the contributor) resolves it
			log.Printf("Error initiating momo collection for %s: %v", transaction.Reference, err)
			response.JSONErrorResponse(w, nil, ErrGatewayUnavailable.Error(), http.StatusBadGateway, nil)
			return
		}
	}

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.ActivityRepo.Insert(&repository.ActivityLog{
			UserID:      jar.CreatorID,
			Entity:      repository.ActivityLogTransactionEntity,
			EntityId:    transaction.ID,
			Description: TransactionActivityLogContributionDescription,
		})

		if err != nil {
			log.Printf("Error logging contribution action: %v", err)
			return err
		}
		return nil
	})

	message := "Contribution recorded successfully"

	err = response.JSONCreatedResponse(w, newTransactionResponseData(transaction), message)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *RouteHandler) produceCompletedEvent(transaction *repository.Transaction) {
	event := &CompletedTransactionEvent{
		TransactionID:        transaction.ID,
		JarID:                transaction.JarID,
		Type:                 transaction.Type,
		Amount:               transaction.Amount,
		Reference:            transaction.Reference,
		SourceContributionID: transaction.SourceContributionID.String,
	}

	jsonMessage, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error encoding completed transaction event: %v", err)
		return
	}

	topic := contributionCompletedTopic
	if transaction.Type == lifecycle.TypePayout {
		topic = payoutCompletedTopic
	}

	go h.Kafka.ProduceMessage(topic, string(jsonMessage))
}
