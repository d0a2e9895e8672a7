package handler

import (
	dctx "context"
	"database/sql"
	"errors"
	"log"
	"math"
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

// HandleInitiatePayout moves money out of a jar to the creator's
// withdrawal account.
//
// Step 1: Only the jar creator can take money out
// Step 2: The creator must have a withdrawal account and the jar enough
// uncommitted balance
// Step 3: Price the payout, persist it pending, then ask the provider to
// transfer; completion arrives on the transfer webhook
func (h *RouteHandler) HandleInitiatePayout(w http.ResponseWriter, r *http.Request) {
	type PayoutInput struct {
		Amount               float64             `json:"amount"`
		SourceContributionID string              `json:"source_contribution_id"`
		Validator            validator.Validator `json:"-"`
	}

	var input PayoutInput

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	user := context.ContextGetAuthenticatedUser(r)

	jar, found, err := h.JarRepo.GetOne(r.PathValue("id"))
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if !found {
		response.JSONErrorResponse(w, nil, ErrJarNotFound.Error(), http.StatusNotFound, nil)
		return
	}

	if jar.CreatorID != user.ID && user.Role != repository.UserRoleAdmin {
		response.JSONErrorResponse(w, nil, ErrPermission.Error(), http.StatusForbidden, nil)
		return
	}

	input.Validator.Check(input.Amount > 0, "Amount must be greater than zero")
	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	if jar.Status == repository.JarStatusFrozen {
		response.JSONErrorResponse(w, nil, "Frozen jars cannot pay out", http.StatusUnprocessableEntity, nil)
		return
	}

	if !user.HasWithdrawalAccount() {
		response.JSONErrorResponse(w, nil, ErrAccountNotConfigured.Error(), http.StatusUnprocessableEntity, nil)
		return
	}

	// available balance is what has come in, completed, minus what has
	// already gone out, completed
	contributed, err := h.TransactionRepo.SumCompletedContributions(jar.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	paidOut, err := h.TransactionRepo.SumCompletedPayouts(jar.ID)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if input.Amount > contributed-paidOut {
		response.JSONErrorResponse(w, nil, ErrInsufficientFunds.Error(), http.StatusUnprocessableEntity, nil)
		return
	}

	settings, err := h.SettingsRepo.GetFeeSettings()
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	charges, err := fees.CalculatePayoutCharges(input.Amount, settings)
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
		JarID:         jar.ID,
		Type:          lifecycle.TypePayout,
		Amount:        input.Amount,
		PaymentMethod: lifecycle.MethodMobileMoney,
		PaymentStatus: lifecycle.StatusPending,
		Reference:     reference,

		AmountPaidByContributor: charges.Breakdown.AmountPaidByContributor,
		PlatformCharge:          charges.Breakdown.PlatformCharge,
		ProviderCharge:          charges.Breakdown.ProviderCharge,
		PlatformRevenue:         charges.Breakdown.PlatformRevenue,

		CollectorID:          sql.NullString{String: user.ID, Valid: true},
		SourceContributionID: sql.NullString{String: input.SourceContributionID, Valid: input.SourceContributionID != ""},
	}

	transaction, err := h.TransactionRepo.Insert(newTransaction, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	ctx, cancel := dctx.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()

	err = h.Paystack.InitiateTransfer(ctx, &gateway.PaystackTransferRequest{
		Amount:    int64(math.Round(charges.NetAmount * 100)),
		Currency:  jar.Currency,
		Recipient: user.AccountNumber.String,
		Reference: transaction.Reference,
		Reason:    "Payout from " + jar.Name,
	})
	if err != nil {
		// the payout stays pending; the transfer webhook or an admin
		// override resolves it
		log.Printf("Error initiating payout transfer for %s: %v", transaction.Reference, err)
		response.JSONErrorResponse(w, nil, ErrGatewayUnavailable.Error(), http.StatusBadGateway, nil)
		return
	}

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.ActivityRepo.Insert(&repository.ActivityLog{
			UserID:      user.ID,
			Entity:      repository.ActivityLogTransactionEntity,
			EntityId:    transaction.ID,
			Description: TransactionActivityLogPayoutDescription,
		})

		if err != nil {
			log.Printf("Error logging payout action: %v", err)
			return err
		}
		return nil
	})

	message := "Payout initiated successfully"

	err = response.JSONOkResponse(w, newTransactionResponseData(transaction), message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
