package handler

import (
	"log"
	"net/http"

	"github.com/dumelo/kolo/internal/context"
	"github.com/dumelo/kolo/internal/fees"
	"github.com/dumelo/kolo/internal/lifecycle"
	"github.com/dumelo/kolo/internal/repository"
	"github.com/dumelo/kolo/internal/request"
	"github.com/dumelo/kolo/internal/response"
	"github.com/dumelo/kolo/internal/validator"
)

// HandleFreezeJar suspends a jar. A frozen jar rejects contributions and
// payouts until an admin unfreezes it.
func (h *RouteHandler) HandleFreezeJar(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Reason    string              `json:"reason"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Reason), "Reason is required")
	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	admin := context.ContextGetAuthenticatedUser(r)

	jar, found, err := h.JarRepo.GetOne(r.PathValue("id"))
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if !found {
		response.JSONErrorResponse(w, nil, ErrJarNotFound.Error(), http.StatusNotFound, nil)
		return
	}

	err = h.JarRepo.UpdateStatus(jar.ID, repository.JarStatusFrozen, input.Reason)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.ActivityRepo.Insert(&repository.ActivityLog{
			UserID:      admin.ID,
			Entity:      repository.ActivityLogJarEntity,
			EntityId:    jar.ID,
			Description: JarActivityLogFrozenDescription,
		})

		if err != nil {
			log.Printf("Error logging jar freeze action: %v", err)
			return err
		}
		return nil
	})

	message := "Jar frozen successfully"

	err = response.JSONOkResponse(w, nil, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *RouteHandler) HandleUnfreezeJar(w http.ResponseWriter, r *http.Request) {
	admin := context.ContextGetAuthenticatedUser(r)

	jar, found, err := h.JarRepo.GetOne(r.PathValue("id"))
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if !found {
		response.JSONErrorResponse(w, nil, ErrJarNotFound.Error(), http.StatusNotFound, nil)
		return
	}

	if jar.Status != repository.JarStatusFrozen {
		response.JSONErrorResponse(w, nil, "Jar is not frozen", http.StatusUnprocessableEntity, nil)
		return
	}

	err = h.JarRepo.UpdateStatus(jar.ID, repository.JarStatusOpen, "")
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	h.Helper.BackgroundTask(r, func() error {
		_, err := h.ActivityRepo.Insert(&repository.ActivityLog{
			UserID:      admin.ID,
			Entity:      repository.ActivityLogJarEntity,
			EntityId:    jar.ID,
			Description: JarActivityLogUnfrozenDescription,
		})

		if err != nil {
			log.Printf("Error logging jar unfreeze action: %v", err)
			return err
		}
		return nil
	})

	message := "Jar unfrozen successfully"

	err = response.JSONOkResponse(w, nil, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleListTransactions gives admins a filterable view of the ledger.
func (h *RouteHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	queryValues := retrieveUrlQueryValues(r)

	filter := &repository.TransactionFilter{
		JarID:     r.URL.Query().Get("jar_id"),
		Type:      r.URL.Query().Get("type"),
		Status:    r.URL.Query().Get("status"),
		StartDate: queryValues.StartDate,
		EndDate:   queryValues.EndDate,
		Limit:     queryValues.Limit,
		Offset:    queryValues.Offset,
	}

	transactions, err := h.TransactionRepo.List(filter)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	data := make([]*TransactionResponseData, len(transactions))
	for i := range transactions {
		data[i] = newTransactionResponseData(&transactions[i])
	}

	message := "Transactions retrieved successfully"

	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *RouteHandler) HandleGetFeeSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.SettingsRepo.GetFeeSettings()
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	message := "Fee settings retrieved successfully"

	err = response.JSONOkResponse(w, settings, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

func (h *RouteHandler) HandleUpdateFeeSettings(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ProviderFeePercent       float64             `json:"provider_fee_percent"`
		PlatformFeePercent       float64             `json:"platform_fee_percent"`
		TransferFeePercent       float64             `json:"transfer_fee_percent"`
		PlatformTransferFeeShare float64             `json:"platform_transfer_fee_share"`
		Validator                validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.ErrHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(input.ProviderFeePercent >= 0, "Provider fee percent cannot be negative")
	input.Validator.Check(input.PlatformFeePercent >= 0, "Platform fee percent cannot be negative")
	input.Validator.Check(input.TransferFeePercent >= 0, "Transfer fee percent cannot be negative")
	input.Validator.Check(input.PlatformTransferFeeShare >= 0, "Platform transfer fee share cannot be negative")
	input.Validator.Check(input.PlatformTransferFeeShare <= input.TransferFeePercent, "Platform share cannot exceed the transfer fee")

	if input.Validator.HasErrors() {
		h.ErrHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	settings := fees.Settings{
		ProviderFeePercent:       input.ProviderFeePercent,
		PlatformFeePercent:       input.PlatformFeePercent,
		TransferFeePercent:       input.TransferFeePercent,
		PlatformTransferFeeShare: input.PlatformTransferFeeShare,
	}

	err = h.SettingsRepo.UpdateFeeSettings(settings)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	message := "Fee settings updated successfully"

	err = response.JSONOkResponse(w, settings, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleRecalculateCharges re-prices every mobile-money transaction with the
// current fee settings. Cash and bank-transfer entries never carried gateway
// fees, so they are skipped by construction.
func (h *RouteHandler) HandleRecalculateCharges(w http.ResponseWriter, r *http.Request) {
	settings, err := h.SettingsRepo.GetFeeSettings()
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	transactions, err := h.TransactionRepo.ListMobileMoney()
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	updated := 0
	for i := range transactions {
		transaction := &transactions[i]

		var breakdown fees.Breakdown
		var amount float64

		switch transaction.Type {
		case lifecycle.TypeContribution:
			jar, found, err := h.JarRepo.GetOne(transaction.JarID)
			if err != nil || !found {
				log.Printf("Skipping charge recalculation for %s, jar lookup failed: %v", transaction.ID, err)
				continue
			}

			charges, err := fees.CalculateContributionCharges(
				transaction.Amount,
				jar.WhoPaysFees == repository.JarCreatorPaysFees,
				settings,
			)
			if err != nil {
				log.Printf("Skipping charge recalculation for %s: %v", transaction.ID, err)
				continue
			}
			breakdown = charges.Breakdown
			amount = charges.CreditedAmount

		case lifecycle.TypePayout:
			charges, err := fees.CalculatePayoutCharges(transaction.Amount, settings)
			if err != nil {
				log.Printf("Skipping charge recalculation for %s: %v", transaction.ID, err)
				continue
			}
			breakdown = charges.Breakdown
			amount = transaction.Amount

		default:
			continue
		}

		err = h.TransactionRepo.UpdateCharges(transaction.ID, breakdown, amount)
		if err != nil {
			log.Printf("Error updating charges for %s: %v", transaction.ID, err)
			continue
		}
		updated++
	}

	message := "Charges recalculated"

	err = response.JSONOkResponse(w, map[string]int{"updated": updated}, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}

// HandleRecalculateJarTotals runs a full recount over every jar. Useful
// after data repairs or a charge recalculation sweep.
func (h *RouteHandler) HandleRecalculateJarTotals(w http.ResponseWriter, r *http.Request) {
	recounted, err := h.Aggregator.RecalculateAll()
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	message := "Jar totals recalculated"

	err = response.JSONOkResponse(w, map[string]int{"recounted": recounted}, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
