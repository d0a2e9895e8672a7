package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/dumelo/kolo/internal/lifecycle"
	"github.com/dumelo/kolo/internal/repository"
	"github.com/dumelo/kolo/internal/response"
)

// webhookPayload is the common shape we pull out of each provider's
// callback. Providers disagree on field names, so every spelling we have
// seen is accepted.
type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`

	Reference      string `json:"reference"`
	TransactionRef string `json:"transaction_ref"`
	Status         string `json:"status"`
}

func (p *webhookPayload) reference() string {
	if p.Data.Reference != "" {
		return p.Data.Reference
	}
	if p.Reference != "" {
		return p.Reference
	}
	return p.TransactionRef
}

func (p *webhookPayload) status() string {
	if p.Data.Status != "" {
		return p.Data.Status
	}
	return p.Status
}

// HandleGatewayWebhook processes asynchronous status callbacks from the
// payment providers.
//
// Gateways retry until they see a 200, so every outcome that isn't a
// malformed payload returns 200 — including duplicates, out-of-order
// deliveries, and statuses we ignore. Only an unparsable body gets a 4xx.
func (h *RouteHandler) HandleGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")

	if !lifecycle.KnownProvider(provider) {
		response.JSONErrorResponse(w, nil, "Unknown payment provider", http.StatusNotFound, nil)
		return
	}

	var payload webhookPayload

	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil || payload.reference() == "" {
		h.ErrHandler.BadRequest(w, r, ErrMalformedWebhook)
		return
	}

	transaction, found, err := h.TransactionRepo.FindByReference(payload.reference())
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if !found {
		log.Printf("Webhook for unknown reference %q from %s", payload.reference(), provider)
		response.JSONErrorResponse(w, nil, ErrTransactionNotFound.Error(), http.StatusNotFound, nil)
		return
	}

	newStatus := lifecycle.MapProviderStatus(provider, payload.status())

	// a transient signal leaves the transaction as it is
	if newStatus == lifecycle.StatusPending {
		log.Printf("Ignoring transient webhook status %q for %s", payload.status(), transaction.Reference)
		response.JSONOkResponse(w, nil, "Acknowledged", nil)
		return
	}

	if !lifecycle.CanTransition(transaction.PaymentStatus, newStatus) {
		// duplicate or out-of-order delivery against a terminal
		// transaction; acknowledged so the gateway stops retrying,
		// never applied
		log.Printf("Ignoring webhook transition %s -> %s for %s", transaction.PaymentStatus, newStatus, transaction.Reference)
		response.JSONOkResponse(w, nil, "Acknowledged", nil)
		return
	}

	applied, err := h.TransactionRepo.UpdateStatus(transaction.ID, newStatus)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
		return
	}

	if !applied {
		// lost the race to a concurrent delivery; the winner did the work
		log.Printf("Webhook update for %s not applied, already terminal", transaction.Reference)
		response.JSONOkResponse(w, nil, "Acknowledged", nil)
		return
	}

	if newStatus == lifecycle.StatusCompleted {
		if transaction.Type == lifecycle.TypeContribution {
			// membership of the completed-contribution set changed;
			// recount errors are logged, never surfaced
			h.Aggregator.Recalculate(transaction.JarID)
		}
		transaction.PaymentStatus = newStatus
		h.produceCompletedEvent(transaction)
	}

	h.Helper.BackgroundTask(r, func() error {
		description := TransactionActivityLogCompletedDescription
		if newStatus == lifecycle.StatusFailed {
			description = TransactionActivityLogFailedDescription
		}

		_, err := h.ActivityRepo.Insert(&repository.ActivityLog{
			UserID:      transaction.CollectorID.String,
			Entity:      repository.ActivityLogTransactionEntity,
			EntityId:    transaction.ID,
			Description: description,
		})

		if err != nil {
			log.Printf("Error logging webhook transition: %v", err)
			return err
		}
		return nil
	})

	message := "Webhook processed"

	err = response.JSONOkResponse(w, nil, message, nil)
	if err != nil {
		h.ErrHandler.ServerError(w, r, err)
	}
}
