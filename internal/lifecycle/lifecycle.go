// Transactions move through a small, one-way state machine:
//
//	pending -> completed
//	pending -> failed
//
// completed and failed are terminal. Payment gateways retry webhooks and can
// deliver them out of order, so a transition reported against a terminal
// transaction is ignored by the caller, never applied.
package lifecycle

// Payment statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	// statusTransferred existed before payouts and contributions were
	// unified into one table; old rows are read as completed.
	statusTransferred = "transferred"
)

// Payment methods.
const (
	MethodMobileMoney  = "mobile_money"
	MethodCard         = "card"
	MethodCash         = "cash"
	MethodBankTransfer = "bank_transfer"
)

// Transaction types.
const (
	TypeContribution = "contribution"
	TypePayout       = "payout"
)

// Gateway providers.
const (
	ProviderEganow   = "eganow"
	ProviderPaystack = "paystack"
)

// InitialStatus returns the status a new transaction starts in. Cash and
// bank-transfer contributions are recorded by a collector after the money
// has already changed hands, so no settlement confirmation will ever arrive
// for them and they are completed on the spot. Everything else waits for
// the gateway.
func InitialStatus(paymentMethod string) string {
	switch paymentMethod {
	case MethodCash, MethodBankTransfer:
		return StatusCompleted
	default:
		return StatusPending
	}
}

func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed || status == statusTransferred
}

// CanTransition reports whether a transaction may move from one status to
// another. Terminal states never transition, and a repeat of the current
// status is not a transition.
func CanTransition(from, to string) bool {
	if IsTerminal(from) {
		return false
	}
	if from == to {
		return false
	}

	return to == StatusCompleted || to == StatusFailed
}

// NormalizeStatus maps legacy stored statuses onto the current set.
func NormalizeStatus(status string) string {
	if status == statusTransferred {
		return StatusCompleted
	}
	return status
}

// Provider status vocabularies. Anything not listed maps to pending: an
// unrecognised signal is treated as transient rather than guessed at, and
// an ambiguous terminal word maps to failed — a transaction must never be
// completed on a signal we don't positively recognise as success.
var providerStatusMap = map[string]map[string]string{
	ProviderPaystack: {
		"success":    StatusCompleted,
		"failed":     StatusFailed,
		"abandoned":  StatusFailed,
		"reversed":   StatusFailed,
		"rejected":   StatusFailed,
		"pending":    StatusPending,
		"ongoing":    StatusPending,
		"processing": StatusPending,
		"queued":     StatusPending,
	},
	ProviderEganow: {
		"successful": StatusCompleted,
		"paid":       StatusCompleted,
		"failed":     StatusFailed,
		"declined":   StatusFailed,
		"expired":    StatusFailed,
		"cancelled":  StatusFailed,
		"pending":    StatusPending,
		"initiated":  StatusPending,
	},
}

// MapProviderStatus translates a raw gateway status string into one of our
// payment statuses.
func MapProviderStatus(provider, raw string) string {
	statuses, ok := providerStatusMap[provider]
	if !ok {
		return StatusPending
	}

	status, ok := statuses[normalize(raw)]
	if !ok {
		return StatusPending
	}

	return status
}

// KnownProvider reports whether we handle webhooks for the given provider.
func KnownProvider(provider string) bool {
	_, ok := providerStatusMap[provider]
	return ok
}

func normalize(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
