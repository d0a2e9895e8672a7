// Package gateway holds the thin clients for the payment providers we
// collect through (Eganow for mobile money) and pay out through (Paystack
// transfers). The providers confirm asynchronously over webhooks; these
// clients only initiate. A timeout or error here leaves the transaction
// pending for the webhook to resolve — it never marks anything failed.
package gateway

import (
	"errors"
)

var ErrGateway = errors.New("payment provider request failed")

const requestTimeout = 15 // seconds
