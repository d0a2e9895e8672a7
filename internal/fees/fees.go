// Every transaction carries exactly one charges breakdown, computed here at
// creation time. The calculator is pure: fee settings are passed in by the
// caller, never read from the environment, so historical transactions can be
// re-priced with the settings that were active when they were created.
package fees

import (
	"errors"
	"math"
)

var ErrInvalidAmount = errors.New("amount must be a positive number")

// Settings holds the platform's fee percentages. All values are percentages
// of the transaction amount, e.g. 1.95 means 1.95%.
//
// Collection (contribution) and transfer (payout) directions are configured
// independently.
type Settings struct {
	ProviderFeePercent       float64 `json:"provider_fee_percent" db:"provider_fee_percent"`
	PlatformFeePercent       float64 `json:"platform_fee_percent" db:"platform_fee_percent"`
	TransferFeePercent       float64 `json:"transfer_fee_percent" db:"transfer_fee_percent"`
	PlatformTransferFeeShare float64 `json:"platform_transfer_fee_share" db:"platform_transfer_fee_share"`
}

// Breakdown is the itemised fee decomposition persisted on a transaction.
// It is written once at creation and never rewritten by the normal flow;
// the admin recalculation sweep is the only code that replaces it.
type Breakdown struct {
	AmountPaidByContributor float64 `json:"amount_paid_by_contributor"`
	PlatformCharge          float64 `json:"platform_charge"`
	ProviderCharge          float64 `json:"provider_charge"`
	PlatformRevenue         float64 `json:"platform_revenue"`
}

// ContributionCharges is the full result of pricing a contribution.
// CreditedAmount is the canonical amount the jar is credited with and is
// what gets persisted as the transaction's amount.
type ContributionCharges struct {
	Breakdown      Breakdown
	CreditedAmount float64
}

// PayoutCharges is the full result of pricing a payout.
// NetAmount is what actually reaches the creator's withdrawal account.
type PayoutCharges struct {
	Breakdown Breakdown
	FeeAmount float64
	NetAmount float64
}

// RoundMoney rounds to 2 decimal places. Rounding happens once, at the point
// values are persisted; intermediate math stays unrounded so repeated
// calculations don't accumulate drift.
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

func validAmount(amount float64) bool {
	return amount > 0 && !math.IsNaN(amount) && !math.IsInf(amount, 0)
}

// CalculateContributionCharges prices a contribution of amount.
//
// When the contributor bears the fees, they pay amount plus both charges and
// the jar is credited the full amount. When the creator bears them, the
// contributor pays exactly amount and the jar is credited amount minus both
// charges.
func CalculateContributionCharges(amount float64, creatorPaysFees bool, settings Settings) (*ContributionCharges, error) {
	if !validAmount(amount) {
		return nil, ErrInvalidAmount
	}

	providerCharge := amount * settings.ProviderFeePercent / 100
	platformCharge := amount * settings.PlatformFeePercent / 100

	var amountPaid, credited float64
	if creatorPaysFees {
		amountPaid = amount
		credited = amount - providerCharge - platformCharge
	} else {
		amountPaid = amount + providerCharge + platformCharge
		credited = amount
	}

	return &ContributionCharges{
		Breakdown: Breakdown{
			AmountPaidByContributor: RoundMoney(amountPaid),
			PlatformCharge:          RoundMoney(platformCharge),
			ProviderCharge:          RoundMoney(providerCharge),
			// The provider charge covers the gateway's own cost; the
			// platform only earns its configured share.
			PlatformRevenue: RoundMoney(platformCharge),
		},
		CreditedAmount: RoundMoney(credited),
	}, nil
}

// CalculatePayoutCharges prices a payout of amount. The fee is split between
// the provider and the platform: the platform keeps its configured share of
// the amount, the provider gets the rest of the fee.
func CalculatePayoutCharges(amount float64, settings Settings) (*PayoutCharges, error) {
	if !validAmount(amount) {
		return nil, ErrInvalidAmount
	}

	feeAmount := amount * settings.TransferFeePercent / 100
	platformRevenue := amount * settings.PlatformTransferFeeShare / 100
	providerFee := feeAmount - platformRevenue
	netAmount := amount - feeAmount

	return &PayoutCharges{
		Breakdown: Breakdown{
			AmountPaidByContributor: RoundMoney(amount),
			PlatformCharge:          RoundMoney(feeAmount),
			ProviderCharge:          RoundMoney(providerFee),
			PlatformRevenue:         RoundMoney(platformRevenue),
		},
		FeeAmount: RoundMoney(feeAmount),
		NetAmount: RoundMoney(netAmount),
	}, nil
}
