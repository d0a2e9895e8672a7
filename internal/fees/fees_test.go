package fees

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

var testSettings = Settings{
	ProviderFeePercent:       1.95,
	PlatformFeePercent:       2,
	TransferFeePercent:       0.5,
	PlatformTransferFeeShare: 0.25,
}

func TestCalculateContributionCharges_ContributorPaysFees(t *testing.T) {
	charges, err := CalculateContributionCharges(100, false, testSettings)
	require.NoError(t, err)

	require.Equal(t, 2.00, charges.Breakdown.PlatformCharge)
	require.Equal(t, 1.95, charges.Breakdown.ProviderCharge)
	require.Equal(t, 103.95, charges.Breakdown.AmountPaidByContributor)
	require.Equal(t, 100.00, charges.CreditedAmount)
}

func TestCalculateContributionCharges_CreatorPaysFees(t *testing.T) {
	charges, err := CalculateContributionCharges(100, true, testSettings)
	require.NoError(t, err)

	// contributor pays face value, jar absorbs the charges
	require.Equal(t, 100.00, charges.Breakdown.AmountPaidByContributor)
	require.Equal(t, 96.05, charges.CreditedAmount)
}

func TestCalculateContributionCharges_Reconciles(t *testing.T) {
	// what the contributor pays minus both charges must always come back to
	// the original amount, within one pesewa
	amounts := []float64{0.01, 1, 33.33, 100, 250.55, 999.99, 10000, 123456.78}

	for _, amount := range amounts {
		charges, err := CalculateContributionCharges(amount, false, testSettings)
		require.NoError(t, err)

		reconciled := charges.Breakdown.AmountPaidByContributor -
			charges.Breakdown.PlatformCharge -
			charges.Breakdown.ProviderCharge

		require.InDelta(t, amount, reconciled, 0.01, "amount %v did not reconcile", amount)
	}
}

func TestCalculatePayoutCharges(t *testing.T) {
	charges, err := CalculatePayoutCharges(500, testSettings)
	require.NoError(t, err)

	require.Equal(t, 2.50, charges.FeeAmount)
	require.Equal(t, 497.50, charges.NetAmount)
	require.Equal(t, 1.25, charges.Breakdown.PlatformRevenue)
	require.Equal(t, 1.25, charges.Breakdown.ProviderCharge)
}

func TestCalculatePayoutCharges_NetPlusFeeEqualsAmount(t *testing.T) {
	amounts := []float64{0.01, 1, 50, 500, 1234.56, 99999.99}

	for _, amount := range amounts {
		charges, err := CalculatePayoutCharges(amount, testSettings)
		require.NoError(t, err)

		require.Equal(t, RoundMoney(amount), RoundMoney(charges.NetAmount+charges.FeeAmount))
	}
}

func TestCalculateCharges_InvalidAmounts(t *testing.T) {
	badAmounts := []float64{0, -1, -100.50, math.NaN(), math.Inf(1), math.Inf(-1)}

	for _, amount := range badAmounts {
		_, err := CalculateContributionCharges(amount, false, testSettings)
		require.ErrorIs(t, err, ErrInvalidAmount)

		_, err = CalculatePayoutCharges(amount, testSettings)
		require.ErrorIs(t, err, ErrInvalidAmount)
	}
}

func TestCalculateContributionCharges_ZeroFees(t *testing.T) {
	charges, err := CalculateContributionCharges(250, false, Settings{})
	require.NoError(t, err)

	require.Equal(t, 250.00, charges.Breakdown.AmountPaidByContributor)
	require.Equal(t, 0.00, charges.Breakdown.PlatformCharge)
	require.Equal(t, 250.00, charges.CreditedAmount)
}

func TestRoundMoney(t *testing.T) {
	require.Equal(t, 1.95, RoundMoney(1.9499999999))
	require.Equal(t, 2.01, RoundMoney(2.006))
	require.Equal(t, 0.00, RoundMoney(0.0049))
}
