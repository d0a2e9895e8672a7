package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitialStatus(t *testing.T) {
	// collector-recorded methods are already settled at creation
	require.Equal(t, StatusCompleted, InitialStatus(MethodCash))
	require.Equal(t, StatusCompleted, InitialStatus(MethodBankTransfer))

	require.Equal(t, StatusPending, InitialStatus(MethodMobileMoney))
	require.Equal(t, StatusPending, InitialStatus(MethodCard))
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusPending, false},
		{StatusCompleted, StatusFailed, false},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusCompleted, false},
		{StatusFailed, StatusCompleted, false},
		{StatusFailed, StatusFailed, false},
		{"transferred", StatusFailed, false},
		{StatusPending, "garbage", false},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestIsTerminal(t *testing.T) {
	require.True(t, IsTerminal(StatusCompleted))
	require.True(t, IsTerminal(StatusFailed))
	require.True(t, IsTerminal("transferred"))
	require.False(t, IsTerminal(StatusPending))
}

func TestNormalizeStatus(t *testing.T) {
	require.Equal(t, StatusCompleted, NormalizeStatus("transferred"))
	require.Equal(t, StatusPending, NormalizeStatus(StatusPending))
	require.Equal(t, StatusFailed, NormalizeStatus(StatusFailed))
}

func TestMapProviderStatus(t *testing.T) {
	require.Equal(t, StatusCompleted, MapProviderStatus(ProviderPaystack, "success"))
	require.Equal(t, StatusCompleted, MapProviderStatus(ProviderPaystack, "SUCCESS"))
	require.Equal(t, StatusFailed, MapProviderStatus(ProviderPaystack, "abandoned"))
	require.Equal(t, StatusPending, MapProviderStatus(ProviderPaystack, "processing"))

	require.Equal(t, StatusCompleted, MapProviderStatus(ProviderEganow, "SUCCESSFUL"))
	require.Equal(t, StatusFailed, MapProviderStatus(ProviderEganow, "declined"))
	require.Equal(t, StatusPending, MapProviderStatus(ProviderEganow, "initiated"))
}

func TestMapProviderStatus_UnknownSignalsStayPending(t *testing.T) {
	// never complete a transaction on a signal we don't positively recognise
	require.Equal(t, StatusPending, MapProviderStatus(ProviderPaystack, "something_new"))
	require.Equal(t, StatusPending, MapProviderStatus(ProviderEganow, ""))
	require.Equal(t, StatusPending, MapProviderStatus("unknown_provider", "success"))
}

func TestKnownProvider(t *testing.T) {
	require.True(t, KnownProvider(ProviderPaystack))
	require.True(t, KnownProvider(ProviderEganow))
	require.False(t, KnownProvider("stripe"))
}
