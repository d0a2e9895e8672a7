package helper

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/dumelo/kolo/internal/errHandler"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type HelperRepository struct {
	baseUrl    *string
	WG         *sync.WaitGroup
	errHandler *errHandler.ErrorHandler
}

func New(baseUrl *string, wg *sync.WaitGroup, errHandler *errHandler.ErrorHandler) *HelperRepository {
	return &HelperRepository{
		baseUrl:    baseUrl,
		WG:         wg,
		errHandler: errHandler,
	}
}

func (h *HelperRepository) NewEmailData() map[string]any {
	data := map[string]any{
		"BaseURL": h.baseUrl,
	}

	return data
}

func (h *HelperRepository) BackgroundTask(r *http.Request, fn func() error) {
	h.WG.Add(1)

	go func() {
		defer h.WG.Done()

		defer func() {
			err := recover()
			if err != nil {
				h.errHandler.ReportServerError(nil, fmt.Errorf("%s", err))
			}
		}()

		err := fn()
		if err != nil {
			h.errHandler.ReportServerError(nil, err)
		}
	}()
}

// FormatAmount renders a money value with grouping for emails and receipts,
// e.g. "GHS 12,345.67".
func FormatAmount(currency string, amount float64) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%s %.2f", currency, amount)
}

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateReference produces a unique transaction reference, e.g.
// "KOLO-20260830-7GXK2M". The timestamp keeps references sortable; the
// random suffix keeps them unguessable.
func (h *HelperRepository) GenerateReference() (string, error) {
	suffix := make([]byte, 6)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceAlphabet))))
		if err != nil {
			return "", err
		}
		suffix[i] = referenceAlphabet[n.Int64()]
	}

	return fmt.Sprintf("KOLO-%s-%s", time.Now().UTC().Format("20060102"), suffix), nil
}

// GenerateShortCode produces the public payment-link code for a jar.
func (h *HelperRepository) GenerateShortCode() (string, error) {
	code := make([]byte, 8)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = referenceAlphabet[n.Int64()]
	}

	return string(code), nil
}
