package worker

import (
	"context"

	"github.com/dumelo/kolo/internal/helper"
	"github.com/dumelo/kolo/internal/repository"
	"github.com/dumelo/kolo/internal/smtp"
	"github.com/dumelo/kolo/internal/stream"
)

type Worker struct {
	KafkaStream     *stream.KafkaStream
	UserRepo        repository.UserRepository
	JarRepo         repository.JarRepository
	TransactionRepo repository.TransactionRepository
	ActivityRepo    repository.ActivityRepository
	Mailer          smtp.MailerInterface
	Helper          *helper.HelperRepository
	Ctx             context.Context
}

const (
	// receiptGroupID is used for workers that react to completed contributions
	receiptGroupID = "contribution-receipt-group"

	// settlementGroupID is used for workers that link completed payouts back
	// to the contributions they settle
	settlementGroupID = "payout-settlement-group"

	// Topics
	// ContributionCompletedTopic carries every contribution that reached the
	// completed status, whether settled synchronously (cash, bank transfer)
	// or by a gateway webhook.
	ContributionCompletedTopic = "transaction.contribution.completed"

	// PayoutCompletedTopic carries payouts confirmed by the transfer webhook.
	PayoutCompletedTopic = "transaction.payout.completed"
)

// Workers typically need the event stream, the repositories, and the mailer;
// anything worker-specific is passed as an argument to the worker itself.
func New(wk *Worker) *Worker {
	return &Worker{
		KafkaStream:     wk.KafkaStream,
		UserRepo:        wk.UserRepo,
		JarRepo:         wk.JarRepo,
		TransactionRepo: wk.TransactionRepo,
		ActivityRepo:    wk.ActivityRepo,
		Mailer:          wk.Mailer,
		Helper:          wk.Helper,
		Ctx:             wk.Ctx,
	}
}
