// A payout that names a source contribution settles that contribution once
// the transfer completes. The linkage is asynchronous and at-least-once:
// marking settled is idempotent, so a redelivered event changes nothing.
package worker

import (
	"encoding/json"
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dumelo/kolo/internal/handler"
	"github.com/dumelo/kolo/internal/helper"
	"github.com/dumelo/kolo/internal/stream"
)

func (wk *Worker) SettlementWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: settlementGroupID,
		Topic:   PayoutCompletedTopic,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	defer consumer.Close() // Ensure cleanup

	for {
		select {
		case <-wk.Ctx.Done():
			log.Println("SettlementWorker received cancellation signal, shutting down...")
			return
		default:
			// Poll for Kafka events
			event := consumer.Poll(100)
			switch e := event.(type) {
			case *kafka.Message:
				message := e.Value
				var payoutEvent *handler.CompletedTransactionEvent
				json.Unmarshal(message, &payoutEvent)

				wk.settleSourceContribution(payoutEvent)
				wk.sendPayoutAlert(payoutEvent)
			case kafka.Error:
				log.Printf("Error: %v\n", e)
			case *kafka.AssignedPartitions:
				consumer.Assign(e.Partitions)
			case *kafka.RevokedPartitions:
				consumer.Unassign()
			}
		}
	}
}

func (wk *Worker) settleSourceContribution(payoutEvent *handler.CompletedTransactionEvent) bool {
	if payoutEvent == nil || payoutEvent.SourceContributionID == "" {
		// payouts without a source contribution draw from the jar's pooled
		// balance; nothing to settle
		return true
	}

	contribution, found, err := wk.TransactionRepo.GetOne(payoutEvent.SourceContributionID)
	if err != nil {
		log.Printf("Error finding source contribution %s: %v", payoutEvent.SourceContributionID, err)
		return false
	}

	if !found {
		log.Printf("Source contribution %s for payout %s no longer exists", payoutEvent.SourceContributionID, payoutEvent.TransactionID)
		return false
	}

	if contribution.IsSettled {
		// redelivered event; the first delivery did the work
		return true
	}

	err = wk.TransactionRepo.MarkSettled(contribution.ID)
	if err != nil {
		log.Printf("Error marking contribution %s as settled: %v", contribution.ID, err)
		return false
	}

	log.Printf("Contribution %s settled by payout %s", contribution.ID, payoutEvent.TransactionID)
	return true
}

func (wk *Worker) sendPayoutAlert(payoutEvent *handler.CompletedTransactionEvent) bool {
	if payoutEvent == nil {
		return false
	}

	jar, found, err := wk.JarRepo.GetOne(payoutEvent.JarID)
	if err != nil || !found {
		log.Printf("Error finding jar %s for payout alert: %v", payoutEvent.JarID, err)
		return false
	}

	creator, found, err := wk.UserRepo.GetOne(jar.CreatorID)
	if err != nil || !found {
		log.Printf("Error finding jar creator for payout alert: %v", err)
		return false
	}

	wk.Helper.BackgroundTask(nil, func() error {
		emailData := wk.Helper.NewEmailData()
		emailData["Name"] = creator.FirstName + " " + creator.LastName
		emailData["JarName"] = jar.Name
		emailData["Amount"] = helper.FormatAmount(jar.Currency, payoutEvent.Amount)
		emailData["AccountNumber"] = creator.AccountNumber.String
		emailData["TransactionID"] = payoutEvent.Reference

		err = wk.Mailer.Send(creator.Email, emailData, "payout-alert.tmpl")
		if err != nil {
			log.Printf("Error sending payout alert: %v", err)
			return err
		}

		return nil
	})

	return true
}
