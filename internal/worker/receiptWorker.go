// Every completed contribution earns the jar creator an email receipt. The
// transaction record was created synchronously on the write path; this worker
// only handles the notification side.
package worker

import (
	"encoding/json"
	"log"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/dumelo/kolo/internal/handler"
	"github.com/dumelo/kolo/internal/helper"
	"github.com/dumelo/kolo/internal/stream"
)

func (wk *Worker) ReceiptWorker() {
	consumer, err := wk.KafkaStream.CreateConsumer(&stream.StreamConsumer{
		GroupId: receiptGroupID,
		Topic:   ContributionCompletedTopic,
	})

	if err != nil {
		log.Fatalf("Error creating consumer: %v", err)
	}
	defer consumer.Close() // Ensure cleanup

	for {
		select {
		case <-wk.Ctx.Done():
			log.Println("ReceiptWorker received cancellation signal, shutting down...")
			return
		default:
			// Poll for Kafka events
			event := consumer.Poll(100)
			switch e := event.(type) {
			case *kafka.Message:
				message := e.Value
				var contributionEvent *handler.CompletedTransactionEvent
				json.Unmarshal(message, &contributionEvent)

				wk.sendContributionReceipt(contributionEvent)
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

func (wk *Worker) sendContributionReceipt(contributionEvent *handler.CompletedTransactionEvent) bool {
	if contributionEvent == nil {
		return false
	}

	jar, found, err := wk.JarRepo.GetOne(contributionEvent.JarID)
	if err != nil || !found {
		log.Printf("Error finding jar %s for contribution receipt: %v", contributionEvent.JarID, err)
		return false
	}

	creator, found, err := wk.UserRepo.GetOne(jar.CreatorID)
	if err != nil || !found {
		log.Printf("Error finding jar creator for contribution receipt: %v", err)
		return false
	}

	transaction, found, err := wk.TransactionRepo.GetOne(contributionEvent.TransactionID)
	if err != nil || !found {
		log.Printf("Error finding transaction %s for contribution receipt: %v", contributionEvent.TransactionID, err)
		return false
	}

	wk.Helper.BackgroundTask(nil, func() error {
		emailData := wk.Helper.NewEmailData()
		emailData["Name"] = creator.FirstName + " " + creator.LastName
		emailData["JarName"] = jar.Name
		emailData["Amount"] = helper.FormatAmount(jar.Currency, transaction.Amount)
		emailData["ContributorName"] = transaction.ContributorName.String
		emailData["TransactionID"] = transaction.Reference
		emailData["JarTotal"] = helper.FormatAmount(jar.Currency, jar.TotalContributed)

		err = wk.Mailer.Send(creator.Email, emailData, "contribution-receipt.tmpl")
		if err != nil {
			log.Printf("Error sending contribution receipt: %v", err)
			return err
		}

		return nil
	})

	return true
}
