// Package jarbalance keeps a jar's cached totals in step with its
// transaction ledger.
//
// The write path calls Recalculate after any create or status change that
// moves a transaction in or out of the completed-contribution set. Each run
// is a full recount against the ledger rather than an increment, so
// duplicate or out-of-order webhook deliveries cannot make the cache drift:
// every run independently re-derives the truth. Two concurrent runs for the
// same jar may briefly race each other's snapshots; the cached figure still
// converges because the last writer also did a full recount. That trade-off
// is deliberate and should stay.
package jarbalance

import (
	"log/slog"

	"github.com/dumelo/kolo/internal/fees"
	"github.com/dumelo/kolo/internal/repository"
)

type Aggregator struct {
	jarRepo         repository.JarRepository
	transactionRepo repository.TransactionRepository
	logger          *slog.Logger
}

func New(jarRepo repository.JarRepository, transactionRepo repository.TransactionRepository, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		jarRepo:         jarRepo,
		transactionRepo: transactionRepo,
		logger:          logger,
	}
}

// Recalculate recounts a jar's completed contributions and overwrites the
// cached sum and count. Errors are logged and swallowed: a failed recount
// must never fail the transaction write that triggered it. The cache is
// allowed to go briefly stale and heals on the next qualifying event or an
// admin sweep.
func (a *Aggregator) Recalculate(jarID string) {
	if err := a.recalculate(jarID); err != nil {
		a.logger.Error("jar total recalculation failed", "jar_id", jarID, "error", err)
	}
}

func (a *Aggregator) recalculate(jarID string) error {
	sum, err := a.transactionRepo.SumCompletedContributions(jarID)
	if err != nil {
		return err
	}

	count, err := a.transactionRepo.CountCompletedContributions(jarID)
	if err != nil {
		return err
	}

	err = a.jarRepo.UpdateAggregates(jarID, fees.RoundMoney(sum), count)
	if err != nil {
		return err
	}

	// an open jar that has reached its goal is sealed
	jar, found, err := a.jarRepo.GetOne(jarID)
	if err != nil || !found {
		return err
	}

	if jar.Status == repository.JarStatusOpen && jar.GoalAmount.Valid && sum >= jar.GoalAmount.Float64 {
		return a.jarRepo.UpdateStatus(jarID, repository.JarStatusSealed, "")
	}

	return nil
}

// RecalculateAll sweeps every jar; this backs the admin repair endpoint.
// It keeps going on individual failures and reports how many jars were
// successfully recounted.
func (a *Aggregator) RecalculateAll() (int, error) {
	ids, err := a.jarRepo.ListAllIDs()
	if err != nil {
		return 0, err
	}

	recounted := 0
	for _, id := range ids {
		if err := a.recalculate(id); err != nil {
			a.logger.Error("jar total recalculation failed", "jar_id", id, "error", err)
			continue
		}
		recounted++
	}

	return recounted, nil
}
