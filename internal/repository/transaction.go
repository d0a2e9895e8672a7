package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dumelo/kolo/internal/fees"
	"github.com/dumelo/kolo/internal/lifecycle"
	"github.com/jmoiron/sqlx"
)

// Transaction unifies contributions and payouts in one table, discriminated
// by Type. The charges breakdown is attached at insert and never rewritten
// by the normal flow.
type Transaction struct {
	ID             string  `db:"id"`
	JarID          string  `db:"jar_id"`
	Type           string  `db:"type"`
	Amount         float64 `db:"amount"`
	PaymentMethod  string  `db:"payment_method"`
	PaymentStatus  string  `db:"payment_status"`
	Reference      string  `db:"reference"`
	IsSettled      bool    `db:"is_settled"`
	ViaPaymentLink bool    `db:"via_payment_link"`

	// charges breakdown
	AmountPaidByContributor float64 `db:"amount_paid_by_contributor"`
	PlatformCharge          float64 `db:"platform_charge"`
	ProviderCharge          float64 `db:"provider_charge"`
	PlatformRevenue         float64 `db:"platform_revenue"`

	ContributorName      sql.NullString `db:"contributor_name"`
	ContributorPhone     sql.NullString `db:"contributor_phone"`
	CollectorID          sql.NullString `db:"collector_id"`
	SourceContributionID sql.NullString `db:"source_contribution_id"`

	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at"`
}

func (t *Transaction) Breakdown() fees.Breakdown {
	return fees.Breakdown{
		AmountPaidByContributor: t.AmountPaidByContributor,
		PlatformCharge:          t.PlatformCharge,
		ProviderCharge:          t.ProviderCharge,
		PlatformRevenue:         t.PlatformRevenue,
	}
}

type TransactionFilter struct {
	JarID     string
	Type      string
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

type TransactionRepository interface {
	Insert(transaction *Transaction, tx *sqlx.Tx) (*Transaction, error)
	GetOne(id string) (*Transaction, bool, error)
	FindByReference(reference string) (*Transaction, bool, error)
	UpdateStatus(id, status string) (bool, error)
	MarkSettled(id string) error
	UpdateCharges(id string, breakdown fees.Breakdown, amount float64) error
	SumCompletedContributions(jarID string) (float64, error)
	CountCompletedContributions(jarID string) (int, error)
	SumCompletedPayouts(jarID string) (float64, error)
	ListMobileMoney() ([]Transaction, error)
	List(filter *TransactionFilter) ([]Transaction, error)
}

type TransactionRepositoryImpl struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) TransactionRepository {
	return &TransactionRepositoryImpl{db: db}
}

const transactionColumns = `id, jar_id, type, amount, payment_method, payment_status, reference,
	is_settled, via_payment_link, amount_paid_by_contributor, platform_charge,
	provider_charge, platform_revenue, contributor_name, contributor_phone,
	collector_id, source_contribution_id, created_at, updated_at`

func (repo *TransactionRepositoryImpl) Insert(transaction *Transaction, tx *sqlx.Tx) (*Transaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var created Transaction

	query := `
		INSERT INTO transactions (jar_id, type, amount, payment_method, payment_status, reference,
			via_payment_link, amount_paid_by_contributor, platform_charge, provider_charge,
			platform_revenue, contributor_name, contributor_phone, collector_id, source_contribution_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + transactionColumns

	args := []any{
		transaction.JarID,
		transaction.Type,
		transaction.Amount,
		transaction.PaymentMethod,
		transaction.PaymentStatus,
		transaction.Reference,
		transaction.ViaPaymentLink,
		transaction.AmountPaidByContributor,
		transaction.PlatformCharge,
		transaction.ProviderCharge,
		transaction.PlatformRevenue,
		transaction.ContributorName,
		transaction.ContributorPhone,
		transaction.CollectorID,
		transaction.SourceContributionID,
	}

	if tx != nil {
		err := tx.GetContext(ctx, &created, query, args...)
		if err != nil {
			return nil, err
		}
	} else {
		err := repo.db.GetContext(ctx, &created, query, args...)
		if err != nil {
			return nil, err
		}
	}

	return &created, nil
}

func (repo *TransactionRepositoryImpl) GetOne(id string) (*Transaction, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var transaction Transaction

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id=$1`

	err := repo.db.GetContext(ctx, &transaction, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	transaction.PaymentStatus = lifecycle.NormalizeStatus(transaction.PaymentStatus)

	return &transaction, true, nil
}

func (repo *TransactionRepositoryImpl) FindByReference(reference string) (*Transaction, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var transaction Transaction

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference=$1`

	err := repo.db.GetContext(ctx, &transaction, query, reference)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	transaction.PaymentStatus = lifecycle.NormalizeStatus(transaction.PaymentStatus)

	return &transaction, true, nil
}

// UpdateStatus moves a transaction to a new payment status. The WHERE clause
// only matches non-terminal rows, so a duplicate or out-of-order webhook
// against a completed/failed transaction changes nothing; the returned bool
// reports whether the update was actually applied.
func (repo *TransactionRepositoryImpl) UpdateStatus(id, status string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE transactions
		SET payment_status=$1, updated_at=now()
		WHERE id=$2 AND payment_status=$3`

	result, err := repo.db.ExecContext(ctx, query, status, id, lifecycle.StatusPending)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (repo *TransactionRepositoryImpl) MarkSettled(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE transactions SET is_settled=true, updated_at=now() WHERE id=$1`

	_, err := repo.db.ExecContext(ctx, query, id)
	return err
}

// UpdateCharges overwrites the stored breakdown. Only the admin
// recalculation sweep calls this; the normal flow treats charges as
// immutable after insert.
func (repo *TransactionRepositoryImpl) UpdateCharges(id string, breakdown fees.Breakdown, amount float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE transactions
		SET amount=$1, amount_paid_by_contributor=$2, platform_charge=$3,
		    provider_charge=$4, platform_revenue=$5, updated_at=now()
		WHERE id=$6`

	_, err := repo.db.ExecContext(ctx, query,
		amount,
		breakdown.AmountPaidByContributor,
		breakdown.PlatformCharge,
		breakdown.ProviderCharge,
		breakdown.PlatformRevenue,
		id,
	)
	return err
}

func (repo *TransactionRepositoryImpl) SumCompletedContributions(jarID string) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var sum float64

	query := `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE jar_id=$1 AND type=$2 AND payment_status=$3`

	err := repo.db.GetContext(ctx, &sum, query, jarID, lifecycle.TypeContribution, lifecycle.StatusCompleted)
	if err != nil {
		return 0, err
	}

	return sum, nil
}

func (repo *TransactionRepositoryImpl) CountCompletedContributions(jarID string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var count int

	query := `
		SELECT COUNT(*) FROM transactions
		WHERE jar_id=$1 AND type=$2 AND payment_status=$3`

	err := repo.db.GetContext(ctx, &count, query, jarID, lifecycle.TypeContribution, lifecycle.StatusCompleted)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (repo *TransactionRepositoryImpl) SumCompletedPayouts(jarID string) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var sum float64

	query := `
		SELECT COALESCE(SUM(amount), 0) FROM transactions
		WHERE jar_id=$1 AND type=$2 AND payment_status=$3`

	err := repo.db.GetContext(ctx, &sum, query, jarID, lifecycle.TypePayout, lifecycle.StatusCompleted)
	if err != nil {
		return 0, err
	}

	return sum, nil
}

// ListMobileMoney feeds the admin charges recalculation sweep; only
// mobile-money transactions are re-priced.
func (repo *TransactionRepositoryImpl) ListMobileMoney() ([]Transaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var transactions []Transaction

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE payment_method=$1 ORDER BY created_at`

	err := repo.db.SelectContext(ctx, &transactions, query, lifecycle.MethodMobileMoney)
	if err != nil {
		return nil, err
	}

	return transactions, nil
}

func (repo *TransactionRepositoryImpl) List(filter *TransactionFilter) ([]Transaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	args := []any{}

	addArg := func(clause string, value any) {
		args = append(args, value)
		query += fmt.Sprintf("%s$%d", clause, len(args))
	}

	if filter.JarID != "" {
		addArg(" AND jar_id=", filter.JarID)
	}
	if filter.Type != "" {
		addArg(" AND type=", filter.Type)
	}
	if filter.Status != "" {
		addArg(" AND payment_status=", filter.Status)
	}
	if filter.StartDate != nil {
		addArg(" AND created_at >= ", *filter.StartDate)
	}
	if filter.EndDate != nil {
		addArg(" AND created_at <= ", *filter.EndDate)
	}

	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	addArg(" LIMIT ", limit)
	addArg(" OFFSET ", filter.Offset)

	var transactions []Transaction

	err := repo.db.SelectContext(ctx, &transactions, query, args...)
	if err != nil {
		return nil, err
	}

	return transactions, nil
}
