// Logging is a critical part of the system
// Every action (synchronous or asynchronous) should be logged.
// This helps in audit and will also be used to trace activites.
// ...
// We used polymorphism to define entity and entity_id
// This allow our table to be used for different part of the application
package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type ActivityRepository interface {
	Insert(log *ActivityLog) (*ActivityLog, error)
	CountConsecutiveFailedLoginAttempts(userID, actionDesc string) int
}

type ActivityLog struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Entity      string    `db:"entity"`
	EntityId    string    `db:"entity_id"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

const (
	ActivityLogUserEntity        = "user"
	ActivityLogJarEntity         = "jar"
	ActivityLogTransactionEntity = "transaction"
)

type ActivityRepositoryImpl struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) ActivityRepository {
	return &ActivityRepositoryImpl{db: db}
}

func (repo *ActivityRepositoryImpl) Insert(log *ActivityLog) (*ActivityLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var created ActivityLog

	query := `
		INSERT INTO activity_logs (user_id, entity, entity_id, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, entity, entity_id, description, created_at`

	err := repo.db.GetContext(ctx, &created, query,
		log.UserID,
		log.Entity,
		log.EntityId,
		log.Description,
	)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (repo *ActivityRepositoryImpl) CountConsecutiveFailedLoginAttempts(userID, actionDesc string) int {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var count int

	// counts the streak of most-recent matching entries, stopping at the
	// first non-matching one
	query := `
		SELECT COUNT(*) FROM (
			SELECT description FROM activity_logs
			WHERE user_id=$1 AND entity=$2
			ORDER BY created_at DESC
			LIMIT 5
		) recent
		WHERE recent.description=$3`

	err := repo.db.GetContext(ctx, &count, query, userID, ActivityLogUserEntity, actionDesc)
	if err != nil {
		return 0
	}

	return count
}
