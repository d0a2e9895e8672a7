package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

type Jar struct {
	ID       string          `db:"id"`
	Name     string          `db:"name"`
	Currency string          `db:"currency"`
	Status   string          `db:"status"`
	// TotalContributed is the cached sum of completed contribution amounts.
	// ContributionCount is the matching cached count. Both are rewritten by
	// a full recount, never incremented in place.
	TotalContributed  float64         `db:"total_contributed"`
	ContributionCount int             `db:"contribution_count"`
	GoalAmount        sql.NullFloat64 `db:"goal_amount"`
	WhoPaysFees       string          `db:"who_pays_fees"`
	CreatorID         string          `db:"creator_id"`
	ShortCode         string          `db:"short_code"`
	CoverImage        sql.NullString  `db:"cover_image"`
	Deadline          sql.NullTime    `db:"deadline"`
	FreezeReason      sql.NullString  `db:"freeze_reason"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         sql.NullTime    `db:"updated_at"`
	DeletedAt         sql.NullTime    `db:"deleted_at"`
}

const (
	JarStatusOpen   = "open"
	JarStatusFrozen = "frozen"
	JarStatusBroken = "broken"
	JarStatusSealed = "sealed"

	JarCreatorPaysFees     = "creator"
	JarContributorPaysFees = "contributor"
)

// AcceptsContributions reports whether money can currently enter the jar.
func (j *Jar) AcceptsContributions() bool {
	return j.Status == JarStatusOpen
}

type JarRepository interface {
	Insert(jar *Jar, tx *sqlx.Tx) (string, error)
	GetOne(id string) (*Jar, bool, error)
	GetByShortCode(code string) (*Jar, bool, error)
	ListByCreator(creatorID string) ([]Jar, bool, error)
	ListAllIDs() ([]string, error)
	Update(jar *Jar) error
	UpdateStatus(id, status, reason string) error
	SetCoverImage(id, imageURL string) error
	UpdateAggregates(id string, totalContributed float64, contributionCount int) error
	Delete(id string) error
}

type JarRepositoryImpl struct {
	db *sqlx.DB
}

func NewJarRepository(db *sqlx.DB) JarRepository {
	return &JarRepositoryImpl{db: db}
}

const jarColumns = `id, name, currency, status, total_contributed, contribution_count,
	goal_amount, who_pays_fees, creator_id, short_code, cover_image, deadline,
	freeze_reason, created_at, updated_at`

func (repo *JarRepositoryImpl) Insert(jar *Jar, tx *sqlx.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO jars (name, currency, goal_amount, who_pays_fees, creator_id, short_code, deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if tx != nil {
		err := tx.QueryRowContext(ctx, query,
			jar.Name,
			jar.Currency,
			jar.GoalAmount,
			jar.WhoPaysFees,
			jar.CreatorID,
			jar.ShortCode,
			jar.Deadline,
		).Scan(&id)
		if err != nil {
			return "", err
		}
	} else {
		err := repo.db.GetContext(ctx, &id, query,
			jar.Name,
			jar.Currency,
			jar.GoalAmount,
			jar.WhoPaysFees,
			jar.CreatorID,
			jar.ShortCode,
			jar.Deadline,
		)

		if err != nil {
			return "", err
		}
	}

	return id, nil
}

func (repo *JarRepositoryImpl) GetOne(id string) (*Jar, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var jar Jar

	query := `SELECT ` + jarColumns + ` FROM jars WHERE id=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &jar, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &jar, true, nil
}

func (repo *JarRepositoryImpl) GetByShortCode(code string) (*Jar, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var jar Jar

	query := `SELECT ` + jarColumns + ` FROM jars WHERE short_code=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &jar, query, code)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &jar, true, nil
}

func (repo *JarRepositoryImpl) ListByCreator(creatorID string) ([]Jar, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var jars []Jar

	query := `SELECT ` + jarColumns + ` FROM jars WHERE creator_id=$1 AND deleted_at IS NULL ORDER BY created_at DESC`

	err := repo.db.SelectContext(ctx, &jars, query, creatorID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return jars, len(jars) > 0, nil
}

func (repo *JarRepositoryImpl) ListAllIDs() ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var ids []string

	query := `SELECT id FROM jars WHERE deleted_at IS NULL`

	err := repo.db.SelectContext(ctx, &ids, query)
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (repo *JarRepositoryImpl) Update(jar *Jar) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE jars
		SET name=$1, goal_amount=$2, who_pays_fees=$3, deadline=$4, updated_at=now()
		WHERE id=$5 AND deleted_at IS NULL`

	_, err := repo.db.ExecContext(ctx, query,
		jar.Name,
		jar.GoalAmount,
		jar.WhoPaysFees,
		jar.Deadline,
		jar.ID,
	)
	return err
}

func (repo *JarRepositoryImpl) UpdateStatus(id, status, reason string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE jars
		SET status=$1, freeze_reason=$2, updated_at=now()
		WHERE id=$3 AND deleted_at IS NULL`

	_, err := repo.db.ExecContext(ctx, query, status, sql.NullString{String: reason, Valid: reason != ""}, id)
	return err
}

func (repo *JarRepositoryImpl) SetCoverImage(id, imageURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE jars SET cover_image=$1, updated_at=now() WHERE id=$2 AND deleted_at IS NULL`

	_, err := repo.db.ExecContext(ctx, query, imageURL, id)
	return err
}

func (repo *JarRepositoryImpl) UpdateAggregates(id string, totalContributed float64, contributionCount int) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE jars
		SET total_contributed=$1, contribution_count=$2, updated_at=now()
		WHERE id=$3 AND deleted_at IS NULL`

	_, err := repo.db.ExecContext(ctx, query, totalContributed, contributionCount, id)
	return err
}

func (repo *JarRepositoryImpl) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE jars SET deleted_at=now() WHERE id=$1 AND deleted_at IS NULL`

	_, err := repo.db.ExecContext(ctx, query, id)
	return err
}
