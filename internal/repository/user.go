package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

type User struct {
	ID             string         `db:"id"`
	FirstName      string         `db:"first_name"`
	LastName       string         `db:"last_name"`
	Email          string         `db:"email"`
	PhoneNumber    string         `db:"phone_number"`
	HashedPassword string         `db:"hashed_password"`
	Role           string         `db:"role"`
	Status         string         `db:"status"`
	AccountNumber  sql.NullString `db:"account_number"`
	AccountBank    sql.NullString `db:"account_bank"`
	AccountNetwork sql.NullString `db:"account_network"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      sql.NullTime   `db:"updated_at"`
	DeletedAt      sql.NullTime   `db:"deleted_at"`
}

const (
	UserAccountActiveStatus = "active"
	UserAccountLockedStatus = "locked"

	UserRoleAdmin  = "admin"
	UserRoleMember = "member"
)

// HasWithdrawalAccount reports whether the user has somewhere money can be
// paid out to. Mobile-money collection is blocked until this is configured.
func (u *User) HasWithdrawalAccount() bool {
	return u.AccountNumber.Valid && u.AccountNumber.String != ""
}

type UserRepository interface {
	Insert(user *User, tx *sqlx.Tx) (string, error)
	GetOne(id string) (*User, bool, error)
	GetByEmail(email string) (*User, bool, error)
	CheckIfPhoneNumberExist(phoneNumber string) (bool, error)
	SetWithdrawalAccount(id, accountNumber, accountBank, accountNetwork string) error
	Lock(id string) error
}

type UserRepositoryImpl struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (repo *UserRepositoryImpl) Insert(user *User, tx *sqlx.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO users (first_name, last_name, email, phone_number, hashed_password)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if tx != nil {
		err := tx.QueryRowContext(ctx, query,
			user.FirstName,
			user.LastName,
			user.Email,
			user.PhoneNumber,
			user.HashedPassword,
		).Scan(&id)
		if err != nil {
			return "", err
		}
	} else {
		err := repo.db.GetContext(ctx, &id, query,
			user.FirstName,
			user.LastName,
			user.Email,
			user.PhoneNumber,
			user.HashedPassword,
		)

		if err != nil {
			return "", err
		}
	}

	return id, nil
}

func (repo *UserRepositoryImpl) GetOne(id string) (*User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user User

	query := `
        SELECT id, first_name, last_name, email, phone_number, hashed_password, role, status,
               account_number, account_bank, account_network, created_at
        FROM users WHERE id=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &user, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &user, true, nil
}

func (repo *UserRepositoryImpl) GetByEmail(email string) (*User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user User

	query := `
        SELECT id, first_name, last_name, email, phone_number, hashed_password, role, status,
               account_number, account_bank, account_network, created_at
        FROM users WHERE email=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &user, query, email)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &user, true, nil
}

func (repo *UserRepositoryImpl) CheckIfPhoneNumberExist(phoneNumber string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var exists bool

	query := `SELECT EXISTS(SELECT 1 FROM users WHERE phone_number=$1 AND deleted_at IS NULL)`

	err := repo.db.GetContext(ctx, &exists, query, phoneNumber)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (repo *UserRepositoryImpl) SetWithdrawalAccount(id, accountNumber, accountBank, accountNetwork string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE users
		SET account_number=$1, account_bank=$2, account_network=$3, updated_at=now()
		WHERE id=$4 AND deleted_at IS NULL`

	_, err := repo.db.ExecContext(ctx, query, accountNumber, accountBank, accountNetwork, id)
	return err
}

func (repo *UserRepositoryImpl) Lock(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE users SET status=$1, updated_at=now() WHERE id=$2`

	_, err := repo.db.ExecContext(ctx, query, UserAccountLockedStatus, id)
	return err
}
