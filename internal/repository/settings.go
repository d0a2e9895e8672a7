package repository

import (
	"context"

	"github.com/dumelo/kolo/internal/fees"
	"github.com/jmoiron/sqlx"
)

// SettingsRepository reads the platform's fee configuration. Settings live
// in a single row seeded by migration; callers load them once per request
// and pass them into the fee calculator explicitly.
type SettingsRepository interface {
	GetFeeSettings() (fees.Settings, error)
	UpdateFeeSettings(settings fees.Settings) error
}

type SettingsRepositoryImpl struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) SettingsRepository {
	return &SettingsRepositoryImpl{db: db}
}

func (repo *SettingsRepositoryImpl) GetFeeSettings() (fees.Settings, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var settings fees.Settings

	query := `
		SELECT provider_fee_percent, platform_fee_percent, transfer_fee_percent, platform_transfer_fee_share
		FROM settings LIMIT 1`

	err := repo.db.GetContext(ctx, &settings, query)
	if err != nil {
		return fees.Settings{}, err
	}

	return settings, nil
}

func (repo *SettingsRepositoryImpl) UpdateFeeSettings(settings fees.Settings) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE settings
		SET provider_fee_percent=$1, platform_fee_percent=$2, transfer_fee_percent=$3,
		    platform_transfer_fee_share=$4, updated_at=now()`

	_, err := repo.db.ExecContext(ctx, query,
		settings.ProviderFeePercent,
		settings.PlatformFeePercent,
		settings.TransferFeePercent,
		settings.PlatformTransferFeeShare,
	)
	return err
}
