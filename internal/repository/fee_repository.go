package repository

import (
	"database/sql"
	"errors"
	"time"

	"triarb/internal/models"
)

// Ошибки репозитория комиссий
var (
	ErrFeesNotFound = errors.New("fee parameters not found")
)

// FeeRepository - работа с таблицей fee_parameters (всегда одна запись, id=1)
type FeeRepository struct {
	db *sql.DB
}

// NewFeeRepository создает новый экземпляр репозитория
func NewFeeRepository(db *sql.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// Get возвращает текущие комиссии
func (r *FeeRepository) Get() (*models.FeeParameters, error) {
	query := `
		SELECT id, maker_fee, taker_fee, fee_source, last_fetched_at
		FROM fee_parameters
		WHERE id = 1`

	fees := &models.FeeParameters{}
	err := r.db.QueryRow(query).Scan(
		&fees.ID,
		&fees.MakerFee,
		&fees.TakerFee,
		&fees.FeeSource,
		&fees.LastFetchedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.createDefault()
		}
		return nil, err
	}

	return fees, nil
}

// Update обновляет комиссии
func (r *FeeRepository) Update(fees *models.FeeParameters) error {
	query := `
		UPDATE fee_parameters
		SET maker_fee = $1, taker_fee = $2, fee_source = $3, last_fetched_at = $4
		WHERE id = 1`

	now := time.Now().UTC()
	fees.LastFetchedAt = &now

	result, err := r.db.Exec(query, fees.MakerFee, fees.TakerFee, fees.FeeSource, fees.LastFetchedAt)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrFeesNotFound
	}

	return nil
}

// createDefault создает запись комиссий в состоянии pending
func (r *FeeRepository) createDefault() (*models.FeeParameters, error) {
	fees := &models.FeeParameters{
		ID:        1,
		FeeSource: models.FeeSourcePending,
	}

	query := `
		INSERT INTO fee_parameters (id, maker_fee, taker_fee, fee_source, last_fetched_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.Exec(query, fees.MakerFee, fees.TakerFee, fees.FeeSource, fees.LastFetchedAt)
	if err != nil {
		return nil, err
	}

	return fees, nil
}
