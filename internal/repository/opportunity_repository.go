package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"triarb/internal/models"
)

// Ошибки репозитория возможностей
var (
	ErrOpportunityNotFound = errors.New("opportunity not found")
)

const opportunityColumns = `opportunity_id, found_at, path, legs, expected_profit_pct,
		expected_profit_usd, trade_amount, status, status_reason, trade_id`

// OpportunityRepository - работа с таблицей opportunities
type OpportunityRepository struct {
	db *sql.DB
}

// NewOpportunityRepository создает новый экземпляр репозитория
func NewOpportunityRepository(db *sql.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

// Create создает запись о возможности (приходит от сканера)
func (r *OpportunityRepository) Create(opp *models.Opportunity) error {
	query := `
		INSERT INTO opportunities (` + opportunityColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if opp.FoundAt.IsZero() {
		opp.FoundAt = time.Now().UTC()
	}

	_, err := r.db.Exec(query,
		opp.OpportunityID,
		opp.FoundAt,
		pq.Array(opp.Path),
		opp.Legs,
		opp.ExpectedProfitPct,
		opp.ExpectedProfitUSD,
		opp.TradeAmount,
		opp.Status,
		opp.StatusReason,
		opp.TradeID,
	)

	return err
}

// scanOpportunity читает одну строку таблицы opportunities
func scanOpportunity(s scanner) (*models.Opportunity, error) {
	opp := &models.Opportunity{}
	err := s.Scan(
		&opp.OpportunityID,
		&opp.FoundAt,
		pq.Array(&opp.Path),
		&opp.Legs,
		&opp.ExpectedProfitPct,
		&opp.ExpectedProfitUSD,
		&opp.TradeAmount,
		&opp.Status,
		&opp.StatusReason,
		&opp.TradeID,
	)
	if err != nil {
		return nil, err
	}
	return opp, nil
}

// GetByID возвращает возможность по opportunity_id
func (r *OpportunityRepository) GetByID(opportunityID string) (*models.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities WHERE opportunity_id = $1`

	opp, err := scanOpportunity(r.db.QueryRow(query, opportunityID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOpportunityNotFound
		}
		return nil, err
	}

	return opp, nil
}

// GetRecent возвращает последние N возможностей
func (r *OpportunityRepository) GetRecent(limit int) ([]*models.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities ORDER BY found_at DESC LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var opps []*models.Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		opps = append(opps, opp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return opps, nil
}

// UpdateStatus обновляет статус возможности (решение ядра: исполнить/пропустить)
func (r *OpportunityRepository) UpdateStatus(opportunityID, status, reason, tradeID string) error {
	query := `
		UPDATE opportunities
		SET status = $1, status_reason = $2, trade_id = $3
		WHERE opportunity_id = $4`

	result, err := r.db.Exec(query, status, reason, tradeID, opportunityID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrOpportunityNotFound
	}

	return nil
}

// CountByStatus возвращает количество возможностей с определенным статусом
func (r *OpportunityRepository) CountByStatus(status string) (int, error) {
	query := `SELECT COUNT(*) FROM opportunities WHERE status = $1`

	var count int
	err := r.db.QueryRow(query, status).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// DeleteOlderThan удаляет возможности старше указанной даты
func (r *OpportunityRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	query := `DELETE FROM opportunities WHERE found_at < $1`

	result, err := r.db.Exec(query, timestamp)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
