package service

import (
	"context"
	"errors"
	"time"

	"triarb/internal/models"
	"triarb/pkg/id"
	"triarb/pkg/utils"
)

// Ошибки сервиса возможностей
var (
	ErrInvalidPath   = errors.New("path must contain at least 3 currencies and close the cycle")
	ErrInvalidAmount = errors.New("trade_amount must be > 0")
)

// OpportunityService принимает возможности от сканера и отдаёт их истории.
type OpportunityService struct {
	oppRepo OpportunityRepositoryInterface
	engine  EngineInterface
}

// EngineInterface - подача возможности в ядро
type EngineInterface interface {
	HandleOpportunity(ctx context.Context, opp *models.Opportunity) (*models.Trade, error)
}

// NewOpportunityService создает новый экземпляр OpportunityService.
func NewOpportunityService(oppRepo OpportunityRepositoryInterface, engine EngineInterface) *OpportunityService {
	return &OpportunityService{oppRepo: oppRepo, engine: engine}
}

// RecordOpportunityRequest представляет возможность от сканера
type RecordOpportunityRequest struct {
	Path              []string `json:"path"`
	ExpectedProfitPct float64  `json:"expected_profit_pct"`
	ExpectedProfitUSD float64  `json:"expected_profit_usd"`
	TradeAmount       float64  `json:"trade_amount"`
}

// RecordOpportunity сохраняет возможность и сразу подаёт её в ядро.
// Решение исполнять/пропустить принимает ядро; сервис только
// валидирует и записывает.
func (s *OpportunityService) RecordOpportunity(ctx context.Context, req *RecordOpportunityRequest) (*models.Opportunity, error) {
	if err := utils.ValidatePath(req.Path); err != nil {
		return nil, ErrInvalidPath
	}
	if err := utils.ValidateAmount(req.TradeAmount); err != nil {
		return nil, ErrInvalidAmount
	}

	opp := &models.Opportunity{
		OpportunityID:     id.NewTradeID(),
		FoundAt:           time.Now().UTC(),
		Path:              req.Path,
		Legs:              len(req.Path) - 1,
		ExpectedProfitPct: req.ExpectedProfitPct,
		ExpectedProfitUSD: req.ExpectedProfitUSD,
		TradeAmount:       req.TradeAmount,
		Status:            models.OpportunityStatusPending,
	}
	if err := s.oppRepo.Create(opp); err != nil {
		return nil, err
	}

	if _, err := s.engine.HandleOpportunity(ctx, opp); err != nil {
		return nil, err
	}
	// Ядро уже проставило статус в БД; перечитываем для ответа
	return s.oppRepo.GetByID(opp.OpportunityID)
}

// GetOpportunity возвращает возможность по идентификатору
func (s *OpportunityService) GetOpportunity(opportunityID string) (*models.Opportunity, error) {
	return s.oppRepo.GetByID(opportunityID)
}

// GetRecentOpportunities возвращает последние возможности, новые первыми
func (s *OpportunityService) GetRecentOpportunities(limit int) ([]*models.Opportunity, error) {
	return s.oppRepo.GetRecent(clampLimit(limit))
}

// CleanupOldOpportunities удаляет возможности старше olderThanDays дней
func (s *OpportunityService) CleanupOldOpportunities(olderThanDays int) (int64, error) {
	if olderThanDays < 1 {
		return 0, ErrInvalidRetention
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	return s.oppRepo.DeleteOlderThan(cutoff)
}
