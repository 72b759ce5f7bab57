package service

import (
	"errors"

	"triarb/internal/models"
)

// Ошибки сервиса комиссий
var (
	ErrInvalidFee       = errors.New("fee must be in [0, 0.05)")
	ErrInvalidFeeSource = errors.New("fee_source must be exchange_api or manual")
)

// FeeService управляет параметрами комиссий биржи.
type FeeService struct {
	feeRepo FeeRepositoryInterface
}

// NewFeeService создает новый экземпляр FeeService.
func NewFeeService(feeRepo FeeRepositoryInterface) *FeeService {
	return &FeeService{feeRepo: feeRepo}
}

// GetFees возвращает текущие параметры комиссий
func (s *FeeService) GetFees() (*models.FeeParameters, error) {
	return s.feeRepo.Get()
}

// UpdateFeesRequest представляет запрос на обновление комиссий
type UpdateFeesRequest struct {
	MakerFee  float64 `json:"maker_fee"`
	TakerFee  float64 `json:"taker_fee"`
	FeeSource string  `json:"fee_source"`
}

// UpdateFees записывает новые комиссии.
//
// Источник pending выставить нельзя: он означает "комиссии ещё
// не получены" и ставится только дефолтной записью.
func (s *FeeService) UpdateFees(req *UpdateFeesRequest) (*models.FeeParameters, error) {
	if !validFee(req.MakerFee) || !validFee(req.TakerFee) {
		return nil, ErrInvalidFee
	}
	if req.FeeSource != models.FeeSourceExchangeAPI && req.FeeSource != models.FeeSourceManual {
		return nil, ErrInvalidFeeSource
	}

	fees, err := s.feeRepo.Get()
	if err != nil {
		return nil, err
	}
	fees.MakerFee = req.MakerFee
	fees.TakerFee = req.TakerFee
	fees.FeeSource = req.FeeSource
	if err := s.feeRepo.Update(fees); err != nil {
		return nil, err
	}
	return fees, nil
}

// validFee: комиссия выше 5% почти наверняка опечатка в единицах
// (проценты вместо долей)
func validFee(fee float64) bool {
	return fee >= 0 && fee < 0.05
}
