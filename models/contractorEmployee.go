package models

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/utils"
)

type ContractorEmployee struct {
	ID         int                    `gorm:"primary_key" json:"id"`
	BusinessId string                 `gorm:"size:64;not null;index" json:"business_id"`
	Name       string                 `gorm:"size:255;not null" json:"name"`
	Type       ContractorEmployeeType `gorm:"size:20;not null" json:"type"`
	Phone      string                 `gorm:"size:30" json:"phone"`
	Trade      string                 `gorm:"size:100" json:"trade"`
	DailyRate  decimal.Decimal        `gorm:"type:decimal(20,4);not null;default:0" json:"daily_rate"`
	Removed    bool                   `gorm:"not null;default:false;index" json:"removed"`
	CreatedAt  time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewContractorEmployee struct {
	Name      string                 `json:"name" binding:"required"`
	Type      ContractorEmployeeType `json:"type" binding:"required"`
	Phone     string                 `json:"phone"`
	Trade     string                 `json:"trade"`
	DailyRate decimal.Decimal        `json:"daily_rate"`
}

func (input *NewContractorEmployee) validate() error {
	if strings.TrimSpace(input.Name) == "" {
		return utils.NewValidationError("name is required")
	}
	if !input.Type.IsValid() {
		return utils.NewValidationError("invalid contractor employee type %q", input.Type)
	}
	if input.DailyRate.IsNegative() {
		return utils.NewValidationError("daily rate cannot be negative")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return utils.NewValidationError("phone: %v", err)
		}
		input.Phone = utils.FormatPhoneNumber(input.Phone, utils.CountryCode)
	}
	return nil
}

func CreateContractorEmployee(ctx context.Context, input *NewContractorEmployee) (*ContractorEmployee, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	ce := ContractorEmployee{
		BusinessId: businessId,
		Name:       strings.TrimSpace(input.Name),
		Type:       input.Type,
		Phone:      input.Phone,
		Trade:      input.Trade,
		DailyRate:  input.DailyRate,
	}
	if err := config.GetDB().WithContext(ctx).Create(&ce).Error; err != nil {
		return nil, err
	}
	return &ce, nil
}

func UpdateContractorEmployee(ctx context.Context, id int, input *NewContractorEmployee) (*ContractorEmployee, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	ce, err := utils.FetchModel[ContractorEmployee](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	err = config.GetDB().WithContext(ctx).Model(ce).Updates(map[string]interface{}{
		"Name":      strings.TrimSpace(input.Name),
		"Type":      input.Type,
		"Phone":     input.Phone,
		"Trade":     input.Trade,
		"DailyRate": input.DailyRate,
	}).Error
	if err != nil {
		return nil, err
	}
	return ce, nil
}

func RemoveContractorEmployee(ctx context.Context, id int) (*ContractorEmployee, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	ce, err := utils.FetchModel[ContractorEmployee](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if err := config.GetDB().WithContext(ctx).Model(ce).Update("Removed", true).Error; err != nil {
		return nil, err
	}
	return ce, nil
}

func GetContractorEmployee(ctx context.Context, id int) (*ContractorEmployee, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[ContractorEmployee](ctx, businessId, id)
}

func GetContractorEmployees(ctx context.Context, employeeType *ContractorEmployeeType) ([]*ContractorEmployee, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dbCtx := config.GetDB().WithContext(ctx).Where("business_id = ? AND removed = ?", businessId, false)
	if employeeType != nil && *employeeType != "" {
		dbCtx = dbCtx.Where("type = ?", *employeeType)
	}
	var results []*ContractorEmployee
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
