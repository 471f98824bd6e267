package models

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/utils"
)

// SalaryRecord is a payment to a contractor or employee for work on a project.
type SalaryRecord struct {
	ID                   int                 `gorm:"primary_key" json:"id"`
	BusinessId           string              `gorm:"size:64;not null;index" json:"business_id"`
	ProjectId            int                 `gorm:"index;not null" json:"project_id"`
	ContractorEmployeeId int                 `gorm:"index;not null" json:"contractor_employee_id"`
	ContractorEmployee   *ContractorEmployee `gorm:"foreignKey:ContractorEmployeeId" json:"contractor_employee,omitempty"`
	Amount               decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"amount"`
	Days                 decimal.Decimal     `gorm:"type:decimal(10,2);not null;default:0" json:"days"`
	WorkDate             time.Time           `gorm:"not null" json:"work_date"`
	Note                 string              `gorm:"type:text" json:"note"`
	Removed              bool                `gorm:"not null;default:false;index" json:"removed"`
	CreatedAt            time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSalaryRecord struct {
	ProjectId            int             `json:"project_id" binding:"required"`
	ContractorEmployeeId int             `json:"contractor_employee_id" binding:"required"`
	Amount               decimal.Decimal `json:"amount"`
	Days                 decimal.Decimal `json:"days"`
	WorkDate             time.Time       `json:"work_date"`
	Note                 string          `json:"note"`
}

func (input *NewSalaryRecord) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateResourceId[Project](ctx, businessId, input.ProjectId); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[ContractorEmployee](ctx, businessId, input.ContractorEmployeeId); err != nil {
		return err
	}
	if input.Days.IsNegative() {
		return utils.NewValidationError("days cannot be negative")
	}
	if input.WorkDate.IsZero() {
		input.WorkDate = time.Now().UTC()
	}
	return nil
}

// CreateSalaryRecord defaults the amount to days × the worker's daily rate when no amount is given.
func CreateSalaryRecord(ctx context.Context, input *NewSalaryRecord) (*SalaryRecord, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}
	amount := input.Amount
	if amount.IsZero() && input.Days.IsPositive() {
		worker, err := utils.FetchModel[ContractorEmployee](ctx, businessId, input.ContractorEmployeeId)
		if err != nil {
			return nil, err
		}
		amount = utils.MulMoney(input.Days, worker.DailyRate)
	}
	record := SalaryRecord{
		BusinessId:           businessId,
		ProjectId:            input.ProjectId,
		ContractorEmployeeId: input.ContractorEmployeeId,
		Amount:               utils.RoundMoney(amount),
		Days:                 input.Days,
		WorkDate:             input.WorkDate,
		Note:                 input.Note,
	}
	if err := config.GetDB().WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func UpdateSalaryRecord(ctx context.Context, id int, input *NewSalaryRecord) (*SalaryRecord, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}
	record, err := utils.FetchModel[SalaryRecord](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	err = config.GetDB().WithContext(ctx).Model(record).Updates(map[string]interface{}{
		"ProjectId":            input.ProjectId,
		"ContractorEmployeeId": input.ContractorEmployeeId,
		"Amount":               utils.RoundMoney(input.Amount),
		"Days":                 input.Days,
		"WorkDate":             input.WorkDate,
		"Note":                 input.Note,
	}).Error
	if err != nil {
		return nil, err
	}
	return record, nil
}

func RemoveSalaryRecord(ctx context.Context, id int) (*SalaryRecord, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	record, err := utils.FetchModel[SalaryRecord](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if err := config.GetDB().WithContext(ctx).Model(record).Update("Removed", true).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func GetSalaryRecords(ctx context.Context, projectId *int, contractorEmployeeId *int) ([]*SalaryRecord, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dbCtx := config.GetDB().WithContext(ctx).Where("business_id = ? AND removed = ?", businessId, false)
	if projectId != nil {
		dbCtx = dbCtx.Where("project_id = ?", *projectId)
	}
	if contractorEmployeeId != nil {
		dbCtx = dbCtx.Where("contractor_employee_id = ?", *contractorEmployeeId)
	}
	var results []*SalaryRecord
	if err := dbCtx.Order("work_date, id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
