package models

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/utils"
)

type Project struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"size:64;not null;index" json:"business_id"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	ClientId      *int            `gorm:"index" json:"client_id"`
	Location      string          `gorm:"size:255" json:"location"`
	Status        ProjectStatus   `gorm:"size:20;not null;default:'active'" json:"status"`
	Budget        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"budget"`
	StartDate     *time.Time      `json:"start_date"`
	EndDate       *time.Time      `json:"end_date"`
	Removed       bool            `gorm:"not null;default:false;index" json:"removed"`
	SalaryRecords []SalaryRecord  `gorm:"foreignKey:ProjectId" json:"salary_records,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProject struct {
	Name      string          `json:"name" binding:"required"`
	ClientId  *int            `json:"client_id"`
	Location  string          `json:"location"`
	Status    ProjectStatus   `json:"status"`
	Budget    decimal.Decimal `json:"budget"`
	StartDate *time.Time      `json:"start_date"`
	EndDate   *time.Time      `json:"end_date"`
}

func (input *NewProject) validate(ctx context.Context, businessId string, id int) error {
	if strings.TrimSpace(input.Name) == "" {
		return utils.NewValidationError("project name is required")
	}
	if input.Status == "" {
		input.Status = ProjectStatusActive
	}
	if !input.Status.IsValid() {
		return utils.NewValidationError("invalid project status %q", input.Status)
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return utils.NewValidationError("end date is before start date")
	}
	if input.ClientId != nil && *input.ClientId > 0 {
		if err := utils.ValidateResourceId[Client](ctx, businessId, *input.ClientId); err != nil {
			return err
		}
	}
	return utils.ValidateUnique[Project](ctx, businessId, "name", input.Name, id)
}

func CreateProject(ctx context.Context, input *NewProject) (*Project, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}
	project := Project{
		BusinessId: businessId,
		Name:       strings.TrimSpace(input.Name),
		ClientId:   input.ClientId,
		Location:   input.Location,
		Status:     input.Status,
		Budget:     input.Budget,
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
	}
	if err := config.GetDB().WithContext(ctx).Create(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func UpdateProject(ctx context.Context, id int, input *NewProject) (*Project, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}
	project, err := utils.FetchModel[Project](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	err = config.GetDB().WithContext(ctx).Model(project).Updates(map[string]interface{}{
		"Name":      strings.TrimSpace(input.Name),
		"ClientId":  input.ClientId,
		"Location":  input.Location,
		"Status":    input.Status,
		"Budget":    input.Budget,
		"StartDate": input.StartDate,
		"EndDate":   input.EndDate,
	}).Error
	if err != nil {
		return nil, err
	}
	return project, nil
}

func RemoveProject(ctx context.Context, id int) (*Project, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	project, err := utils.FetchModel[Project](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if err := config.GetDB().WithContext(ctx).Model(project).Update("Removed", true).Error; err != nil {
		return nil, err
	}
	return project, nil
}

func GetProject(ctx context.Context, id int) (*Project, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Project](ctx, businessId, id)
}

func GetProjects(ctx context.Context, name *string, status *ProjectStatus) ([]*Project, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dbCtx := config.GetDB().WithContext(ctx).Where("business_id = ? AND removed = ?", businessId, false)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	var results []*Project
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
