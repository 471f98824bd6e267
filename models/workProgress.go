package models

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/utils"
	"gorm.io/gorm"
)

// WorkProgress tracks how far a contractor is with one quoted line of work.
type WorkProgress struct {
	ID                   int                   `gorm:"primary_key" json:"id"`
	BusinessId           string                `gorm:"size:64;not null;index" json:"business_id"`
	ProjectId            int                   `gorm:"index;not null" json:"project_id"`
	ContractorEmployeeId int                   `gorm:"index;not null" json:"contractor_employee_id"`
	SourceDocumentId     int                   `gorm:"index" json:"source_document_id"`
	SourceItemId         int                   `json:"source_item_id"`
	ItemName             string                `gorm:"size:255;not null" json:"item_name"`
	Description          string                `gorm:"type:text" json:"description"`
	Quantity             decimal.Decimal       `gorm:"type:decimal(20,4);not null;default:0" json:"quantity"`
	Price                decimal.Decimal       `gorm:"type:decimal(20,4);not null;default:0" json:"price"`
	Total                decimal.Decimal       `gorm:"type:decimal(20,4);not null;default:0" json:"total"`
	Progress             int                   `gorm:"not null;default:0" json:"progress"`
	Status               WorkProgressStatus    `gorm:"size:20;not null" json:"status"`
	StartDate            time.Time             `gorm:"not null" json:"start_date"`
	Days                 int                   `gorm:"not null;default:0" json:"days"`
	ExpectedEndDate      time.Time             `gorm:"not null" json:"expected_end_date"`
	Removed              bool                  `gorm:"not null;default:false;index" json:"removed"`
	History              []WorkProgressHistory `gorm:"foreignKey:WorkProgressId" json:"history"`
	CreatedAt            time.Time             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time             `gorm:"autoUpdateTime" json:"updated_at"`
}

// WorkProgressHistory rows are only ever appended.
type WorkProgressHistory struct {
	ID             int       `gorm:"primary_key" json:"id"`
	WorkProgressId int       `gorm:"index;not null" json:"work_progress_id"`
	Date           time.Time `gorm:"not null" json:"date"`
	Percentage     int       `gorm:"not null" json:"percentage"`
	RecordedBy     string    `gorm:"size:100" json:"recorded_by"`
	Note           string    `gorm:"type:text" json:"note"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewWorkProgress struct {
	ProjectId            int       `json:"project_id" binding:"required"`
	ContractorEmployeeId int       `json:"contractor_employee_id" binding:"required"`
	QuoteId              int       `json:"quote_id" binding:"required"`
	QuoteItemId          int       `json:"quote_item_id" binding:"required"`
	StartDate            time.Time `json:"start_date"`
	Days                 int       `json:"days"`
}

type NewWorkProgressEntry struct {
	Percentage int       `json:"percentage"`
	Date       time.Time `json:"date"`
	Note       string    `json:"note"`
}

func workProgressStatusFor(progress int) WorkProgressStatus {
	switch {
	case progress >= 100:
		return WorkProgressStatusCompleted
	case progress > 0:
		return WorkProgressStatusInProgress
	}
	return WorkProgressStatusNotStarted
}

func expectedEndDate(start time.Time, days int) time.Time {
	return start.AddDate(0, 0, days)
}

func (input *NewWorkProgress) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateResourceId[Project](ctx, businessId, input.ProjectId); err != nil {
		return err
	}
	if err := utils.ValidateResourceId[ContractorEmployee](ctx, businessId, input.ContractorEmployeeId); err != nil {
		return err
	}
	if input.Days < 0 {
		return utils.NewValidationError("days cannot be negative")
	}
	if input.StartDate.IsZero() {
		input.StartDate = time.Now().UTC()
	}
	return nil
}

// CreateWorkProgress copies one line of a quote into a new tracker at 0%.
func CreateWorkProgress(ctx context.Context, input *NewWorkProgress) (*WorkProgress, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	var wp WorkProgress
	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		quote, err := fetchDocumentTx(tx, businessId, input.QuoteId, DocumentKindQuote)
		if err != nil {
			return err
		}
		var source *DocumentItem
		for i := range quote.Items {
			if quote.Items[i].ID == input.QuoteItemId {
				source = &quote.Items[i]
				break
			}
		}
		if source == nil {
			return utils.NewNotFoundError("quote item", input.QuoteItemId)
		}
		wp = WorkProgress{
			BusinessId:           businessId,
			ProjectId:            input.ProjectId,
			ContractorEmployeeId: input.ContractorEmployeeId,
			SourceDocumentId:     quote.ID,
			SourceItemId:         source.ID,
			ItemName:             source.ItemName,
			Description:          source.Description,
			Quantity:             source.Quantity,
			Price:                source.Price.Decimal,
			Total:                source.Total.Decimal,
			Status:               WorkProgressStatusNotStarted,
			StartDate:            input.StartDate,
			Days:                 input.Days,
			ExpectedEndDate:      expectedEndDate(input.StartDate, input.Days),
		}
		if err := tx.Create(&wp).Error; err != nil {
			return err
		}
		return createHistory(tx, HistoryActionCreate, wp.ID, "work_progresses", nil, &wp,
			fmt.Sprintf("Work progress created for %s.", wp.ItemName))
	})
	if err != nil {
		return nil, err
	}
	return &wp, nil
}

// RecordWorkProgress appends a snapshot and moves progress and status to it.
func RecordWorkProgress(ctx context.Context, id int, input *NewWorkProgressEntry) (*WorkProgress, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if input.Percentage < 0 || input.Percentage > 100 {
		return nil, utils.NewValidationError("percentage must be between 0 and 100")
	}
	if input.Date.IsZero() {
		input.Date = time.Now().UTC()
	}

	var result *WorkProgress
	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		if _, err := utils.FetchModelTx[WorkProgress](tx, businessId, id); err != nil {
			return err
		}
		entry := WorkProgressHistory{
			WorkProgressId: id,
			Date:           input.Date,
			Percentage:     input.Percentage,
			RecordedBy:     utils.GetActorFromContext(ctx),
			Note:           input.Note,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		status := workProgressStatusFor(input.Percentage)
		if _, err := UpdateOne[WorkProgress](tx, map[string]interface{}{
			"progress": input.Percentage,
			"status":   status,
		}, "id = ?", id); err != nil {
			return err
		}
		result, err = fetchWorkProgressTx(tx, businessId, id)
		if err != nil {
			return err
		}
		return writeOutbox(tx, businessId, EventWorkProgressUpdated, "work_progresses", id, map[string]interface{}{
			"work_progress_id": id,
			"progress":         input.Percentage,
			"status":           status,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RescheduleWorkProgress changes the start date and duration; the expected end follows.
func RescheduleWorkProgress(ctx context.Context, id int, startDate time.Time, days int) (*WorkProgress, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if days < 0 {
		return nil, utils.NewValidationError("days cannot be negative")
	}
	wp, err := utils.FetchModel[WorkProgress](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	err = config.GetDB().WithContext(ctx).Model(wp).Updates(map[string]interface{}{
		"StartDate":       startDate,
		"Days":            days,
		"ExpectedEndDate": expectedEndDate(startDate, days),
	}).Error
	if err != nil {
		return nil, err
	}
	wp.StartDate = startDate
	wp.Days = days
	wp.ExpectedEndDate = expectedEndDate(startDate, days)
	return wp, nil
}

func fetchWorkProgressTx(tx *gorm.DB, businessId string, id int) (*WorkProgress, error) {
	q := tx.Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
	return utils.FetchModelTx[WorkProgress](q, businessId, id)
}

func GetWorkProgress(ctx context.Context, id int) (*WorkProgress, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return fetchWorkProgressTx(config.GetDB().WithContext(ctx), businessId, id)
}

func GetWorkProgresses(ctx context.Context, projectId *int, contractorEmployeeId *int) ([]*WorkProgress, error) {
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
	var results []*WorkProgress
	if err := dbCtx.Order("start_date, id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func RemoveWorkProgress(ctx context.Context, id int) (*WorkProgress, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	wp, err := utils.FetchModel[WorkProgress](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if err := config.GetDB().WithContext(ctx).Model(wp).Update("Removed", true).Error; err != nil {
		return nil, err
	}
	return wp, nil
}
