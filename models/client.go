package models

import (
	"context"
	"strings"
	"time"

	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/utils"
)

type Client struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"size:64;not null;index" json:"business_id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Company    string    `gorm:"size:255" json:"company"`
	Email      string    `gorm:"size:255" json:"email"`
	Phone      string    `gorm:"size:30" json:"phone"`
	Address    string    `gorm:"type:text" json:"address"`
	Removed    bool      `gorm:"not null;default:false;index" json:"removed"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewClient struct {
	Name    string `json:"name" binding:"required"`
	Company string `json:"company"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewClient) validate(ctx context.Context, businessId string, id int) error {
	if strings.TrimSpace(input.Name) == "" {
		return utils.NewValidationError("client name is required")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return utils.NewValidationError("phone: %v", err)
		}
		input.Phone = utils.FormatPhoneNumber(input.Phone, utils.CountryCode)
	}
	return utils.ValidateUnique[Client](ctx, businessId, "name", input.Name, id)
}

func CreateClient(ctx context.Context, input *NewClient) (*Client, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	client := Client{
		BusinessId: businessId,
		Name:       strings.TrimSpace(input.Name),
		Company:    input.Company,
		Email:      input.Email,
		Phone:      input.Phone,
		Address:    input.Address,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func UpdateClient(ctx context.Context, id int, input *NewClient) (*Client, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}
	client, err := utils.FetchModel[Client](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(client).Updates(map[string]interface{}{
		"Name":    strings.TrimSpace(input.Name),
		"Company": input.Company,
		"Email":   input.Email,
		"Phone":   input.Phone,
		"Address": input.Address,
	}).Error
	if err != nil {
		return nil, err
	}
	return client, nil
}

// RemoveClient soft-deletes; documents keep their client links.
func RemoveClient(ctx context.Context, id int) (*Client, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	client, err := utils.FetchModel[Client](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(client).Update("Removed", true).Error; err != nil {
		return nil, err
	}
	return client, nil
}

func GetClient(ctx context.Context, id int) (*Client, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Client](ctx, businessId, id)
}

func GetClients(ctx context.Context, name *string) ([]*Client, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ? AND removed = ?", businessId, false)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	var results []*Client
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetClientsByIds loads live clients for the given ids, in no particular order.
func GetClientsByIds(ctx context.Context, ids []int) ([]*Client, error) {
	businessId, err := businessIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var results []*Client
	if len(ids) == 0 {
		return results, nil
	}
	err = config.GetDB().WithContext(ctx).
		Where("business_id = ? AND removed = ? AND id IN ?", businessId, false, utils.UniqueSlice(ids)).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
