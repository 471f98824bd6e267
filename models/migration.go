package models

import (
	"log"

	"github.com/sitebooks/backoffice/config"
	"gorm.io/gorm"
)

func MigrateTable() {
	if err := AutoMigrate(config.GetDB()); err != nil {
		log.Fatal(err)
	}
}

// AutoMigrate creates or alters every table on conn.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&Client{}, &Project{}, &ContractorEmployee{}, &SalaryRecord{},
		&FinancialDocument{}, &DocumentItem{}, &DocumentMaterial{},
		&Counter{},
		&InventoryItem{}, &InventoryRecord{},
		&ProjectStockMovement{}, &ProjectStockMovementItem{},
		&WorkProgress{}, &WorkProgressHistory{},
		&History{}, &OutboxMessage{},
	)
}
