package schema

import (
	"fmt"
	"time"
)

// ContractStatus is the status of a customer contract
type ContractStatus string

const (
	// ContractStatusActive allows reservations within the contract window
	ContractStatusActive ContractStatus = "active"
	// ContractStatusInactive denies every reservation
	ContractStatusInactive ContractStatus = "inactive"
)

// ParseContractStatus parses a contract status, defaulting to active when empty
func ParseContractStatus(s string) (ContractStatus, error) {
	switch ContractStatus(s) {
	case "":
		return ContractStatusActive, nil
	case ContractStatusActive, ContractStatusInactive:
		return ContractStatus(s), nil
	}
	return "", fmt.Errorf("unknown contract status %q", s)
}

// Customer represents the customers table holding usage contracts
type Customer struct {
	CustomerID string `gorm:"column:customer_id;primaryKey;type:text"`
	// ContractLimit is the maximum number of images that may be processed
	ContractLimit int64 `gorm:"column:contract_limit;not null"`
	// StartDate and EndDate bound the contract window, both inclusive
	StartDate time.Time      `gorm:"column:start_date;not null;type:date"`
	EndDate   time.Time      `gorm:"column:end_date;not null;type:date"`
	Status    ContractStatus `gorm:"column:status;not null;type:contract_status"`
	CreatedAt time.Time      `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Customer model
func (Customer) TableName() string {
	return "customers"
}

// CustomerUsage represents the customer_usage table
type CustomerUsage struct {
	CustomerID string `gorm:"column:customer_id;primaryKey;type:text"`
	// TotalImagesProcessed never decreases and never exceeds the contract limit
	TotalImagesProcessed int64     `gorm:"column:total_images_processed;not null;default:0"`
	UpdatedAt            time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the CustomerUsage model
func (CustomerUsage) TableName() string {
	return "customer_usage"
}
