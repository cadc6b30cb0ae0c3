package models

import (
	"gorm.io/gorm"
)

// ServiceCategory groups legal services; Code is matched against lawyer
// specializations during assignment.
type ServiceCategory struct {
	gorm.Model

	CategoryID string `json:"category_id" gorm:"uniqueIndex"`
	Code       string `json:"code" gorm:"uniqueIndex"` // e.g. "corporate", "labor"
	Name       string `json:"name"`
}

// LegalService represents a purchasable extra service
type LegalService struct {
	gorm.Model

	ServiceID  string  `json:"service_id" gorm:"uniqueIndex"`
	Name       string  `json:"name"`
	CategoryID string  `json:"category_id" gorm:"index"`
	BasePrice  float64 `json:"base_price"`
	IsActive   bool    `json:"is_active" gorm:"default:true"`
}
