package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Lawyer account statuses.
const (
	LawyerStatusActive   = "active"
	LawyerStatusInactive = "inactive"
)

// Lawyer types. Legal-arm lawyers receive distributed requests; independent
// lawyers quote on open requests through a separate flow.
const (
	LawyerTypeLegalArm    = "legal_arm"
	LawyerTypeIndependent = "independent"
)

// Lawyer represents a lawyer in the system
type Lawyer struct {
	gorm.Model

	LawyerID string `json:"lawyer_id" gorm:"uniqueIndex"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone" gorm:"uniqueIndex"` // WhatsApp number - unique
	Email    string `json:"email"`

	// Comma-separated service category codes, e.g. "corporate,labor"
	Specializations string  `json:"specializations"`
	Rating          float64 `json:"rating" gorm:"default:0"`
	ExperienceYears int     `json:"experience_years" gorm:"default:0"`

	CurrentWorkload int    `json:"current_workload" gorm:"default:0"`
	MaxWorkload     int    `json:"max_workload" gorm:"default:10"`
	IsAvailable     bool   `json:"is_available" gorm:"default:true"`
	Status          string `json:"status" gorm:"default:active"`
	LawyerType      string `json:"lawyer_type" gorm:"default:legal_arm"`
}

// BeforeCreate hook to auto-generate LawyerID and normalize data
func (l *Lawyer) BeforeCreate(tx *gorm.DB) error {
	if l.LawyerID == "" {
		l.LawyerID = fmt.Sprintf("LAW%d%03d", time.Now().Unix(), time.Now().Nanosecond()%1000)
	}

	// Normalize phone number to E.164 (Saudi default country code)
	if l.Phone != "" && !strings.HasPrefix(l.Phone, "+") {
		l.Phone = "+966" + strings.TrimPrefix(l.Phone, "966")
	}

	return nil
}

// HasSpecialization reports whether the lawyer covers the given category code.
func (l *Lawyer) HasSpecialization(categoryCode string) bool {
	if categoryCode == "" {
		return false
	}
	for _, s := range strings.Split(l.Specializations, ",") {
		if strings.EqualFold(strings.TrimSpace(s), categoryCode) {
			return true
		}
	}
	return false
}

// IsEligible reports whether the lawyer can receive a new request.
func (l *Lawyer) IsEligible() bool {
	return l.IsAvailable && l.Status == LawyerStatusActive && l.CurrentWorkload < l.MaxWorkload
}
