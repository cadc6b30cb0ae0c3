package storage

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mashora/mashora-backend/internal/models"
)

// DatabaseStore implements Store backed by PostgreSQL via GORM
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a new database-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// Lawyer operations

func (s *DatabaseStore) CreateLawyer(lawyer *models.Lawyer) (*models.Lawyer, error) {
	if err := s.db.Create(lawyer).Error; err != nil {
		return nil, translate(err)
	}
	return lawyer, nil
}

func (s *DatabaseStore) GetLawyerByID(lawyerID string) (*models.Lawyer, error) {
	var lawyer models.Lawyer
	err := s.db.Where("lawyer_id = ?", lawyerID).First(&lawyer).Error
	if err != nil {
		return nil, translate(err)
	}
	return &lawyer, nil
}

// GetEligibleLawyers returns assignable lawyers sorted by workload so that
// ties in the score break toward the least-loaded candidate.
func (s *DatabaseStore) GetEligibleLawyers() ([]*models.Lawyer, error) {
	var lawyers []*models.Lawyer
	err := s.db.
		Where("is_available = ? AND status = ? AND current_workload < max_workload", true, models.LawyerStatusActive).
		Order("current_workload ASC").
		Find(&lawyers).Error
	if err != nil {
		return nil, translate(err)
	}
	return lawyers, nil
}

func (s *DatabaseStore) GetActiveLegalArmLawyers() ([]*models.Lawyer, error) {
	var lawyers []*models.Lawyer
	err := s.db.
		Where("status = ? AND lawyer_type = ?", models.LawyerStatusActive, models.LawyerTypeLegalArm).
		Find(&lawyers).Error
	if err != nil {
		return nil, translate(err)
	}
	return lawyers, nil
}

func (s *DatabaseStore) UpdateLawyer(lawyer *models.Lawyer) error {
	return translate(s.db.Save(lawyer).Error)
}

func (s *DatabaseStore) IncrementLawyerWorkload(lawyerID string) error {
	res := s.db.Model(&models.Lawyer{}).
		Where("lawyer_id = ?", lawyerID).
		UpdateColumn("current_workload", gorm.Expr("current_workload + 1"))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Service request operations

func (s *DatabaseStore) CreateServiceRequest(request *models.ServiceRequest) (*models.ServiceRequest, error) {
	if err := s.db.Create(request).Error; err != nil {
		return nil, translate(err)
	}
	return request, nil
}

func (s *DatabaseStore) GetServiceRequest(requestID string) (*models.ServiceRequest, error) {
	var request models.ServiceRequest
	err := s.db.Where("request_id = ?", requestID).First(&request).Error
	if err != nil {
		return nil, translate(err)
	}
	return &request, nil
}

func (s *DatabaseStore) UpdateServiceRequest(request *models.ServiceRequest) error {
	return translate(s.db.Save(request).Error)
}

// AssignServiceRequest uses a conditional update so two concurrent
// distributions cannot both win the same request.
func (s *DatabaseStore) AssignServiceRequest(requestID, lawyerID string, assignedAt time.Time) error {
	res := s.db.Model(&models.ServiceRequest{}).
		Where("request_id = ? AND assigned_lawyer_id IS NULL", requestID).
		Updates(map[string]interface{}{
			"assigned_lawyer_id": lawyerID,
			"handler_type":       models.HandlerTypeLegalArm,
			"status":             models.RequestStatusAssigned,
			"assigned_at":        assignedAt,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the request does not exist or someone assigned it first
		var count int64
		if err := s.db.Model(&models.ServiceRequest{}).Where("request_id = ?", requestID).Count(&count).Error; err != nil {
			return translate(err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrAlreadyAssigned
	}
	return nil
}

// OTP operations

func (s *DatabaseStore) CreateOTP(otp *models.OTP) (*models.OTP, error) {
	if err := s.db.Create(otp).Error; err != nil {
		return nil, translate(err)
	}
	return otp, nil
}

func (s *DatabaseStore) GetLatestPendingOTP(phone, purpose string, now time.Time) (*models.OTP, error) {
	var otp models.OTP
	err := s.db.
		Where("phone = ? AND purpose = ? AND status = ? AND expires_at > ?",
			phone, purpose, models.OTPStatusPending, now).
		Order("created_at DESC").
		First(&otp).Error
	if err != nil {
		return nil, translate(err)
	}
	return &otp, nil
}

func (s *DatabaseStore) ExpirePendingOTPs(phone, purpose string) (int64, error) {
	res := s.db.Model(&models.OTP{}).
		Where("phone = ? AND purpose = ? AND status = ?", phone, purpose, models.OTPStatusPending).
		Update("status", models.OTPStatusExpired)
	return res.RowsAffected, translate(res.Error)
}

func (s *DatabaseStore) UpdateOTP(otp *models.OTP) error {
	return translate(s.db.Save(otp).Error)
}

func (s *DatabaseStore) ExpireStaleOTPs(now time.Time) (int64, error) {
	res := s.db.Model(&models.OTP{}).
		Where("status = ? AND expires_at <= ?", models.OTPStatusPending, now).
		Update("status", models.OTPStatusExpired)
	return res.RowsAffected, translate(res.Error)
}

// Payment operations

func (s *DatabaseStore) CreatePayment(payment *models.Payment) (*models.Payment, error) {
	if err := s.db.Create(payment).Error; err != nil {
		return nil, translate(err)
	}
	return payment, nil
}

func (s *DatabaseStore) GetCompletedPaymentByGatewayID(gatewayPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.
		Where("gateway_payment_id = ? AND status = ?", gatewayPaymentID, models.PaymentStatusCompleted).
		First(&payment).Error
	if err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (s *DatabaseStore) GetPaymentByGatewayID(gatewayPaymentID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.Where("gateway_payment_id = ?", gatewayPaymentID).First(&payment).Error
	if err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (s *DatabaseStore) UpdatePayment(payment *models.Payment) error {
	return translate(s.db.Save(payment).Error)
}

// Package / subscription / member operations

func (s *DatabaseStore) GetPackage(packageID string) (*models.Package, error) {
	var pkg models.Package
	err := s.db.Where("package_id = ?", packageID).First(&pkg).Error
	if err != nil {
		return nil, translate(err)
	}
	return &pkg, nil
}

func (s *DatabaseStore) CreateSubscription(sub *models.Subscription) (*models.Subscription, error) {
	if err := s.db.Create(sub).Error; err != nil {
		return nil, translate(err)
	}
	return sub, nil
}

func (s *DatabaseStore) GetMember(memberID string) (*models.Member, error) {
	var member models.Member
	err := s.db.Where("member_id = ?", memberID).First(&member).Error
	if err != nil {
		return nil, translate(err)
	}
	return &member, nil
}

func (s *DatabaseStore) UpdateMember(member *models.Member) error {
	return translate(s.db.Save(member).Error)
}

// Legal service operations

func (s *DatabaseStore) GetLegalService(serviceID string) (*models.LegalService, error) {
	var service models.LegalService
	err := s.db.Where("service_id = ?", serviceID).First(&service).Error
	if err != nil {
		return nil, translate(err)
	}
	return &service, nil
}

func (s *DatabaseStore) GetServiceCategory(categoryID string) (*models.ServiceCategory, error) {
	var category models.ServiceCategory
	err := s.db.Where("category_id = ?", categoryID).First(&category).Error
	if err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

// Notification operations

func (s *DatabaseStore) CreateNotification(notification *models.Notification) (*models.Notification, error) {
	if err := s.db.Create(notification).Error; err != nil {
		return nil, translate(err)
	}
	return notification, nil
}

func (s *DatabaseStore) GetPendingNotifications(limit int) ([]*models.Notification, error) {
	var notifications []*models.Notification
	err := s.db.
		Where("status = ?", models.NotificationStatusPending).
		Order("priority = 'high' DESC, created_at ASC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, translate(err)
	}
	return notifications, nil
}

func (s *DatabaseStore) UpdateNotification(notification *models.Notification) error {
	return translate(s.db.Save(notification).Error)
}

// Sequence operations

// NextSequenceValue atomically increments the named counter and returns the
// new value. The upsert keeps first use race-safe.
func (s *DatabaseStore) NextSequenceValue(code string) (int64, error) {
	var counter models.SequenceCounter
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&models.SequenceCounter{Code: code}).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).First(&counter).Error; err != nil {
			return err
		}
		counter.LastValue++
		return tx.Save(&counter).Error
	})
	if err != nil {
		return 0, fmt.Errorf("sequence %s: %w", code, translate(err))
	}
	return counter.LastValue, nil
}
