package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"skillswap/backend/internal/models"
)

// GormUserStore implements UserStore on a postgres database.
type GormUserStore struct {
	db *gorm.DB
}

// NewUserStore returns a UserStore backed by the given database handle.
func NewUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormUserStore) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("nickname = ? OR email = ?", login, login).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormUserStore) Create(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *GormUserStore) Save(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

// GormBookingStore implements BookingStore on a postgres database.
type GormBookingStore struct {
	db *gorm.DB
}

// NewBookingStore returns a BookingStore backed by the given database handle.
func NewBookingStore(db *gorm.DB) *GormBookingStore {
	return &GormBookingStore{db: db}
}

func (s *GormBookingStore) FindByID(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).First(&booking, id).Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (s *GormBookingStore) FindPending(ctx context.Context, fromUserID, toUserID uint, skill string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).
		Where("from_user_id = ? AND to_user_id = ? AND skill = ? AND status = ?",
			fromUserID, toUserID, skill, models.BookingPending).
		First(&booking).Error
	if err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (s *GormBookingStore) ListForUser(ctx context.Context, userID uint, role string, page, limit int) ([]models.Booking, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Booking{})
	switch role {
	case RoleSent:
		query = query.Where("from_user_id = ?", userID)
	case RoleReceived:
		query = query.Where("to_user_id = ?", userID)
	default:
		query = query.Where("from_user_id = ? OR to_user_id = ?", userID, userID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bookings []models.Booking
	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (s *GormBookingStore) Save(ctx context.Context, booking *models.Booking) error {
	return s.db.WithContext(ctx).Save(booking).Error
}

// GormNotificationStore implements NotificationStore on a postgres database.
type GormNotificationStore struct {
	db *gorm.DB
}

// NewNotificationStore returns a NotificationStore backed by the given
// database handle.
func NewNotificationStore(db *gorm.DB) *GormNotificationStore {
	return &GormNotificationStore{db: db}
}

func (s *GormNotificationStore) Append(ctx context.Context, notification *models.Notification) error {
	return s.db.WithContext(ctx).Create(notification).Error
}

func (s *GormNotificationStore) ListForUser(ctx context.Context, userID uint, page, limit int) ([]models.Notification, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []models.Notification
	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (s *GormNotificationStore) MarkRead(ctx context.Context, userID, notificationID uint) error {
	result := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormNotificationStore) MarkAllRead(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", userID, false).
		Update("read", true).Error
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
