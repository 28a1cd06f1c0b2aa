package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/models"
	"github.com/aruzhans/oppora/internal/notifications"
	apperrors "github.com/aruzhans/oppora/pkg/errors"
	"github.com/aruzhans/oppora/pkg/logger"
	"github.com/aruzhans/oppora/pkg/metrics"
	"github.com/aruzhans/oppora/pkg/telegram"
)

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID              string               `json:"id"`
	UserID          string               `json:"user_id"`
	Type            string               `json:"type"`
	Title           string               `json:"title"`
	Message         string               `json:"message"`
	RelatedEntityID string               `json:"related_entity_id,omitempty"`
	Metadata        map[string]any       `json:"metadata,omitempty"`
	IsRead          bool                 `json:"is_read"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	ReadAt          *time.Time           `json:"read_at,omitempty"`
	Raw             *models.Notification `json:"-"`
}

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	UserID          string
	Type            string
	Title           string
	Message         string
	RelatedEntityID string
	Metadata        map[string]any
}

// ListNotificationsInput defines filters for querying user notifications.
type ListNotificationsInput struct {
	UserID     string
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationService manages in-app notifications and their delivery to
// connected websocket clients and linked Telegram chats.
type NotificationService struct {
	db       *gorm.DB
	hub      *notifications.Hub
	telegram telegram.Sender
}

// NewNotificationService constructs a NotificationService. Hub and telegram
// sender are optional; a nil value disables the corresponding channel.
func NewNotificationService(db *gorm.DB, hub *notifications.Hub, sender telegram.Sender) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	return &NotificationService{db: db, hub: hub, telegram: sender}, nil
}

// ListForUser returns notifications for the supplied user ordered by recency.
func (s *NotificationService) ListForUser(ctx context.Context, input ListNotificationsInput) ([]NotificationDTO, error) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.New("notification service: user id is required")
	}

	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if input.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var rows []models.Notification
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(max(0, input.Offset)).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	return mapNotificationRows(rows), nil
}

// UnreadCount returns the number of unread notifications for the user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("notification service: count unread: %w", err)
	}
	return count, nil
}

// Create persists a notification and pushes it to the user's delivery channels.
func (s *NotificationService) Create(ctx context.Context, input CreateNotificationInput) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)

	notification, err := s.createTx(ctx, s.db, input)
	if err != nil {
		return nil, err
	}

	dto := mapNotification(*notification)
	s.dispatch(ctx, &dto)
	return &dto, nil
}

// CreateInTx persists a notification inside the caller's transaction. Delivery
// still happens immediately; a rolled-back transaction can therefore produce a
// stray push but never a stray row.
func (s *NotificationService) CreateInTx(ctx context.Context, tx *gorm.DB, input CreateNotificationInput) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	if tx == nil {
		tx = s.db
	}

	notification, err := s.createTx(ctx, tx, input)
	if err != nil {
		return nil, err
	}

	dto := mapNotification(*notification)
	s.dispatch(ctx, &dto)
	return &dto, nil
}

func (s *NotificationService) createTx(ctx context.Context, tx *gorm.DB, input CreateNotificationInput) (*models.Notification, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.New("notification service: user id is required")
	}
	notificationType := strings.TrimSpace(input.Type)
	if notificationType == "" {
		return nil, errors.New("notification service: type is required")
	}

	notification := models.Notification{
		UserID:          userID,
		Type:            notificationType,
		Title:           strings.TrimSpace(input.Title),
		Message:         strings.TrimSpace(input.Message),
		RelatedEntityID: strings.TrimSpace(input.RelatedEntityID),
	}

	if input.Metadata != nil {
		data, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("notification service: marshal metadata: %w", err)
		}
		notification.Metadata = datatypes.JSON(data)
	}

	if err := tx.WithContext(ctx).Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("notification service: create notification: %w", err)
	}

	return &notification, nil
}

// MarkRead sets the notification read flag for a user.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&notification).
		Updates(map[string]any{
			"is_read": true,
			"read_at": now,
		}).Error; err != nil {
		return nil, fmt.Errorf("notification service: mark read: %w", err)
	}

	notification.IsRead = true
	notification.ReadAt = &now
	dto := mapNotification(notification)

	s.broadcast(userID, "notification.read", &dto)
	return &dto, nil
}

// MarkAllRead marks all notifications for the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": now,
		}).Error; err != nil {
		return fmt.Errorf("notification service: mark all read: %w", err)
	}

	if s.hub != nil {
		s.hub.Broadcast(userID, notifications.Event{Event: "notification.read_all"})
	}
	return nil
}

// Delete removes a notification owned by the supplied user.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("notification service: delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	if s.hub != nil {
		s.hub.Broadcast(userID, notifications.Event{
			Event:          "notification.deleted",
			NotificationID: notificationID,
		})
	}
	return nil
}

func (s *NotificationService) dispatch(ctx context.Context, dto *NotificationDTO) {
	s.broadcast(dto.UserID, "notification.created", dto)
	s.deliverTelegram(ctx, dto)
}

func (s *NotificationService) broadcast(userID, event string, dto *NotificationDTO) {
	if s.hub == nil {
		return
	}
	evt := notifications.Event{Event: event}
	if dto != nil {
		evt.Notification = dto
		evt.NotificationID = dto.ID
	}
	s.hub.Broadcast(userID, evt)
	metrics.NotificationsDelivered.WithLabelValues("websocket", "ok").Inc()
}

// deliverTelegram forwards the notification to the user's linked chat. Failures
// are logged, never surfaced; Telegram is a best-effort channel.
func (s *NotificationService) deliverTelegram(ctx context.Context, dto *NotificationDTO) {
	if s.telegram == nil {
		return
	}

	var user models.User
	if err := s.db.WithContext(ctx).
		Select("id", "telegram_chat_id").
		Take(&user, "id = ?", dto.UserID).Error; err != nil {
		return
	}
	if strings.TrimSpace(user.TelegramChatID) == "" {
		return
	}

	text := dto.Title
	if dto.Message != "" {
		text = fmt.Sprintf("%s\n%s", dto.Title, dto.Message)
	}

	err := s.telegram.Send(ctx, telegram.Message{
		ChatID: user.TelegramChatID,
		Text:   text,
	})
	switch {
	case err == nil:
		metrics.NotificationsDelivered.WithLabelValues("telegram", "ok").Inc()
	case errors.Is(err, telegram.ErrTelegramDisabled):
	default:
		metrics.NotificationsDelivered.WithLabelValues("telegram", "error").Inc()
		logger.Warn("telegram delivery failed",
			zap.String("user_id", dto.UserID),
			zap.String("notification_id", dto.ID),
			zap.Error(err),
		)
	}
}

func mapNotificationRows(rows []models.Notification) []NotificationDTO {
	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:              row.ID,
		UserID:          row.UserID,
		Type:            row.Type,
		Title:           row.Title,
		Message:         row.Message,
		RelatedEntityID: row.RelatedEntityID,
		Metadata:        decodeJSON(row.Metadata),
		IsRead:          row.IsRead,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		ReadAt:          row.ReadAt,
		Raw:             &row,
	}
}
