package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/models"
	apperrors "github.com/aruzhans/oppora/pkg/errors"
)

// FriendRequestDTO is the API payload for a friend request.
type FriendRequestDTO struct {
	ID         string       `json:"id"`
	SenderID   string       `json:"sender_id"`
	ReceiverID string       `json:"receiver_id"`
	Status     string       `json:"status"`
	Sender     *models.User `json:"sender,omitempty"`
	Receiver   *models.User `json:"receiver,omitempty"`
}

// FriendService manages friend requests and the friendship pairs they produce.
type FriendService struct {
	db            *gorm.DB
	notifications *NotificationService
}

// NewFriendService constructs a FriendService. The notification service is
// optional; a nil value silences relationship notifications.
func NewFriendService(db *gorm.DB, notificationService *NotificationService) (*FriendService, error) {
	if db == nil {
		return nil, errors.New("friend service: db is required")
	}
	return &FriendService{db: db, notifications: notificationService}, nil
}

// SendRequest creates a pending friend request from sender to receiver and
// notifies the receiver. A pending or accepted request, or a friendship,
// already linking the pair in either direction is a conflict; a declined
// request does not block a retry from either side.
func (s *FriendService) SendRequest(ctx context.Context, senderID, receiverID string) (*FriendRequestDTO, error) {
	ctx = ensureContext(ctx)
	senderID = strings.TrimSpace(senderID)
	receiverID = strings.TrimSpace(receiverID)

	if senderID == "" || receiverID == "" {
		return nil, apperrors.NewBadRequest("Sender and receiver are required")
	}
	if senderID == receiverID {
		return nil, apperrors.NewBadRequest("Cannot send a friend request to yourself")
	}

	var receiver models.User
	if err := s.db.WithContext(ctx).Take(&receiver, "id = ?", receiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("User not found")
		}
		return nil, fmt.Errorf("friend service: find receiver: %w", err)
	}

	friends, err := s.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if friends {
		return nil, apperrors.NewConflict("Users are already friends", nil)
	}

	var existing int64
	if err := s.db.WithContext(ctx).
		Model(&models.FriendRequest{}).
		Where("status IN ?", []string{models.FriendRequestPending, models.FriendRequestAccepted}).
		Where(
			s.db.Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
				Or("sender_id = ? AND receiver_id = ?", receiverID, senderID),
		).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("friend service: check existing request: %w", err)
	}
	if existing > 0 {
		return nil, apperrors.NewConflict("A friend request already exists between these users", nil)
	}

	// A declined row is spent, not blocking: clear it for the pair so the
	// unique index on (sender_id, receiver_id) does not reject the retry.
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.FriendRequestDeclined).
		Where(
			s.db.Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
				Or("sender_id = ? AND receiver_id = ?", receiverID, senderID),
		).
		Delete(&models.FriendRequest{}).Error; err != nil {
		return nil, fmt.Errorf("friend service: clear declined requests: %w", err)
	}

	request := models.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.FriendRequestPending,
	}

	if err := s.db.WithContext(ctx).Create(&request).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("A friend request already exists between these users", nil)
		}
		return nil, fmt.Errorf("friend service: create request: %w", err)
	}

	s.notify(ctx, CreateNotificationInput{
		UserID:          receiverID,
		Type:            models.NotificationFriendRequest,
		Title:           "New friend request",
		Message:         "You have received a friend request",
		RelatedEntityID: request.ID,
		Metadata:        map[string]any{"sender_id": senderID},
	})

	dto := mapFriendRequest(request)
	return &dto, nil
}

// ListIncoming returns pending requests addressed to the user.
func (s *FriendService) ListIncoming(ctx context.Context, userID string) ([]FriendRequestDTO, error) {
	return s.listRequests(ctx, "receiver_id", userID, "Sender")
}

// ListOutgoing returns pending requests sent by the user.
func (s *FriendService) ListOutgoing(ctx context.Context, userID string) ([]FriendRequestDTO, error) {
	return s.listRequests(ctx, "sender_id", userID, "Receiver")
}

func (s *FriendService) listRequests(ctx context.Context, column, userID, preload string) ([]FriendRequestDTO, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("friend service: user id is required")
	}

	var rows []models.FriendRequest
	if err := s.db.WithContext(ctx).
		Preload(preload).
		Where(fmt.Sprintf("%s = ? AND status = ?", column), userID, models.FriendRequestPending).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("friend service: list requests: %w", err)
	}

	items := make([]FriendRequestDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapFriendRequest(row))
	}
	return items, nil
}

// Respond accepts or declines a pending request. Only the receiver may
// respond. Acceptance writes both friendship rows and the sender notification
// in a single transaction; a decline is terminal.
func (s *FriendService) Respond(ctx context.Context, userID, requestID string, accept bool) (*FriendRequestDTO, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	requestID = strings.TrimSpace(requestID)
	if userID == "" || requestID == "" {
		return nil, apperrors.NewBadRequest("User and request are required")
	}

	var request models.FriendRequest
	if err := s.db.WithContext(ctx).Take(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Friend request not found")
		}
		return nil, fmt.Errorf("friend service: load request: %w", err)
	}

	if request.ReceiverID != userID {
		return nil, apperrors.ErrForbidden
	}
	if request.Status != models.FriendRequestPending {
		return nil, apperrors.NewConflict("Friend request has already been answered", nil)
	}

	status := models.FriendRequestDeclined
	if accept {
		status = models.FriendRequestAccepted
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&request).Update("status", status).Error; err != nil {
			return fmt.Errorf("update status: %w", err)
		}

		if !accept {
			return nil
		}

		pairs := []models.Friendship{
			{UserID: request.SenderID, FriendID: request.ReceiverID},
			{UserID: request.ReceiverID, FriendID: request.SenderID},
		}
		for i := range pairs {
			if err := tx.Create(&pairs[i]).Error; err != nil {
				if isUniqueConstraintError(err) {
					continue
				}
				return fmt.Errorf("create friendship: %w", err)
			}
		}

		if s.notifications != nil {
			if _, err := s.notifications.CreateInTx(ctx, tx, CreateNotificationInput{
				UserID:          request.SenderID,
				Type:            models.NotificationFriendAccepted,
				Title:           "Friend request accepted",
				Message:         "Your friend request was accepted",
				RelatedEntityID: request.ID,
				Metadata:        map[string]any{"receiver_id": request.ReceiverID},
			}); err != nil {
				return fmt.Errorf("notify sender: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("friend service: respond: %w", err)
	}

	request.Status = status
	dto := mapFriendRequest(request)
	return &dto, nil
}

// Unfriend removes both direction rows of a friendship.
func (s *FriendService) Unfriend(ctx context.Context, userID, friendID string) error {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	friendID = strings.TrimSpace(friendID)
	if userID == "" || friendID == "" {
		return apperrors.NewBadRequest("User and friend are required")
	}

	result := s.db.WithContext(ctx).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			userID, friendID, friendID, userID).
		Delete(&models.Friendship{})
	if result.Error != nil {
		return fmt.Errorf("friend service: unfriend: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFound("Friendship not found")
	}

	// A new request may follow an unfriend, so the answered request rows for
	// the pair are cleared as well.
	if err := s.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, friendID, friendID, userID).
		Delete(&models.FriendRequest{}).Error; err != nil {
		return fmt.Errorf("friend service: clear requests: %w", err)
	}

	return nil
}

// ListFriends returns the user's friends.
func (s *FriendService) ListFriends(ctx context.Context, userID string) ([]models.User, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("friend service: user id is required")
	}

	var rows []models.Friendship
	if err := s.db.WithContext(ctx).
		Preload("Friend").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("friend service: list friends: %w", err)
	}

	friends := make([]models.User, 0, len(rows))
	for _, row := range rows {
		if row.Friend != nil {
			friends = append(friends, *row.Friend)
		}
	}
	return friends, nil
}

// AreFriends reports whether a friendship row links the two users.
func (s *FriendService) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(otherID) == "" {
		return false, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Friendship{}).
		Where("user_id = ? AND friend_id = ?", userID, otherID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("friend service: check friendship: %w", err)
	}
	return count > 0, nil
}

func (s *FriendService) notify(ctx context.Context, input CreateNotificationInput) {
	if s.notifications == nil {
		return
	}
	_, _ = s.notifications.Create(ctx, input)
}

func mapFriendRequest(row models.FriendRequest) FriendRequestDTO {
	return FriendRequestDTO{
		ID:         row.ID,
		SenderID:   row.SenderID,
		ReceiverID: row.ReceiverID,
		Status:     row.Status,
		Sender:     row.Sender,
		Receiver:   row.Receiver,
	}
}
