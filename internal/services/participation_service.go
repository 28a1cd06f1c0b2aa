package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/aruzhans/oppora/internal/models"
	"github.com/aruzhans/oppora/internal/privacy"
	apperrors "github.com/aruzhans/oppora/pkg/errors"
)

// ParticipationDTO is the privacy-filtered view of a participation record.
// Others lists fellow participants of the same opportunity, each filtered
// against the viewer's relationship with that participant.
type ParticipationDTO struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	OpportunityID string              `json:"opportunity_id"`
	Year          int                 `json:"year"`
	PrivacyLevel  privacy.Level       `json:"privacy_level,omitempty"`
	Feedback      string              `json:"feedback,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	User          *models.User        `json:"user,omitempty"`
	Opportunity   *models.Opportunity `json:"opportunity,omitempty"`
	Others        []ParticipationDTO  `json:"others,omitempty"`
}

// CreateParticipationInput captures a new participation record.
type CreateParticipationInput struct {
	UserID        string
	OpportunityID string
	Year          int
	PrivacyLevel  privacy.Level
	Feedback      string
}

// ParticipationService manages participation history and its visibility.
type ParticipationService struct {
	db      *gorm.DB
	friends *FriendService
}

// NewParticipationService constructs a ParticipationService.
func NewParticipationService(db *gorm.DB, friendService *FriendService) (*ParticipationService, error) {
	if db == nil {
		return nil, errors.New("participation service: db is required")
	}
	if friendService == nil {
		return nil, errors.New("participation service: friend service is required")
	}
	return &ParticipationService{db: db, friends: friendService}, nil
}

// Create records that the user took part in an opportunity for a given year.
func (s *ParticipationService) Create(ctx context.Context, input CreateParticipationInput) (*models.Participation, error) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(input.UserID)
	opportunityID := strings.TrimSpace(input.OpportunityID)
	if userID == "" || opportunityID == "" {
		return nil, apperrors.NewBadRequest("User and opportunity are required")
	}
	if input.Year < 1900 || input.Year > time.Now().Year()+1 {
		return nil, apperrors.NewBadRequest("Year is out of range")
	}

	level := input.PrivacyLevel
	if level == "" {
		level = privacy.DefaultLevel
	}
	if !level.Valid() {
		return nil, apperrors.NewBadRequest("Unknown privacy level")
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Opportunity{}).
		Where("id = ?", opportunityID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("participation service: find opportunity: %w", err)
	}
	if count == 0 {
		return nil, apperrors.NewNotFound("Opportunity not found")
	}

	participation := models.Participation{
		UserID:        userID,
		OpportunityID: opportunityID,
		Year:          input.Year,
		PrivacyLevel:  level,
		Feedback:      strings.TrimSpace(input.Feedback),
	}

	if err := s.db.WithContext(ctx).Create(&participation).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("Participation for this opportunity and year already exists", nil)
		}
		return nil, fmt.Errorf("participation service: create participation: %w", err)
	}

	return &participation, nil
}

// UpdatePrivacy changes the record's privacy level. Owner only.
func (s *ParticipationService) UpdatePrivacy(ctx context.Context, userID, participationID string, level privacy.Level) (*models.Participation, error) {
	ctx = ensureContext(ctx)
	if !level.Valid() {
		return nil, apperrors.NewBadRequest("Unknown privacy level")
	}

	participation, err := s.loadOwned(ctx, userID, participationID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(participation).
		Update("privacy_level", level).Error; err != nil {
		return nil, fmt.Errorf("participation service: update privacy: %w", err)
	}

	participation.PrivacyLevel = level
	return participation, nil
}

// Delete removes the record. Owner only.
func (s *ParticipationService) Delete(ctx context.Context, userID, participationID string) error {
	ctx = ensureContext(ctx)
	participation, err := s.loadOwned(ctx, userID, participationID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(participation).Error; err != nil {
		return fmt.Errorf("participation service: delete participation: %w", err)
	}
	return nil
}

// ListForUser returns the owner's participations the viewer is allowed to see.
// Each record carries the other participants of the same opportunity, again
// filtered record by record against the viewer's relationship with each
// participant. An empty viewerID means an anonymous viewer.
func (s *ParticipationService) ListForUser(ctx context.Context, ownerID, viewerID string) ([]ParticipationDTO, error) {
	ctx = ensureContext(ctx)
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, errors.New("participation service: owner id is required")
	}

	viewer, err := s.viewerFor(ctx, viewerID, ownerID)
	if err != nil {
		return nil, err
	}

	var rows []models.Participation
	if err := s.db.WithContext(ctx).
		Preload("Opportunity").
		Preload("Opportunity.Category").
		Preload("Opportunity.Organization").
		Where("user_id = ?", ownerID).
		Order("year DESC, created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("participation service: list participations: %w", err)
	}

	items := make([]ParticipationDTO, 0, len(rows))
	for _, row := range rows {
		if !privacy.Visible(row.PrivacyLevel, viewer) {
			continue
		}

		dto := mapParticipation(row)
		others, err := s.othersFor(ctx, row, viewerID)
		if err != nil {
			return nil, err
		}
		dto.Others = others
		items = append(items, dto)
	}
	return items, nil
}

// othersFor lists fellow participants of the same opportunity, excluding the
// record's owner, keeping only what the viewer may see of each participant.
func (s *ParticipationService) othersFor(ctx context.Context, record models.Participation, viewerID string) ([]ParticipationDTO, error) {
	var rows []models.Participation
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("opportunity_id = ? AND user_id <> ?", record.OpportunityID, record.UserID).
		Order("year DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("participation service: list co-participants: %w", err)
	}

	others := make([]ParticipationDTO, 0, len(rows))
	for _, row := range rows {
		viewer, err := s.viewerFor(ctx, viewerID, row.UserID)
		if err != nil {
			return nil, err
		}
		if !privacy.Visible(row.PrivacyLevel, viewer) {
			continue
		}
		others = append(others, mapParticipation(row))
	}
	return others, nil
}

// viewerFor resolves the viewer's standing towards the record owner. A
// relationship lookup failure propagates, so friends-only material fails
// closed instead of defaulting open.
func (s *ParticipationService) viewerFor(ctx context.Context, viewerID, ownerID string) (privacy.Viewer, error) {
	viewerID = strings.TrimSpace(viewerID)
	if viewerID == "" {
		return privacy.Anonymous, nil
	}
	if viewerID == ownerID {
		return privacy.Viewer{IsSelf: true, IsFriend: true}, nil
	}

	isFriend, err := s.friends.AreFriends(ctx, ownerID, viewerID)
	if err != nil {
		return privacy.Anonymous, err
	}
	return privacy.Viewer{IsFriend: isFriend}, nil
}

func (s *ParticipationService) loadOwned(ctx context.Context, userID, participationID string) (*models.Participation, error) {
	userID = strings.TrimSpace(userID)
	participationID = strings.TrimSpace(participationID)
	if userID == "" || participationID == "" {
		return nil, apperrors.NewBadRequest("User and participation are required")
	}

	var participation models.Participation
	if err := s.db.WithContext(ctx).Take(&participation, "id = ?", participationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("Participation not found")
		}
		return nil, fmt.Errorf("participation service: load participation: %w", err)
	}

	if participation.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return &participation, nil
}

func mapParticipation(row models.Participation) ParticipationDTO {
	return ParticipationDTO{
		ID:            row.ID,
		UserID:        row.UserID,
		OpportunityID: row.OpportunityID,
		Year:          row.Year,
		PrivacyLevel:  row.PrivacyLevel,
		Feedback:      row.Feedback,
		CreatedAt:     row.CreatedAt,
		User:          row.User,
		Opportunity:   row.Opportunity,
	}
}
