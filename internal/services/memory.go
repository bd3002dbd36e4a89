package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"wealth-go-api/internal/models"
)

var (
	// ErrEmptyUserID is returned when an operation names no user.
	ErrEmptyUserID   = errors.New("user id is required")
	ErrInvalidUserID = errors.New("invalid user id")
)

const (
	usersCollection    = "users"
	messagesCollection = "messages"
)

// MemoryService remembers each user's conversation, preferences and saved
// portfolio. With a Firestore client a user is a users/{id} document with a
// messages sub-collection; without one everything lives in process memory.
type MemoryService struct {
	client *firestore.Client
	log    zerolog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	messages map[string][]models.Message
	profiles map[string]*models.UserProfile
}

func NewMemoryService(client *firestore.Client, log zerolog.Logger) *MemoryService {
	return &MemoryService{
		client:   client,
		log:      log.With().Str("component", "memory").Logger(),
		now:      time.Now,
		messages: map[string][]models.Message{},
		profiles: map[string]*models.UserProfile{},
	}
}

// Store names the backing store for health reporting.
func (s *MemoryService) Store() string {
	if s.client != nil {
		return "firestore"
	}
	return "memory"
}

func checkUser(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", ErrEmptyUserID
	}
	if strings.Contains(userID, "/") {
		return "", fmt.Errorf("%w: %q must not contain '/'", ErrInvalidUserID, userID)
	}
	return userID, nil
}

func (s *MemoryService) userDoc(userID string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(userID)
}

// AddMessage appends one turn to the user's conversation.
func (s *MemoryService) AddMessage(ctx context.Context, userID, role, content string) (models.Message, error) {
	userID, err := checkUser(userID)
	if err != nil {
		return models.Message{}, err
	}
	msg := models.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}

	if s.client != nil {
		if _, err := s.userDoc(userID).Collection(messagesCollection).Doc(msg.ID).Set(ctx, msg); err != nil {
			return models.Message{}, fmt.Errorf("failed to store message: %w", err)
		}
		return msg, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[userID] = append(s.messages[userID], msg)
	return msg, nil
}

// RecentMessages returns the last limit messages, oldest first.
func (s *MemoryService) RecentMessages(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	userID, err := checkUser(userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	if s.client != nil {
		docs, err := s.userDoc(userID).Collection(messagesCollection).
			OrderBy("created_at", firestore.Desc).
			Limit(limit).
			Documents(ctx).GetAll()
		if err != nil {
			return nil, fmt.Errorf("failed to load messages: %w", err)
		}
		msgs := make([]models.Message, 0, len(docs))
		for _, doc := range docs {
			var m models.Message
			if err := doc.DataTo(&m); err != nil {
				return nil, fmt.Errorf("failed to decode message %s: %w", doc.Ref.ID, err)
			}
			msgs = append(msgs, m)
		}
		slices.Reverse(msgs)
		return msgs, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.messages[userID]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return slices.Clone(all), nil
}

// ClearHistory removes the conversation but keeps preferences and portfolio.
func (s *MemoryService) ClearHistory(ctx context.Context, userID string) error {
	userID, err := checkUser(userID)
	if err != nil {
		return err
	}

	if s.client != nil {
		iter := s.userDoc(userID).Collection(messagesCollection).Documents(ctx)
		defer iter.Stop()
		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return fmt.Errorf("failed to list messages: %w", err)
			}
			if _, err := doc.Ref.Delete(ctx); err != nil {
				return fmt.Errorf("failed to delete message %s: %w", doc.Ref.ID, err)
			}
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Debug().Str("user_id", userID).Int("messages", len(s.messages[userID])).Msg("Clearing conversation history")
	delete(s.messages, userID)
	return nil
}

// Profile returns the stored profile, or an empty one for unknown users.
func (s *MemoryService) Profile(ctx context.Context, userID string) (models.UserProfile, error) {
	userID, err := checkUser(userID)
	if err != nil {
		return models.UserProfile{}, err
	}

	if s.client != nil {
		snap, err := s.userDoc(userID).Get(ctx)
		if status.Code(err) == codes.NotFound {
			return models.UserProfile{UserID: userID}, nil
		}
		if err != nil {
			return models.UserProfile{}, fmt.Errorf("failed to load profile: %w", err)
		}
		var p models.UserProfile
		if err := snap.DataTo(&p); err != nil {
			return models.UserProfile{}, fmt.Errorf("failed to decode profile: %w", err)
		}
		p.UserID = userID
		return p, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return models.UserProfile{UserID: userID}, nil
	}
	out := *p
	out.Preferences = maps.Clone(p.Preferences)
	out.Portfolio = slices.Clone(p.Portfolio)
	return out, nil
}

// SavePreferences merges prefs into the stored preferences.
func (s *MemoryService) SavePreferences(ctx context.Context, userID string, prefs map[string]any) error {
	userID, err := checkUser(userID)
	if err != nil {
		return err
	}

	if s.client != nil {
		data := map[string]any{"user_id": userID, "updated_at": s.now().UTC(), "preferences": prefs}
		// Set with MergeAll creates the document when missing and merges the map otherwise.
		if _, err := s.userDoc(userID).Set(ctx, data, firestore.MergeAll); err != nil {
			return fmt.Errorf("failed to save preferences: %w", err)
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profileLocked(userID)
	if p.Preferences == nil {
		p.Preferences = map[string]any{}
	}
	maps.Copy(p.Preferences, prefs)
	p.UpdatedAt = s.now().UTC()
	return nil
}

// SavePortfolio replaces the stored portfolio.
func (s *MemoryService) SavePortfolio(ctx context.Context, userID string, holdings []models.Holding) error {
	userID, err := checkUser(userID)
	if err != nil {
		return err
	}

	if s.client != nil {
		data := map[string]any{"user_id": userID, "updated_at": s.now().UTC(), "portfolio": holdings}
		if _, err := s.userDoc(userID).Set(ctx, data, firestore.Merge([]string{"user_id"}, []string{"updated_at"}, []string{"portfolio"})); err != nil {
			return fmt.Errorf("failed to save portfolio: %w", err)
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profileLocked(userID)
	p.Portfolio = slices.Clone(holdings)
	p.UpdatedAt = s.now().UTC()
	return nil
}

func (s *MemoryService) profileLocked(userID string) *models.UserProfile {
	p, ok := s.profiles[userID]
	if !ok {
		p = &models.UserProfile{UserID: userID}
		s.profiles[userID] = p
	}
	return p
}

// Summary describes what is remembered about the user.
func (s *MemoryService) Summary(ctx context.Context, userID string) (models.MemorySummary, error) {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return models.MemorySummary{}, err
	}

	summary := models.MemorySummary{
		UserID:         profile.UserID,
		Preferences:    profile.Preferences,
		HoldingCount:   len(profile.Portfolio),
		PortfolioValue: models.Portfolio{Holdings: profile.Portfolio}.TotalValue(),
		Store:          s.Store(),
	}
	if summary.Preferences == nil {
		summary.Preferences = map[string]any{}
	}

	if s.client != nil {
		count, err := s.userDoc(profile.UserID).Collection(messagesCollection).NewAggregationQuery().WithCount("all").Get(ctx)
		if err != nil {
			return models.MemorySummary{}, fmt.Errorf("failed to count messages: %w", err)
		}
		if v, ok := count["all"].(interface{ GetIntegerValue() int64 }); ok {
			summary.MessageCount = int(v.GetIntegerValue())
		}
		last, err := s.RecentMessages(ctx, profile.UserID, 1)
		if err != nil {
			return models.MemorySummary{}, err
		}
		if len(last) == 1 {
			summary.LastActive = &last[0].CreatedAt
		}
		return summary, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[profile.UserID]
	summary.MessageCount = len(msgs)
	if len(msgs) > 0 {
		t := msgs[len(msgs)-1].CreatedAt
		summary.LastActive = &t
	}
	return summary, nil
}
