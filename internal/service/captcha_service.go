package service

import (
	"sync"

	"tg-profileguard/internal/logger"
	"tg-profileguard/internal/models"
	"tg-profileguard/internal/storage"
)

type captchaKey struct {
	GroupID int64
	UserID  int64
}

// CaptchaService tracks unanswered join challenges, persisted so that
// a restart can pick up challenges whose timeout never fired.
type CaptchaService struct {
	mu      sync.Mutex
	pending map[captchaKey]*models.PendingCaptcha
	repo    *storage.CaptchaRepository
}

// NewCaptchaService creates an empty captcha service. repo may be nil
// when database support is disabled.
func NewCaptchaService(repo *storage.CaptchaRepository) *CaptchaService {
	return &CaptchaService{
		pending: make(map[captchaKey]*models.PendingCaptcha),
		repo:    repo,
	}
}

// Load populates pending challenges from the repository and returns
// them so the caller can resume their timeouts.
func (s *CaptchaService) Load() ([]*models.PendingCaptcha, error) {
	if s.repo == nil {
		return nil, nil
	}

	records, err := s.repo.GetAll()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		s.pending[captchaKey{GroupID: record.GroupID, UserID: record.UserID}] = record
	}
	return records, nil
}

// Add registers a pending challenge.
func (s *CaptchaService) Add(record *models.PendingCaptcha) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[captchaKey{GroupID: record.GroupID, UserID: record.UserID}] = record

	if s.repo != nil {
		if err := s.repo.Create(record); err != nil {
			logger.Warningf("Error persisting pending captcha for user %d: %v", record.UserID, err)
		}
	}
}

// Remove clears a pending challenge. Returns false if none was
// pending, so the timeout path and the verify path cannot both act.
func (s *CaptchaService) Remove(groupID, userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := captchaKey{GroupID: groupID, UserID: userID}
	if _, ok := s.pending[key]; !ok {
		return false
	}
	delete(s.pending, key)

	if s.repo != nil {
		if err := s.repo.Delete(groupID, userID); err != nil {
			logger.Warningf("Error deleting pending captcha for user %d: %v", userID, err)
		}
	}
	return true
}
