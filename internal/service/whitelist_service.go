package service

import (
	"fmt"
	"sync"

	"tg-profileguard/internal/logger"
	"tg-profileguard/internal/models"
	"tg-profileguard/internal/storage"
)

// WhitelistService keeps the photo verification whitelist in memory
// with write-through to the repository when one is attached.
type WhitelistService struct {
	mu    sync.RWMutex
	users map[int64]bool
	repo  *storage.WhitelistRepository
}

// NewWhitelistService creates an empty whitelist service. repo may be
// nil when database support is disabled.
func NewWhitelistService(repo *storage.WhitelistRepository) *WhitelistService {
	return &WhitelistService{
		users: make(map[int64]bool),
		repo:  repo,
	}
}

// Load populates the in-memory set from the repository.
func (s *WhitelistService) Load() error {
	if s.repo == nil {
		return nil
	}

	records, err := s.repo.GetAll()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		s.users[record.UserID] = true
	}
	logger.Infof("Loaded %d photo whitelist entries from database", len(records))
	return nil
}

// Contains reports whether the user is photo-whitelisted.
func (s *WhitelistService) Contains(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[userID]
}

// Add whitelists a user. Returns an error if already whitelisted.
func (s *WhitelistService) Add(userID, verifiedByAdminID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.users[userID] {
		return fmt.Errorf("user %d is already whitelisted", userID)
	}
	s.users[userID] = true

	if s.repo != nil {
		record := &models.PhotoWhitelist{UserID: userID, VerifiedByAdminID: verifiedByAdminID}
		if err := s.repo.Create(record); err != nil {
			logger.Warningf("Error persisting whitelist entry for user %d: %v", userID, err)
		}
	}
	return nil
}

// Remove deletes a user from the whitelist. Returns an error if the
// user was not whitelisted.
func (s *WhitelistService) Remove(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.users[userID] {
		return fmt.Errorf("user %d is not in whitelist", userID)
	}
	delete(s.users, userID)

	if s.repo != nil {
		if err := s.repo.Delete(userID); err != nil {
			logger.Warningf("Error deleting whitelist entry for user %d: %v", userID, err)
		}
	}
	return nil
}
