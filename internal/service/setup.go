package service

import (
	"tg-profileguard/internal/config"
	"tg-profileguard/internal/logger"
	"tg-profileguard/internal/models"
	"tg-profileguard/internal/storage"
)

var (
	ledgerStore  = models.NewLedgerStore()
	ledger       *WarningLedger
	whitelist    *WhitelistService
	captcha      *CaptchaService
	globalConfig *config.Config
)

// Initialize initializes the service with configuration
func Initialize(cfg *config.Config) {
	globalConfig = cfg
}

// InitRepositories wires the services to the database if it is
// enabled, migrates schemas, and loads persisted state into memory.
// Without a database the services run purely in memory.
func InitRepositories() {
	var warningRepo *storage.WarningRepository
	var whitelistRepo *storage.WhitelistRepository
	var captchaRepo *storage.CaptchaRepository

	if storage.DB != nil {
		warningRepo = storage.NewWarningRepository(storage.DB)
		if err := warningRepo.MigrateTable(); err != nil {
			logger.Warningf("Error migrating WarningRecord table: %v", err)
		}
		whitelistRepo = storage.NewWhitelistRepository(storage.DB)
		if err := whitelistRepo.MigrateTable(); err != nil {
			logger.Warningf("Error migrating PhotoWhitelist table: %v", err)
		}
		captchaRepo = storage.NewCaptchaRepository(storage.DB)
		if err := captchaRepo.MigrateTable(); err != nil {
			logger.Warningf("Error migrating PendingCaptcha table: %v", err)
		}
	}

	ledger = NewWarningLedger(ledgerStore, warningRepo)
	whitelist = NewWhitelistService(whitelistRepo)
	captcha = NewCaptchaService(captchaRepo)

	if storage.DB != nil {
		if err := storage.LoadIntoStore(ledgerStore); err != nil {
			logger.Warningf("Error loading warning records from database: %v", err)
		} else {
			logger.Infof("Loaded %d warning records from database into ledger", ledgerStore.Len())
		}
		if err := whitelist.Load(); err != nil {
			logger.Warningf("Error loading photo whitelist from database: %v", err)
		}
	}
}

// Ledger returns the warning ledger
func Ledger() *WarningLedger {
	return ledger
}

// Whitelist returns the photo verification whitelist service
func Whitelist() *WhitelistService {
	return whitelist
}

// Captcha returns the pending captcha service
func Captcha() *CaptchaService {
	return captcha
}
