// Package checker implements the profile-completeness oracle: a user
// is compliant when they have at least one public profile photo (or an
// admin has whitelisted them) and a username set.
package checker

import (
	"context"
	"fmt"
	"strings"

	"github.com/mymmrac/telego"

	"tg-profileguard/internal/service"
)

// Result is the outcome of a profile check.
type Result struct {
	HasProfilePhoto bool
	HasUsername     bool
}

// IsComplete reports whether both profile requirements are met.
func (r Result) IsComplete() bool {
	return r.HasProfilePhoto && r.HasUsername
}

// MissingItems lists the unmet requirements as display strings.
func (r Result) MissingItems() []string {
	var missing []string
	if !r.HasProfilePhoto {
		missing = append(missing, "a public profile photo")
	}
	if !r.HasUsername {
		missing = append(missing, "a username")
	}
	return missing
}

// MissingText joins the unmet requirements into one display string.
func (r Result) MissingText() string {
	return strings.Join(r.MissingItems(), " and ")
}

// Checker checks profiles through the Telegram API, consulting the
// photo whitelist first to skip the API call for verified users.
type Checker struct {
	bot       *telego.Bot
	whitelist *service.WhitelistService
}

// New creates a profile checker.
func New(bot *telego.Bot, whitelist *service.WhitelistService) *Checker {
	return &Checker{bot: bot, whitelist: whitelist}
}

// Check returns the profile state for a user. The username comes from
// the message sender; the photo requires one API call unless the user
// is whitelisted.
func (c *Checker) Check(ctx context.Context, userID int64, username string) (Result, error) {
	result := Result{HasUsername: username != ""}

	if c.whitelist != nil && c.whitelist.Contains(userID) {
		result.HasProfilePhoto = true
		return result, nil
	}

	photos, err := c.bot.GetUserProfilePhotos(ctx, &telego.GetUserProfilePhotosParams{
		UserID: userID,
		Limit:  1,
	})
	if err != nil {
		return Result{}, fmt.Errorf("error getting profile photos for user %d: %w", userID, err)
	}

	result.HasProfilePhoto = photos.TotalCount > 0
	return result, nil
}
