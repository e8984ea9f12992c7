package auth

import (
	"context"
	"strconv"
	"strings"

	"github.com/hugh/campuschat/internal/database/models"
	"gorm.io/gorm"
)

const maxUsernameLen = 150

// UniqueUsernameFromEmail derives a username from the local part of an email
// address, probing numeric suffixes until the candidate is free. The result
// never exceeds maxUsernameLen even when the suffix grows.
func UniqueUsernameFromEmail(ctx context.Context, db *gorm.DB, email string) (string, error) {
	base := strings.SplitN(email, "@", 2)[0]
	if base == "" {
		base = "user"
	}
	if len(base) > maxUsernameLen {
		base = base[:maxUsernameLen]
	}

	candidate := base
	for suffix := 1; ; suffix++ {
		var count int64
		err := db.WithContext(ctx).
			Model(&models.User{}).
			Where("username = ?", candidate).
			Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}

		tail := strconv.Itoa(suffix)
		candidate = base[:min(len(base), maxUsernameLen-len(tail))] + tail
	}
}
