package services

import (
	"errors"

	"leadstore/models"

	"gorm.io/gorm"
)

// AddCredits atomically increments a user's balance. n must be positive.
func AddCredits(tx *gorm.DB, userID string, n int64) error {
	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("credits", gorm.Expr("credits + ?", n))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DebitCredits decrements a user's balance in a single conditional
// update: the WHERE clause rejects any debit that would go negative, so
// concurrent orders near the threshold cannot both pass a separate
// balance check.
func DebitCredits(tx *gorm.DB, userID string, n int64) error {
	res := tx.Model(&models.User{}).
		Where("id = ? AND credits >= ?", userID, n).
		Update("credits", gorm.Expr("credits - ?", n))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish a missing user from a thin balance.
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrInsufficientCredits
	}
	return nil
}

// IsNotFound reports whether err is the storage layer's not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
