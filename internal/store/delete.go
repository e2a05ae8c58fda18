package store

import (
	"context"
	"strconv"

	"cardauth/internal/domain"

	"gorm.io/gorm"
)

// DeleteUserData removes the user's row and everything owned by it inside one
// transaction, child rows first so foreign keys hold at every step. Invite
// codes the user issued are deleted; codes the user redeemed stay used but
// lose their used_by_user_id. The returned map holds per-table row counts
// removed. ErrRecordNotFound is returned when no user row existed.
func (s *Store) DeleteUserData(ctx context.Context, userID domain.UserID) (map[string]int64, error) {
	deleted := map[string]int64{}

	err := s.WithTx(ctx, func(tx *Store) error {
		db := tx.DB.WithContext(ctx)

		var user domain.User
		if err := db.First(&user, "id = ?", userID).Error; err != nil {
			return translate(err)
		}

		del := func(label string, query *gorm.DB) error {
			if query.Error != nil {
				return query.Error
			}
			deleted[label] = query.RowsAffected
			return nil
		}

		if err := del("passwordCredentials", db.Where("user_id = ?", userID).Delete(&domain.PasswordCredential{})); err != nil {
			return err
		}
		if err := del("sessions", db.Where("user_id = ?", userID).Delete(&domain.Session{})); err != nil {
			return err
		}
		if err := del("passwordResetTokens", db.Where("kind = ? AND owner = ?", domain.TokenPasswordReset, strconv.FormatInt(userID, 10)).Delete(&domain.OneTimeToken{})); err != nil {
			return err
		}
		if err := del("emailVerificationTokens", db.Where("kind = ? AND owner = ?", domain.TokenEmailVerification, user.Email).Delete(&domain.OneTimeToken{})); err != nil {
			return err
		}
		if err := del("inviteCodes", db.Where("created_by_user_id = ?", userID).Delete(&domain.InviteCode{})); err != nil {
			return err
		}
		redeemed := db.Model(&domain.InviteCode{}).
			Where("used_by_user_id = ?", userID).
			Update("used_by_user_id", nil)
		if err := del("redeemedInviteCodes", redeemed); err != nil {
			return err
		}

		users := db.Where("id = ?", userID).Delete(&domain.User{})
		if err := del("users", users); err != nil {
			return err
		}
		if users.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
