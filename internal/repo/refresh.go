package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
	jwthelp "github.com/Skotchmaster/storefront/pkg/jwt"
)

func NewRefreshRecord(token, jti string, userID uuid.UUID, exp time.Time) *models.RefreshToken {
	return &models.RefreshToken{
		Token:     jwthelp.Sha256Hex(token),
		UserID:    userID,
		JTI:       jti,
		ExpiresAt: exp.Unix(),
	}
}

func (r *GormRepo) AddRefreshToken(ctx context.Context, rec *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(rec).Error
}

func (r *GormRepo) FindRefreshByJTI(ctx context.Context, jti string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("jti = ?", jti).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// RotateRefreshToken revokes the presented token and stores its successor in
// one transaction. The presented token must match the stored hash, belong to
// the stored jti, and be neither revoked nor expired.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, oldJTI, oldToken string, next *models.RefreshToken, now time.Time) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur models.RefreshToken
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("jti = ?", oldJTI).First(&cur).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRefreshRevoked
		}
		if err != nil {
			return err
		}
		if cur.Revoked || cur.ExpiresAt < now.Unix() || cur.Token != jwthelp.Sha256Hex(oldToken) {
			return ErrRefreshRevoked
		}

		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked = ?", cur.ID, false).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRefreshRevoked
		}

		return tx.Create(next).Error
	})
}

func (r *GormRepo) RevokeRefreshToken(ctx context.Context, token string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", jwthelp.Sha256Hex(token)).
		Update("revoked", true).Error
}

// DeleteStaleRefreshTokens removes tokens that expired before the cutoff.
func (r *GormRepo) DeleteStaleRefreshTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Where("expires_at < ?", cutoff.Unix()).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}
