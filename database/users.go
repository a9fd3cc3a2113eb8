package database

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func FetchUser(ctx context.Context, db *gorm.DB, id uint64) (*User, error) {
	var u User
	err := db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertWalletUser finds the user owning walletAddress (compared lower-case)
// or creates one. A non-nil username or fid overwrites the stored value.
func UpsertWalletUser(ctx context.Context, db *gorm.DB, walletAddress string, username *string, fid *uint64) (*User, error) {
	wallet := strings.ToLower(walletAddress)

	var u User
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("wallet_address = ?", wallet).First(&u).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			u = User{WalletAddress: &wallet, Username: username, Fid: fid}
			return tx.Create(&u).Error
		}
		if err != nil {
			return err
		}

		changes := map[string]interface{}{}
		if username != nil {
			changes["username"] = *username
			u.Username = username
		}
		if fid != nil {
			changes["fid"] = *fid
			u.Fid = fid
		}
		if len(changes) == 0 {
			return nil
		}
		return tx.Model(&User{}).Where("id = ?", u.ID).Updates(changes).Error
	})
	if err != nil {
		return nil, errors.Wrap(err, "UpsertWalletUser")
	}

	return &u, nil
}
