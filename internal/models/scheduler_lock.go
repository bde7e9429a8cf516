package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SchedulerLock keeps scheduled jobs such as the outbox relay from running
// on more than one instance at a time.
type SchedulerLock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LockName  string    `gorm:"uniqueIndex:idx_lock_name_key;size:100;not null" json:"lock_name"`
	LockKey   string    `gorm:"uniqueIndex:idx_lock_name_key;size:100;not null" json:"lock_key"`
	LockedBy  string    `gorm:"size:100" json:"locked_by"`
	LockedAt  time.Time `json:"locked_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

func (SchedulerLock) TableName() string { return "scheduler_locks" }

// AcquireLock takes the named lock for owner until ttl elapses. It returns
// false when another owner holds an unexpired lock.
func AcquireLock(db *gorm.DB, name, key, owner string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	acquired := false
	err := db.Transaction(func(tx *gorm.DB) error {
		// Make sure the row exists; concurrent inserts collapse on the unique index.
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&SchedulerLock{
			LockName:  name,
			LockKey:   key,
			ExpiresAt: time.Time{}.UTC(),
		}).Error; err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		res := tx.Model(&SchedulerLock{}).
			Where("lock_name = ? AND lock_key = ?", name, key).
			Where("expires_at < ? OR locked_by = ?", now, owner).
			Updates(map[string]any{
				"locked_by":  owner,
				"locked_at":  now,
				"expires_at": now.Add(ttl),
			})
		if res.Error != nil {
			return res.Error
		}
		acquired = res.RowsAffected == 1
		return nil
	})
	return acquired, err
}

// ReleaseLock gives up a lock held by owner.
func ReleaseLock(db *gorm.DB, name, key, owner string) error {
	return db.Model(&SchedulerLock{}).
		Where("lock_name = ? AND lock_key = ? AND locked_by = ?", name, key, owner).
		Update("expires_at", time.Time{}.UTC()).Error
}
