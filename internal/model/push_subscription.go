package model

import (
	"time"

	"github.com/google/uuid"
)

// PushSubscription holds a browser push subscription for a user. The role is
// recorded so role-wide escalations (e.g. absence notices to every admin) can
// fan out without consulting the identity service.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Role      string    `gorm:"size:30;index"`
	CreatedAt time.Time `gorm:"not null"`
}
