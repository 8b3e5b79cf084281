package domain

import (
	"time"
)

// Actor is a registered identity. KeyHash is the bcrypt hash of the actor's
// proof key; every mutating call must present the key for the actor it names.
type Actor struct {
	Address     string    `gorm:"column:address;primaryKey" json:"address"`
	DisplayName string    `gorm:"column:display_name;not null" json:"display_name"`
	KeyHash     string    `gorm:"column:key_hash;not null" json:"-"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Actor) TableName() string {
	return "actors"
}
