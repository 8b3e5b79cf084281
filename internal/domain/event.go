package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LedgerEvent is one structured notification: name plus ordered field tuple
// as JSON. Rows are written inside the mutating transaction so an event
// exists iff the mutation committed.
type LedgerEvent struct {
	EventID   uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	Name      string         `gorm:"column:name;type:varchar(40);not null;index" json:"name"`
	Payload   datatypes.JSON `gorm:"column:payload;not null" json:"payload"`
	EmittedAt time.Time      `gorm:"column:emitted_at" json:"emitted_at"`
}

func (LedgerEvent) TableName() string {
	return "ledger_events"
}

func (e *LedgerEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
