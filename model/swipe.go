package model

import "time"

// SwipeDirection is the preference signal recorded by a swipe
type SwipeDirection string

const (
	SwipeLeft  SwipeDirection = "left"
	SwipeRight SwipeDirection = "right"
)

// IsValid reports whether d is one of the known directions
func (d SwipeDirection) IsValid() bool {
	return d == SwipeLeft || d == SwipeRight
}

// Swipe is an append-only preference log entry. Rows are never updated.
type Swipe struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	InstitutionID uint           `gorm:"not null;index" json:"institution_id"`
	Direction     SwipeDirection `gorm:"type:varchar(5);not null" json:"direction"`
	Note          *string        `gorm:"type:text" json:"note,omitempty"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`

	Institution *Institution `gorm:"foreignKey:InstitutionID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Swipe
func (Swipe) TableName() string {
	return "swipes"
}
