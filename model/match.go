package model

import "time"

// Match is created from a right swipe
type Match struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	InstitutionID uint      `gorm:"not null;index" json:"institution_id"`
	SwipeID       *uint     `gorm:"index" json:"swipe_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`

	Institution *Institution `gorm:"foreignKey:InstitutionID;constraint:OnDelete:CASCADE" json:"-"`
	Swipe       *Swipe       `gorm:"foreignKey:SwipeID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName specifies the table name for Match
func (Match) TableName() string {
	return "matches"
}
