package model

// InstitutionIdentity holds the classification flags of an institution.
type InstitutionIdentity struct {
	ID                     uint   `gorm:"primaryKey" json:"id"`
	InstitutionID          uint   `gorm:"not null;uniqueIndex" json:"institution_id"`
	IsHBCU                 bool   `gorm:"column:is_hbcu;not null;default:false" json:"is_hbcu"`
	IsTribal               bool   `gorm:"not null;default:false" json:"is_tribal"`
	ReligiousAffiliation   string `gorm:"type:varchar(120)" json:"religious_affiliation"`
	ControlType            string `gorm:"type:varchar(60);index" json:"control_type"` // Public, Private not-for-profit, ...
	CarnegieClassification string `gorm:"type:varchar(255)" json:"carnegie_classification"`
}

// TableName specifies the table name for InstitutionIdentity
func (InstitutionIdentity) TableName() string {
	return "institution_identities"
}
