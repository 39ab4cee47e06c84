package model

// DegreeOffering records which degree levels an institution grants.
// At most one row exists per institution; a missing row means unknown.
type DegreeOffering struct {
	ID                             uint   `gorm:"primaryKey" json:"id"`
	InstitutionID                  uint   `gorm:"not null;uniqueIndex" json:"institution_id"`
	OffersBachelors                bool   `gorm:"not null;default:false" json:"offers_bachelors"`
	OffersMasters                  bool   `gorm:"not null;default:false" json:"offers_masters"`
	OffersDoctorate                bool   `gorm:"not null;default:false" json:"offers_doctorate"`
	OffersYearCertificate          bool   `gorm:"not null;default:false" json:"offers_year_certificate"`
	OffersPostBachelorsCertificate bool   `gorm:"not null;default:false" json:"offers_post_bachelors_certificate"`
	OffersPostMastersCertificate   bool   `gorm:"not null;default:false" json:"offers_post_masters_certificate"`
	OffersPostDoctorateCertificate bool   `gorm:"not null;default:false" json:"offers_post_doctorate_certificate"`
	HighestDegree                  string `gorm:"type:varchar(120)" json:"highest_degree"`
}

// TableName specifies the table name for DegreeOffering
func (DegreeOffering) TableName() string {
	return "degree_offerings"
}
