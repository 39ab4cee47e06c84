package model

import "time"

// DegreeOfferingView is the degree part of a flattened institution.
// Every field is null when the institution has no degree_offerings row.
type DegreeOfferingView struct {
	OffersBachelors                *bool   `json:"offers_bachelors"`
	OffersMasters                  *bool   `json:"offers_masters"`
	OffersDoctorate                *bool   `json:"offers_doctorate"`
	OffersYearCertificate          *bool   `json:"offers_year_certificate"`
	OffersPostBachelorsCertificate *bool   `json:"offers_post_bachelors_certificate"`
	OffersPostMastersCertificate   *bool   `json:"offers_post_masters_certificate"`
	OffersPostDoctorateCertificate *bool   `json:"offers_post_doctorate_certificate"`
	HighestDegree                  *string `json:"highest_degree"`
}

// IdentityView is the classification part of a flattened institution.
// Every field is null when the institution has no institution_identities row.
type IdentityView struct {
	IsHBCU                 *bool   `json:"is_hbcu"`
	IsTribal               *bool   `json:"is_tribal"`
	ReligiousAffiliation   *string `json:"religious_affiliation"`
	ControlType            *string `json:"control_type"`
	CarnegieClassification *string `json:"carnegie_classification"`
}

// InstitutionView is the API projection of an institution with its
// companion records flattened into the same object
type InstitutionView struct {
	Institution
	DegreeOfferingView
	IdentityView
}

// NewInstitutionView flattens in and whichever companions were preloaded
func NewInstitutionView(in Institution) InstitutionView {
	view := InstitutionView{Institution: in}
	if d := in.DegreeOffering; d != nil {
		view.DegreeOfferingView = DegreeOfferingView{
			OffersBachelors:                boolPtr(d.OffersBachelors),
			OffersMasters:                  boolPtr(d.OffersMasters),
			OffersDoctorate:                boolPtr(d.OffersDoctorate),
			OffersYearCertificate:          boolPtr(d.OffersYearCertificate),
			OffersPostBachelorsCertificate: boolPtr(d.OffersPostBachelorsCertificate),
			OffersPostMastersCertificate:   boolPtr(d.OffersPostMastersCertificate),
			OffersPostDoctorateCertificate: boolPtr(d.OffersPostDoctorateCertificate),
			HighestDegree:                  stringPtr(d.HighestDegree),
		}
	}
	if id := in.Identity; id != nil {
		view.IdentityView = IdentityView{
			IsHBCU:                 boolPtr(id.IsHBCU),
			IsTribal:               boolPtr(id.IsTribal),
			ReligiousAffiliation:   stringPtr(id.ReligiousAffiliation),
			ControlType:            stringPtr(id.ControlType),
			CarnegieClassification: stringPtr(id.CarnegieClassification),
		}
	}
	return view
}

// InstitutionStats is the aggregate over the whole dataset
type InstitutionStats struct {
	TotalUniversities int64    `json:"total_universities"`
	AvgScore          *float64 `json:"avg_score"`
	MaxScore          *float64 `json:"max_score"`
	MinScore          *float64 `json:"min_score"`
	AvgEnrollment     *float64 `json:"avg_enrollment"`
	TotalCountries    int64    `json:"total_countries"`
	TotalStates       int64    `json:"total_states"`
}

// MatchView is a match joined with the matched institution's name
type MatchView struct {
	ID              uint      `json:"id"`
	InstitutionID   uint      `json:"institution_id"`
	InstitutionName string    `json:"institution_name"`
	SwipeID         *uint     `json:"swipe_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// SwipeView is a swipe joined with the institution's name
type SwipeView struct {
	ID              uint           `json:"id"`
	InstitutionID   uint           `json:"institution_id"`
	InstitutionName string         `json:"institution_name"`
	Direction       SwipeDirection `json:"direction"`
	Note            *string        `json:"note,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

func boolPtr(b bool) *bool {
	return &b
}

func stringPtr(s string) *string {
	return &s
}
