package services

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/sahilchouksey/university-explorer/model"
)

// columnSetter writes one parsed source value into a record. It returns
// false when the value cannot be parsed, leaving the record untouched.
type columnSetter func(rec *model.InstitutionRecord, value string) bool

// nameColumns are the normalised headers accepted as the join key
var nameColumns = []string{"name", "institution", "institution_name", "university_name", "university"}

// idColumns are the normalised headers that carry a stable source identifier
var idColumns = []string{"unitid", "id_number", "id"}

// knownColumns maps normalised IPEDS, CWUR and THE headers onto the schema
var knownColumns = map[string]columnSetter{
	// identity
	"state":                                 setString(func(r *model.InstitutionRecord) *string { return &r.Institution.State }),
	"state_abbreviation":                    setString(func(r *model.InstitutionRecord) *string { return &r.Institution.State }),
	"country":                               setString(func(r *model.InstitutionRecord) *string { return &r.Institution.Country }),
	"sector":                                setString(func(r *model.InstitutionRecord) *string { return &r.Institution.Sector }),
	"sector_of_institution":                 setString(func(r *model.InstitutionRecord) *string { return &r.Institution.Sector }),
	"city":                                  setString(func(r *model.InstitutionRecord) *string { return &r.Institution.City }),
	"city_location_of_institution":          setString(func(r *model.InstitutionRecord) *string { return &r.Institution.City }),
	"zip":                                   setString(func(r *model.InstitutionRecord) *string { return &r.Institution.Zip }),
	"zip_code":                              setString(func(r *model.InstitutionRecord) *string { return &r.Institution.Zip }),
	"address":                               setString(func(r *model.InstitutionRecord) *string { return &r.Institution.Address }),
	"street_address_or_post_office_box":     setString(func(r *model.InstitutionRecord) *string { return &r.Institution.Address }),
	"website":                               setString(func(r *model.InstitutionRecord) *string { return &r.Institution.Website }),
	"institutions_internet_website_address": setString(func(r *model.InstitutionRecord) *string { return &r.Institution.Website }),
	"latitude":                              setFloat(func(r *model.InstitutionRecord) **float64 { return &r.Institution.Latitude }),
	"latitude_location_of_institution":      setFloat(func(r *model.InstitutionRecord) **float64 { return &r.Institution.Latitude }),
	"longitude":                             setFloat(func(r *model.InstitutionRecord) **float64 { return &r.Institution.Longitude }),
	"longitude_location_of_institution":     setFloat(func(r *model.InstitutionRecord) **float64 { return &r.Institution.Longitude }),

	// admissions
	"applicants":       setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.Applicants }),
	"applicants_total": setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.Applicants }),
	"admissions":       setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.Admissions }),
	"admissions_total": setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.Admissions }),
	"enrolled":         setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.Enrolled }),
	"enrolled_total":   setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.Enrolled }),
	"total_enrollment": setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.TotalEnrollment }),
	"num_students":     setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.TotalEnrollment }),
	"sat_critical_reading_25th_percentile_score": setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.SATReading25 }),
	"sat_critical_reading_75th_percentile_score": setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.SATReading75 }),
	"sat_reading_25":                      setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.SATReading25 }),
	"sat_reading_75":                      setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.SATReading75 }),
	"sat_math_25th_percentile_score":      setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.SATMath25 }),
	"sat_math_75th_percentile_score":      setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.SATMath75 }),
	"sat_math_25":                         setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.SATMath25 }),
	"sat_math_75":                         setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.SATMath75 }),
	"sat_writing_25th_percentile_score":   setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.SATWriting25 }),
	"sat_writing_75th_percentile_score":   setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.SATWriting75 }),
	"sat_writing_25":                      setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.SATWriting25 }),
	"sat_writing_75":                      setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.SATWriting75 }),
	"sat_total_25":                        setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.SATTotal25 }),
	"sat_total_75":                        setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.SATTotal75 }),
	"act_composite_25th_percentile_score": setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.ACTComposite25 }),
	"act_composite_75th_percentile_score": setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.ACTComposite75 }),
	"act_composite_25":                    setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.ACTComposite25 }),
	"act_composite_75":                    setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.ACTComposite75 }),

	// rankings
	"world_rank":             setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.WorldRank }),
	"national_rank":          setInt(func(r *model.InstitutionRecord) **int { return &r.Institution.NationalRank }),
	"total_score":            setFloat(func(r *model.InstitutionRecord) **float64 { return &r.Institution.TotalScore }),
	"score":                  setFloat(func(r *model.InstitutionRecord) **float64 { return &r.Institution.TotalScore }),
	"teaching":               setFloat(func(r *model.InstitutionRecord) **float64 { return &r.Institution.Teaching }),
	"international":          setFloat(func(r *model.InstitutionRecord) **float64 { return &r.Institution.International }),
	"research":               setFloat(func(r *model.InstitutionRecord) **float64 { return &r.Institution.Research }),
	"citations":              setFloat(func(r *model.InstitutionRecord) **float64 { return &r.Institution.Citations }),
	"income":                 setFloat(func(r *model.InstitutionRecord) **float64 { return &r.Institution.Income }),
	"student_staff_ratio":    setFloat(func(r *model.InstitutionRecord) **float64 { return &r.Institution.StudentStaffRatio }),
	"international_students": setString(func(r *model.InstitutionRecord) *string { return &r.Institution.InternationalStudents }),
	"female_male_ratio":      setString(func(r *model.InstitutionRecord) *string { return &r.Institution.FemaleMaleRatio }),

	// degree offerings
	"offers_bachelors":                               setDegree(func(d *model.DegreeOffering) *bool { return &d.OffersBachelors }),
	"offers_bachelors_degree":                        setDegree(func(d *model.DegreeOffering) *bool { return &d.OffersBachelors }),
	"offers_masters":                                 setDegree(func(d *model.DegreeOffering) *bool { return &d.OffersMasters }),
	"offers_masters_degree":                          setDegree(func(d *model.DegreeOffering) *bool { return &d.OffersMasters }),
	"offers_doctorate":                               setDegree(func(d *model.DegreeOffering) *bool { return &d.OffersDoctorate }),
	"offers_doctors_degree_research_scholarship":     setDegree(func(d *model.DegreeOffering) *bool { return &d.OffersDoctorate }),
	"offers_doctors_degree_professional_practice":    setDegree(func(d *model.DegreeOffering) *bool { return &d.OffersDoctorate }),
	"offers_doctors_degree_other":                    setDegree(func(d *model.DegreeOffering) *bool { return &d.OffersDoctorate }),
	"offers_year_certificate":                        setDegree(func(d *model.DegreeOffering) *bool { return &d.OffersYearCertificate }),
	"offers_less_than_one_year_certificate":          setDegree(func(d *model.DegreeOffering) *bool { return &d.OffersYearCertificate }),
	"offers_one_but_less_than_two_years_certificate": setDegree(func(d *model.DegreeOffering) *bool { return &d.OffersYearCertificate }),
	"offers_two_but_less_than_4_years_certificate":   setDegree(func(d *model.DegreeOffering) *bool { return &d.OffersYearCertificate }),
	"offers_post_bachelors_certificate":              setDegree(func(d *model.DegreeOffering) *bool { return &d.OffersPostBachelorsCertificate }),
	"offers_postbaccalaureate_certificate":           setDegree(func(d *model.DegreeOffering) *bool { return &d.OffersPostBachelorsCertificate }),
	"offers_post_masters_certificate":                setDegree(func(d *model.DegreeOffering) *bool { return &d.OffersPostMastersCertificate }),
	"offers_post_doctorate_certificate":              setDegree(func(d *model.DegreeOffering) *bool { return &d.OffersPostDoctorateCertificate }),
	"offers_doctors_degree_certificate":              setDegree(func(d *model.DegreeOffering) *bool { return &d.OffersPostDoctorateCertificate }),
	"highest_degree":                                 setHighestDegree,
	"highest_degree_offered":                         setHighestDegree,

	// classification
	"is_hbcu": setIdentityFlag(func(i *model.InstitutionIdentity) *bool { return &i.IsHBCU }),
	"hbcu":    setIdentityFlag(func(i *model.InstitutionIdentity) *bool { return &i.IsHBCU }),
	"historically_black_college_or_university": setIdentityFlag(func(i *model.InstitutionIdentity) *bool { return &i.IsHBCU }),
	"is_tribal":                          setIdentityFlag(func(i *model.InstitutionIdentity) *bool { return &i.IsTribal }),
	"tribal_college":                     setIdentityFlag(func(i *model.InstitutionIdentity) *bool { return &i.IsTribal }),
	"religious_affiliation":              setIdentityText(func(i *model.InstitutionIdentity) *string { return &i.ReligiousAffiliation }),
	"control_type":                       setIdentityText(func(i *model.InstitutionIdentity) *string { return &i.ControlType }),
	"control_of_institution":             setIdentityText(func(i *model.InstitutionIdentity) *string { return &i.ControlType }),
	"carnegie_classification":            setIdentityText(func(i *model.InstitutionIdentity) *string { return &i.CarnegieClassification }),
	"carnegie_classification_2010_basic": setIdentityText(func(i *model.InstitutionIdentity) *string { return &i.CarnegieClassification }),
}

// normalizeHeader lower-cases a header and collapses every run of
// non-alphanumerics to "_": "Offers Bachelor's degree" -> "offers_bachelors_degree"
func normalizeHeader(header string) string {
	header = strings.TrimPrefix(header, "\ufeff")
	header = strings.NewReplacer("'", "", "\u2019", "").Replace(header)

	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(header) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// isMissing treats the usual spreadsheet null markers as absent
func isMissing(value string) bool {
	switch strings.ToLower(value) {
	case "", "na", "n/a", "nan", "null", "none", "-", "--", ".":
		return true
	}
	return false
}

func parseNumber(value string) (float64, bool) {
	value = strings.TrimSuffix(strings.ReplaceAll(value, ",", ""), "%")
	value = strings.TrimPrefix(value, "=")
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	return f, err == nil
}

// parseFlag accepts the IPEDS spellings ("Yes", "No", "Implied no") and the usual booleans
func parseFlag(value string) (bool, bool) {
	switch strings.ToLower(value) {
	case "yes", "y", "true", "t", "1", "1.0":
		return true, true
	case "no", "n", "false", "f", "0", "0.0", "implied no", "not applicable":
		return false, true
	}
	return false, false
}

func setString(field func(*model.InstitutionRecord) *string) columnSetter {
	return func(rec *model.InstitutionRecord, value string) bool {
		*field(rec) = value
		return true
	}
}

func setInt(field func(*model.InstitutionRecord) **int) columnSetter {
	return func(rec *model.InstitutionRecord, value string) bool {
		f, ok := parseNumber(value)
		if !ok {
			return false
		}
		n := int(f)
		*field(rec) = &n
		return true
	}
}

func setFloat(field func(*model.InstitutionRecord) **float64) columnSetter {
	return func(rec *model.InstitutionRecord, value string) bool {
		f, ok := parseNumber(value)
		if !ok {
			return false
		}
		*field(rec) = &f
		return true
	}
}

// setDegree ORs the flag so several source columns can feed one field
func setDegree(field func(*model.DegreeOffering) *bool) columnSetter {
	return func(rec *model.InstitutionRecord, value string) bool {
		flag, ok := parseFlag(value)
		if !ok {
			return false
		}
		if rec.Degree == nil {
			rec.Degree = &model.DegreeOffering{}
		}
		target := field(rec.Degree)
		*target = *target || flag
		return true
	}
}

func setHighestDegree(rec *model.InstitutionRecord, value string) bool {
	if rec.Degree == nil {
		rec.Degree = &model.DegreeOffering{}
	}
	rec.Degree.HighestDegree = value
	return true
}

func setIdentityFlag(field func(*model.InstitutionIdentity) *bool) columnSetter {
	return func(rec *model.InstitutionRecord, value string) bool {
		flag, ok := parseFlag(value)
		if !ok {
			return false
		}
		if rec.Identity == nil {
			rec.Identity = &model.InstitutionIdentity{}
		}
		*field(rec.Identity) = flag
		return true
	}
}

func setIdentityText(field func(*model.InstitutionIdentity) *string) columnSetter {
	return func(rec *model.InstitutionRecord, value string) bool {
		if rec.Identity == nil {
			rec.Identity = &model.InstitutionIdentity{}
		}
		*field(rec.Identity) = value
		return true
	}
}

// deriveSATTotals fills the combined SAT band from reading + math when the
// source has no explicit total
func deriveSATTotals(in *model.Institution) {
	if in.SATTotal25 == nil && in.SATReading25 != nil && in.SATMath25 != nil {
		total := *in.SATReading25 + *in.SATMath25
		in.SATTotal25 = &total
	}
	if in.SATTotal75 == nil && in.SATReading75 != nil && in.SATMath75 != nil {
		total := *in.SATReading75 + *in.SATMath75
		in.SATTotal75 = &total
	}
}
