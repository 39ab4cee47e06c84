package database

import (
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/university-explorer/model"
	"gorm.io/gorm"
)

// Seeder loads a small sample dataset for local development
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Info("🌱 Starting database seeding...")

	if err := s.SeedInstitutions(); err != nil {
		return fmt.Errorf("failed to seed institutions: %w", err)
	}

	log.Info("✅ Database seeding completed successfully!")
	return nil
}

// SeedInstitutions inserts the sample institutions together with their
// companion rows. Existing data is left untouched.
func (s *Seeder) SeedInstitutions() error {
	var count int64
	if err := s.db.Model(&model.Institution{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Info("⏭️  Institutions already exist, skipping...")
		return nil
	}

	institutions := SampleInstitutions()
	if err := s.db.Create(&institutions).Error; err != nil {
		return err
	}

	log.Infof("✅ Created %d institutions", len(institutions))
	return nil
}

// SampleInstitutions returns the development dataset. Gallaudet has no
// identity row and Deep Springs has no degree offering row, so both
// "unknown" paths are represented.
func SampleInstitutions() []model.Institution {
	return []model.Institution{
		{
			Name:            "Colorado School of Mines",
			State:           "CO",
			Country:         "United States",
			Sector:          "Public, 4-year or above",
			City:            "Golden",
			Website:         "https://www.mines.edu",
			Latitude:        floatPtr(39.7510),
			Longitude:       floatPtr(-105.2226),
			Applicants:      intPtr(11741),
			Admissions:      intPtr(6375),
			Enrolled:        intPtr(1381),
			TotalEnrollment: intPtr(7048),
			SATTotal25:      intPtr(1300),
			SATTotal75:      intPtr(1470),
			WorldRank:       intPtr(358),
			NationalRank:    intPtr(147),
			TotalScore:      floatPtr(71.2),
			DegreeOffering: &model.DegreeOffering{
				OffersBachelors: true,
				OffersMasters:   true,
				OffersDoctorate: true,
				HighestDegree:   "Doctor's degree - research/scholarship",
			},
			Identity: &model.InstitutionIdentity{
				ControlType:            "Public",
				CarnegieClassification: "Doctoral Universities: High Research Activity",
			},
		},
		{
			Name:            "Howard University",
			State:           "DC",
			Country:         "United States",
			Sector:          "Private not-for-profit, 4-year or above",
			City:            "Washington",
			Website:         "https://howard.edu",
			Applicants:      intPtr(29389),
			Admissions:      intPtr(10163),
			Enrolled:        intPtr(2379),
			TotalEnrollment: intPtr(12065),
			SATTotal25:      intPtr(1120),
			SATTotal75:      intPtr(1290),
			TotalScore:      floatPtr(66.4),
			DegreeOffering: &model.DegreeOffering{
				OffersBachelors: true,
				OffersMasters:   true,
				OffersDoctorate: true,
				HighestDegree:   "Doctor's degree - research/scholarship and professional practice",
			},
			Identity: &model.InstitutionIdentity{
				IsHBCU:                 true,
				ControlType:            "Private not-for-profit",
				CarnegieClassification: "Doctoral Universities: Very High Research Activity",
			},
		},
		{
			Name:            "Navajo Technical University",
			State:           "NM",
			Country:         "United States",
			Sector:          "Public, 4-year or above",
			City:            "Crownpoint",
			TotalEnrollment: intPtr(2037),
			DegreeOffering: &model.DegreeOffering{
				OffersBachelors:       true,
				OffersMasters:         true,
				OffersYearCertificate: true,
				HighestDegree:         "Master's degree",
			},
			Identity: &model.InstitutionIdentity{
				IsTribal:    true,
				ControlType: "Public",
			},
		},
		{
			Name:            "University of Notre Dame",
			State:           "IN",
			Country:         "United States",
			Sector:          "Private not-for-profit, 4-year or above",
			City:            "Notre Dame",
			Website:         "https://www.nd.edu",
			TotalEnrollment: intPtr(13105),
			SATTotal25:      intPtr(1410),
			SATTotal75:      intPtr(1540),
			WorldRank:       intPtr(178),
			NationalRank:    intPtr(67),
			TotalScore:      floatPtr(76.9),
			DegreeOffering: &model.DegreeOffering{
				OffersBachelors: true,
				OffersMasters:   true,
				OffersDoctorate: true,
				HighestDegree:   "Doctor's degree - research/scholarship and professional practice",
			},
			Identity: &model.InstitutionIdentity{
				ReligiousAffiliation:   "Roman Catholic",
				ControlType:            "Private not-for-profit",
				CarnegieClassification: "Doctoral Universities: Very High Research Activity",
			},
		},
		{
			Name:            "Gallaudet University",
			State:           "DC",
			Country:         "United States",
			Sector:          "Private not-for-profit, 4-year or above",
			City:            "Washington",
			TotalEnrollment: intPtr(1486),
			DegreeOffering: &model.DegreeOffering{
				OffersBachelors: true,
				OffersMasters:   true,
				OffersDoctorate: true,
				HighestDegree:   "Doctor's degree - research/scholarship",
			},
		},
		{
			Name:            "Deep Springs College",
			State:           "CA",
			Country:         "United States",
			Sector:          "Private not-for-profit, 2-year",
			City:            "Big Pine",
			TotalEnrollment: intPtr(26),
			Identity: &model.InstitutionIdentity{
				ControlType: "Private not-for-profit",
			},
		},
		{
			Name:         "University of Toronto",
			Country:      "Canada",
			City:         "Toronto",
			WorldRank:    intPtr(21),
			NationalRank: intPtr(1),
			TotalScore:   floatPtr(88.2),
		},
	}
}

// RunSeeds is a convenience function to run all seeds
func RunSeeds(db *gorm.DB) error {
	seeder := NewSeeder(db)
	return seeder.SeedAll()
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
