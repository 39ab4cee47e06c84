package model

import (
	"time"

	"gorm.io/datatypes"
)

// Institution is one row of the merged university dataset.
// Nullable numeric columns are pointers so that a missing value in the
// source data stays distinguishable from zero.
type Institution struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	Name      string   `gorm:"type:text;not null;index" json:"name"`
	State     string   `gorm:"type:varchar(64);index" json:"state"`
	Country   string   `gorm:"type:varchar(120);index" json:"country"`
	Sector    string   `gorm:"type:varchar(120)" json:"sector"`
	City      string   `gorm:"type:varchar(120)" json:"city"`
	Zip       string   `gorm:"type:varchar(20)" json:"zip"`
	Address   string   `gorm:"type:text" json:"address"`
	Website   string   `gorm:"type:varchar(255)" json:"website"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	// Admissions
	Applicants      *int `json:"applicants"`
	Admissions      *int `json:"admissions"`
	Enrolled        *int `json:"enrolled"`
	TotalEnrollment *int `gorm:"index" json:"total_enrollment"`
	SATReading25    *int `gorm:"column:sat_reading_25" json:"sat_reading_25"`
	SATReading75    *int `gorm:"column:sat_reading_75" json:"sat_reading_75"`
	SATMath25       *int `gorm:"column:sat_math_25" json:"sat_math_25"`
	SATMath75       *int `gorm:"column:sat_math_75" json:"sat_math_75"`
	SATWriting25    *int `gorm:"column:sat_writing_25" json:"sat_writing_25"`
	SATWriting75    *int `gorm:"column:sat_writing_75" json:"sat_writing_75"`
	SATTotal25      *int `gorm:"column:sat_total_25" json:"sat_total_25"` // reading + math
	SATTotal75      *int `gorm:"column:sat_total_75" json:"sat_total_75"`
	ACTComposite25  *int `gorm:"column:act_composite_25" json:"act_composite_25"`
	ACTComposite75  *int `gorm:"column:act_composite_75" json:"act_composite_75"`

	// Rankings (CWUR / THE)
	WorldRank             *int     `json:"world_rank"`
	NationalRank          *int     `json:"national_rank"`
	TotalScore            *float64 `gorm:"index" json:"total_score"`
	Teaching              *float64 `json:"teaching"`
	International         *float64 `json:"international"`
	Research              *float64 `json:"research"`
	Citations             *float64 `json:"citations"`
	Income                *float64 `json:"income"`
	StudentStaffRatio     *float64 `json:"student_staff_ratio"`
	InternationalStudents string   `gorm:"type:varchar(20)" json:"international_students"`
	FemaleMaleRatio       string   `gorm:"type:varchar(20)" json:"female_male_ratio"`

	// Source columns that have no dedicated field
	Extra datatypes.JSON `gorm:"type:jsonb" json:"extra,omitempty"`

	CreatedAt time.Time `json:"-"`

	// Relationships
	DegreeOffering *DegreeOffering      `gorm:"foreignKey:InstitutionID;constraint:OnDelete:CASCADE" json:"-"`
	Identity       *InstitutionIdentity `gorm:"foreignKey:InstitutionID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Institution
func (Institution) TableName() string {
	return "institutions"
}
