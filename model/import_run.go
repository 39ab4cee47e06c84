package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ImportRun records one full replace of the institution dataset
type ImportRun struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	PrimarySource    string         `gorm:"type:text;not null" json:"primary_source"`
	SecondarySource  string         `gorm:"type:text" json:"secondary_source"`
	PrimaryRows      int            `json:"primary_rows"`
	MatchedRows      int            `json:"matched_rows"` // primary rows that found a secondary row
	InstitutionCount int            `json:"institution_count"`
	DegreeCount      int            `json:"degree_count"`
	IdentityCount    int            `json:"identity_count"`
	Summary          datatypes.JSON `gorm:"type:jsonb" json:"summary,omitempty"`
	StartedAt        time.Time      `gorm:"not null" json:"started_at"`
	CompletedAt      time.Time      `json:"completed_at"`
}

// TableName specifies the table name for ImportRun
func (ImportRun) TableName() string {
	return "import_runs"
}

// InstitutionRecord is one merged source row ready to be loaded. Degree and
// Identity are nil when the source row carried none of their columns.
type InstitutionRecord struct {
	Institution Institution
	Degree      *DegreeOffering
	Identity    *InstitutionIdentity
}
