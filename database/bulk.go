package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/lib/pq"
	"github.com/sahilchouksey/university-explorer/model"
)

var institutionColumns = []string{
	"id", "name", "state", "country", "sector", "city", "zip", "address", "website",
	"latitude", "longitude",
	"applicants", "admissions", "enrolled", "total_enrollment",
	"sat_reading_25", "sat_reading_75", "sat_math_25", "sat_math_75",
	"sat_writing_25", "sat_writing_75", "sat_total_25", "sat_total_75",
	"act_composite_25", "act_composite_75",
	"world_rank", "national_rank", "total_score",
	"teaching", "international", "research", "citations", "income",
	"student_staff_ratio", "international_students", "female_male_ratio",
	"extra", "created_at",
}

var degreeColumns = []string{
	"institution_id", "offers_bachelors", "offers_masters", "offers_doctorate",
	"offers_year_certificate", "offers_post_bachelors_certificate",
	"offers_post_masters_certificate", "offers_post_doctorate_certificate",
	"highest_degree",
}

var identityColumns = []string{
	"institution_id", "is_hbcu", "is_tribal", "religious_affiliation",
	"control_type", "carnegie_classification",
}

func institutionValues(in *model.Institution, now time.Time) []interface{} {
	var extra interface{}
	if len(in.Extra) > 0 {
		extra = string(in.Extra)
	}
	return []interface{}{
		in.ID, in.Name, in.State, in.Country, in.Sector, in.City, in.Zip, in.Address, in.Website,
		in.Latitude, in.Longitude,
		in.Applicants, in.Admissions, in.Enrolled, in.TotalEnrollment,
		in.SATReading25, in.SATReading75, in.SATMath25, in.SATMath75,
		in.SATWriting25, in.SATWriting75, in.SATTotal25, in.SATTotal75,
		in.ACTComposite25, in.ACTComposite75,
		in.WorldRank, in.NationalRank, in.TotalScore,
		in.Teaching, in.International, in.Research, in.Citations, in.Income,
		in.StudentStaffRatio, in.InternationalStudents, in.FemaleMaleRatio,
		extra, now,
	}
}

func degreeValues(institutionID uint, d *model.DegreeOffering) []interface{} {
	return []interface{}{
		institutionID, d.OffersBachelors, d.OffersMasters, d.OffersDoctorate,
		d.OffersYearCertificate, d.OffersPostBachelorsCertificate,
		d.OffersPostMastersCertificate, d.OffersPostDoctorateCertificate,
		d.HighestDegree,
	}
}

func identityValues(institutionID uint, id *model.InstitutionIdentity) []interface{} {
	return []interface{}{
		institutionID, id.IsHBCU, id.IsTribal, id.ReligiousAffiliation,
		id.ControlType, id.CarnegieClassification,
	}
}

// assignIDs keeps the source identifiers already on the records and numbers
// the rest in record order with the smallest ids not taken, so a file without
// identifiers gets 1..n. A repeated identifier is renumbered too.
func assignIDs(records []model.InstitutionRecord) {
	used := make(map[uint]bool, len(records))
	for i := range records {
		id := records[i].Institution.ID
		if id == 0 {
			continue
		}
		if used[id] {
			records[i].Institution.ID = 0
			continue
		}
		used[id] = true
	}

	next := uint(1)
	for i := range records {
		if records[i].Institution.ID != 0 {
			continue
		}
		for used[next] {
			next++
		}
		records[i].Institution.ID = next
		used[next] = true
	}
}

// upsertInstitutionsSQL moves the staged rows into institutions, updating
// rows whose id already exists and keeping their created_at
func upsertInstitutionsSQL() string {
	cols := strings.Join(institutionColumns, ", ")
	var updates []string
	for _, col := range institutionColumns {
		if col == "id" || col == "created_at" {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	return fmt.Sprintf("INSERT INTO institutions (%s) SELECT %s FROM institutions_staging ON CONFLICT (id) DO UPDATE SET %s",
		cols, cols, strings.Join(updates, ", "))
}

// ReplaceInstitutions replaces the dataset with records inside one
// transaction. Institutions are staged with COPY and upserted by id, so rows
// that keep their id keep their swipes and matches; only institutions absent
// from records are deleted, which cascades to their preferences. Degree
// offerings and identities are reloaded in full.
func (s *PostgreSQLStore) ReplaceInstitutions(ctx context.Context, records []model.InstitutionRecord, run *model.ImportRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.setSearchPath(ctx, tx); err != nil {
		return fmt.Errorf("failed to set search_path: %w", err)
	}

	assignIDs(records)

	for _, table := range []string{"degree_offerings", "institution_identities"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"CREATE TEMP TABLE institutions_staging (LIKE institutions INCLUDING DEFAULTS) ON COMMIT DROP"); err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}

	now := time.Now().UTC()

	// institutions
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("institutions_staging", institutionColumns...))
	if err != nil {
		return fmt.Errorf("failed to prepare institutions copy: %w", err)
	}
	for i := range records {
		if _, err := stmt.ExecContext(ctx, institutionValues(&records[i].Institution, now)...); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy institution %q: %w", records[i].Institution.Name, err)
		}
	}
	if err := flushCopy(ctx, stmt); err != nil {
		return fmt.Errorf("failed to flush institutions copy: %w", err)
	}

	removed, err := tx.ExecContext(ctx,
		"DELETE FROM institutions WHERE id NOT IN (SELECT id FROM institutions_staging)")
	if err != nil {
		return fmt.Errorf("failed to remove dropped institutions: %w", err)
	}
	vanished, _ := removed.RowsAffected()

	if _, err := tx.ExecContext(ctx, upsertInstitutionsSQL()); err != nil {
		return fmt.Errorf("failed to upsert institutions: %w", err)
	}

	// degree_offerings
	degrees := 0
	stmt, err = tx.PrepareContext(ctx, pq.CopyIn("degree_offerings", degreeColumns...))
	if err != nil {
		return fmt.Errorf("failed to prepare degree_offerings copy: %w", err)
	}
	for i := range records {
		if records[i].Degree == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, degreeValues(records[i].Institution.ID, records[i].Degree)...); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy degree offering for %q: %w", records[i].Institution.Name, err)
		}
		degrees++
	}
	if err := flushCopy(ctx, stmt); err != nil {
		return fmt.Errorf("failed to flush degree_offerings copy: %w", err)
	}

	// institution_identities
	identities := 0
	stmt, err = tx.PrepareContext(ctx, pq.CopyIn("institution_identities", identityColumns...))
	if err != nil {
		return fmt.Errorf("failed to prepare institution_identities copy: %w", err)
	}
	for i := range records {
		if records[i].Identity == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, identityValues(records[i].Institution.ID, records[i].Identity)...); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy identity for %q: %w", records[i].Institution.Name, err)
		}
		identities++
	}
	if err := flushCopy(ctx, stmt); err != nil {
		return fmt.Errorf("failed to flush institution_identities copy: %w", err)
	}

	// COPY with explicit ids leaves the sequence behind
	if _, err := tx.ExecContext(ctx,
		"SELECT setval(pg_get_serial_sequence('institutions', 'id'), GREATEST((SELECT COALESCE(MAX(id), 0) FROM institutions), 1))"); err != nil {
		return fmt.Errorf("failed to reset institutions sequence: %w", err)
	}

	if run != nil {
		run.InstitutionCount = len(records)
		run.DegreeCount = degrees
		run.IdentityCount = identities
		run.CompletedAt = time.Now().UTC()

		var summary interface{}
		if len(run.Summary) > 0 {
			summary = string(run.Summary)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO import_runs
			(id, primary_source, secondary_source, primary_rows, matched_rows, institution_count, degree_count, identity_count, summary, started_at, completed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			run.ID.String(), run.PrimarySource, run.SecondarySource, run.PrimaryRows, run.MatchedRows,
			run.InstitutionCount, run.DegreeCount, run.IdentityCount, summary, run.StartedAt, run.CompletedAt,
		); err != nil {
			return fmt.Errorf("failed to record import run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}

	log.Infow("Replaced institution dataset",
		"institutions", len(records), "removed", vanished, "degree_offerings", degrees, "identities", identities)
	return nil
}

// flushCopy sends the buffered COPY rows and closes the statement
func flushCopy(ctx context.Context, stmt *sql.Stmt) error {
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return err
	}
	return stmt.Close()
}
