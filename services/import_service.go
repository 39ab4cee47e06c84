package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/sahilchouksey/university-explorer/model"
	"github.com/sahilchouksey/university-explorer/services/spaces"
	"github.com/sahilchouksey/university-explorer/utils/metrics"
	"gorm.io/datatypes"
)

var (
	// ErrMissingNameColumn is returned when a source has no join key column
	ErrMissingNameColumn = errors.New("source has no name column")
	// ErrNoObjectStore is returned for s3:// sources when Spaces is not configured
	ErrNoObjectStore = errors.New("object storage is not configured")
)

// DatasetLoader replaces the whole institution dataset; PostgreSQLStore implements it
type DatasetLoader interface {
	ReplaceInstitutions(ctx context.Context, records []model.InstitutionRecord, run *model.ImportRun) error
}

// ObjectOpener opens s3:// locations; spaces.SpacesClient implements it
type ObjectOpener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// ImportOptions selects the two sources of an import
type ImportOptions struct {
	PrimarySource   string
	SecondarySource string
	DryRun          bool
}

// ImportSummary describes a merge and, unless dry-run, the load that followed
type ImportSummary struct {
	RunID              *uuid.UUID `json:"run_id,omitempty"`
	PrimarySource      string     `json:"primary_source"`
	SecondarySource    string     `json:"secondary_source,omitempty"`
	PrimaryRows        int        `json:"primary_rows"`
	SkippedRows        int        `json:"skipped_rows"`
	UnnamedRows        int        `json:"unnamed_rows"`
	GeneratedIDs       int        `json:"generated_ids"`
	SecondaryRows      int        `json:"secondary_rows"`
	DuplicateSecondary int        `json:"duplicate_secondary_names"`
	MatchedRows        int        `json:"matched_rows"`
	InstitutionCount   int        `json:"institution_count"`
	DegreeCount        int        `json:"degree_count"`
	IdentityCount      int        `json:"identity_count"`
	UnparseableValues  int        `json:"unparseable_values"`
	UnmappedColumns    []string   `json:"unmapped_columns"`
	DryRun             bool       `json:"dry_run"`
	DurationMillis     int64      `json:"duration_ms"`
}

// ImportService merges two name-keyed CSV files and replaces the dataset
type ImportService struct {
	loader  DatasetLoader
	objects ObjectOpener
}

// NewImportService creates an import service. objects may be nil when only
// local files are imported.
func NewImportService(loader DatasetLoader, objects ObjectOpener) *ImportService {
	return &ImportService{loader: loader, objects: objects}
}

// Run reads both sources, merges them and, unless DryRun, replaces the dataset
func (s *ImportService) Run(ctx context.Context, opts ImportOptions) (*ImportSummary, error) {
	start := time.Now()

	primary, err := s.open(ctx, opts.PrimarySource)
	if err != nil {
		return nil, err
	}
	defer primary.Close()

	var secondary io.Reader
	if opts.SecondarySource != "" {
		rc, err := s.open(ctx, opts.SecondarySource)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		secondary = rc
	}

	records, summary, err := Merge(primary, secondary)
	if err != nil {
		return nil, err
	}
	summary.PrimarySource = opts.PrimarySource
	summary.SecondarySource = opts.SecondarySource
	summary.DryRun = opts.DryRun

	if opts.DryRun {
		summary.DurationMillis = time.Since(start).Milliseconds()
		log.Infow("Import dry run finished", "institutions", summary.InstitutionCount, "matched", summary.MatchedRows)
		return summary, nil
	}

	if s.loader == nil {
		return nil, errors.New("import loader is not configured")
	}

	runID := uuid.New()
	summary.RunID = &runID
	summary.DurationMillis = time.Since(start).Milliseconds()

	raw, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode import summary: %w", err)
	}

	run := &model.ImportRun{
		ID:               runID,
		PrimarySource:    opts.PrimarySource,
		SecondarySource:  opts.SecondarySource,
		PrimaryRows:      summary.PrimaryRows,
		MatchedRows:      summary.MatchedRows,
		InstitutionCount: summary.InstitutionCount,
		DegreeCount:      summary.DegreeCount,
		IdentityCount:    summary.IdentityCount,
		Summary:          datatypes.JSON(raw),
		StartedAt:        start,
	}
	if err := s.loader.ReplaceInstitutions(ctx, records, run); err != nil {
		return nil, err
	}

	metrics.ImportRowsTotal.WithLabelValues("institutions").Add(float64(summary.InstitutionCount))
	metrics.ImportRowsTotal.WithLabelValues("degree_offerings").Add(float64(summary.DegreeCount))
	metrics.ImportRowsTotal.WithLabelValues("institution_identities").Add(float64(summary.IdentityCount))

	summary.DurationMillis = time.Since(start).Milliseconds()
	return summary, nil
}

func (s *ImportService) open(ctx context.Context, location string) (io.ReadCloser, error) {
	if location == "" {
		return nil, errors.New("import source is required")
	}
	if spaces.IsObjectURL(location) {
		if s.objects == nil {
			return nil, fmt.Errorf("%w: cannot read %s", ErrNoObjectStore, location)
		}
		return s.objects.Open(ctx, location)
	}
	file, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("failed to open import source: %w", err)
	}
	return file, nil
}

// csvTable is a parsed source with normalised headers
type csvTable struct {
	headers []string
	nameCol int
	idCol   int
	rows    [][]string
}

func readTable(r io.Reader) (*csvTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	table := &csvTable{headers: make([]string, len(header))}
	for i, h := range header {
		table.headers[i] = normalizeHeader(h)
	}
	table.nameCol = table.column(nameColumns)
	table.idCol = table.column(idColumns)
	if table.nameCol < 0 {
		return nil, ErrMissingNameColumn
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		table.rows = append(table.rows, row)
	}
	return table, nil
}

// column returns the index of the first candidate header present, or -1
func (t *csvTable) column(candidates []string) int {
	for _, candidate := range candidates {
		for i, h := range t.headers {
			if h == candidate {
				return i
			}
		}
	}
	return -1
}

func (t *csvTable) name(row []string) string {
	return t.cell(row, t.nameCol)
}

func (t *csvTable) cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// sourceID parses the row's identifier column; 0 means none
func (t *csvTable) sourceID(row []string) uint {
	id, err := strconv.ParseUint(strings.ReplaceAll(t.cell(row, t.idCol), ",", ""), 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Merge left-joins secondary onto primary by trimmed name. Every non-blank
// primary row becomes one record in source order, including rows without a
// name, which simply match nothing. For a name repeated in secondary the first
// row wins. Where both sources set a field the primary value is kept. The
// primary identifier column, when present, becomes the institution id; rows
// with a missing or repeated identifier are left at 0 for the loader to
// number. secondary may be nil.
func Merge(primary, secondary io.Reader) ([]model.InstitutionRecord, *ImportSummary, error) {
	left, err := readTable(primary)
	if err != nil {
		return nil, nil, fmt.Errorf("primary: %w", err)
	}

	summary := &ImportSummary{UnmappedColumns: []string{}}
	byName := map[string][]string{}
	var right *csvTable
	if secondary != nil {
		right, err = readTable(secondary)
		if err != nil {
			return nil, nil, fmt.Errorf("secondary: %w", err)
		}
		summary.SecondaryRows = len(right.rows)
		for _, row := range right.rows {
			name := right.name(row)
			if name == "" {
				continue
			}
			if _, dup := byName[name]; dup {
				summary.DuplicateSecondary++
				continue
			}
			byName[name] = row
		}
	}

	unmapped := map[string]bool{}
	seenIDs := map[uint]bool{}
	records := make([]model.InstitutionRecord, 0, len(left.rows))
	for _, row := range left.rows {
		summary.PrimaryRows++
		if blankRow(row) {
			summary.SkippedRows++
			continue
		}

		name := left.name(row)
		rec := model.InstitutionRecord{Institution: model.Institution{Name: name}}
		extra := map[string]string{}

		if id := left.sourceID(row); id > 0 && !seenIDs[id] {
			seenIDs[id] = true
			rec.Institution.ID = id
		} else {
			summary.GeneratedIDs++
		}

		if name == "" {
			summary.UnnamedRows++
		}

		// secondary first so that primary values overwrite it
		if right != nil && name != "" {
			if match, ok := byName[name]; ok {
				summary.MatchedRows++
				summary.UnparseableValues += applyRow(&rec, right, match, extra, unmapped)
			}
		}
		summary.UnparseableValues += applyRow(&rec, left, row, extra, unmapped)

		deriveSATTotals(&rec.Institution)
		if len(extra) > 0 {
			raw, err := json.Marshal(extra)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to encode extra columns for %q: %w", name, err)
			}
			rec.Institution.Extra = datatypes.JSON(raw)
		}

		if rec.Degree != nil {
			summary.DegreeCount++
		}
		if rec.Identity != nil {
			summary.IdentityCount++
		}
		records = append(records, rec)
	}

	summary.InstitutionCount = len(records)
	for col := range unmapped {
		summary.UnmappedColumns = append(summary.UnmappedColumns, col)
	}
	sort.Strings(summary.UnmappedColumns)
	return records, summary, nil
}

// applyRow writes one source row into rec, overwriting values set by an
// earlier row except for degree flags, which accumulate. It returns the
// number of values that could not be parsed for their column type.
func applyRow(rec *model.InstitutionRecord, table *csvTable, row []string, extra map[string]string, unmapped map[string]bool) int {
	bad := 0
	for i, header := range table.headers {
		if i == table.nameCol || i == table.idCol || i >= len(row) || header == "" {
			continue
		}
		value := strings.TrimSpace(row[i])
		if isMissing(value) {
			continue
		}

		setter, known := knownColumns[header]
		if !known {
			unmapped[header] = true
			extra[header] = value
			continue
		}
		if !setter(rec, value) {
			bad++
		}
	}
	return bad
}
