package queryHelper

import (
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/sahilchouksey/university-explorer/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRunDB returns a postgres-dialect GORM handle that never opens a
// connection, so generated SQL can be inspected offline
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=test dbname=test sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func listSQL(db *gorm.DB, scopes ...func(*gorm.DB) *gorm.DB) string {
	return db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rows []model.Institution
		return tx.Model(&model.Institution{}).Scopes(scopes...).Find(&rows)
	})
}

// whereConditions splits the WHERE clause of a generated statement into a
// sorted list of its AND-ed conditions
func whereConditions(sql string) []string {
	idx := strings.Index(sql, " WHERE ")
	if idx < 0 {
		return nil
	}
	where := sql[idx+len(" WHERE "):]
	for _, stop := range []string{" ORDER BY ", " LIMIT ", " OFFSET "} {
		if i := strings.Index(where, stop); i >= 0 {
			where = where[:i]
		}
	}
	parts := strings.Split(where, " AND ")
	for i := range parts {
		parts[i] = strings.Trim(parts[i], "() ")
	}
	sort.Strings(parts)
	return parts
}

func ptr[T any](v T) *T { return &v }

func TestPagination_Validate(t *testing.T) {
	tests := []struct {
		name    string
		page    Pagination
		wantErr bool
	}{
		{"defaults", DefaultPagination(DefaultLimit), false},
		{"smallest page", Pagination{Offset: 0, Limit: 1}, false},
		{"largest page", Pagination{Offset: 500, Limit: MaxLimit}, false},
		{"zero limit", Pagination{Offset: 0, Limit: 0}, true},
		{"limit above max", Pagination{Offset: 0, Limit: MaxLimit + 1}, true},
		{"negative offset", Pagination{Offset: -1, Limit: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.page.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPagination))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDefaultPagination_FallsBackOnBadLimit(t *testing.T) {
	assert.Equal(t, Pagination{Offset: 0, Limit: 10}, DefaultPagination(10))
	assert.Equal(t, Pagination{Offset: 0, Limit: DefaultLimit}, DefaultPagination(0))
	assert.Equal(t, Pagination{Offset: 0, Limit: DefaultLimit}, DefaultPagination(1000))
}

func TestInstitutionFilter_EmptyFilterHasNoWhere(t *testing.T) {
	db := dryRunDB(t)
	f := InstitutionFilter{}

	assert.True(t, f.IsEmpty())
	sql := listSQL(db, f.Scope())
	assert.NotContains(t, sql, "WHERE")
	assert.NotContains(t, sql, "JOIN")
}

func TestInstitutionFilter_NameIsCaseInsensitiveSubstring(t *testing.T) {
	db := dryRunDB(t)
	sql := listSQL(db, InstitutionFilter{NameContains: ptr("Mines")}.Scope())

	assert.Contains(t, sql, `institutions.name ILIKE '%Mines%'`)
}

func TestInstitutionFilter_NameEscapesWildcards(t *testing.T) {
	db := dryRunDB(t)
	sql := listSQL(db, InstitutionFilter{NameContains: ptr("100%_sure")}.Scope())

	assert.Contains(t, sql, `100\%\_sure`)
}

func TestInstitutionFilter_BlankNameIsIgnored(t *testing.T) {
	db := dryRunDB(t)
	sql := listSQL(db, InstitutionFilter{NameContains: ptr("   ")}.Scope())

	assert.NotContains(t, sql, "ILIKE")
}

func TestInstitutionFilter_StatesUseSetMembership(t *testing.T) {
	db := dryRunDB(t)
	sql := listSQL(db, InstitutionFilter{States: []string{"CO", "CA"}}.Scope())

	assert.Contains(t, sql, "institutions.state IN ('CO','CA')")
}

func TestInstitutionFilter_DegreeOptionRequiresJoin(t *testing.T) {
	db := dryRunDB(t)

	masters := listSQL(db, InstitutionFilter{OffersMasters: ptr(true)}.Scope())
	assert.Contains(t, masters, "JOIN degree_offerings ON degree_offerings.institution_id = institutions.id")
	assert.Contains(t, masters, "degree_offerings.offers_masters = true")
	assert.NotContains(t, masters, "institution_identities")

	bachelors := listSQL(db, InstitutionFilter{OffersBachelors: ptr(true)}.Scope())
	assert.Contains(t, bachelors, "degree_offerings.offers_bachelors = true")
}

func TestInstitutionFilter_IdentityOptionRequiresJoin(t *testing.T) {
	db := dryRunDB(t)
	sql := listSQL(db, InstitutionFilter{IsHBCU: ptr(true), ControlType: ptr("Public")}.Scope())

	assert.Contains(t, sql, "JOIN institution_identities ON institution_identities.institution_id = institutions.id")
	assert.Contains(t, sql, "institution_identities.is_hbcu = true")
	assert.Contains(t, sql, "institution_identities.control_type = 'Public'")
	assert.NotContains(t, sql, "degree_offerings")
}

func TestInstitutionFilter_RangePredicates(t *testing.T) {
	db := dryRunDB(t)
	sql := listSQL(db, InstitutionFilter{
		MinTestScore:  ptr(1200),
		MaxTestScore:  ptr(1400),
		MinTotalScore: ptr(70.5),
		MaxEnrollment: ptr(20000),
	}.Scope())

	assert.Contains(t, sql, "institutions.sat_total_75 >= 1200")
	assert.Contains(t, sql, "institutions.sat_total_25 <= 1400")
	assert.Contains(t, sql, "institutions.total_score >= 70.5")
	assert.Contains(t, sql, "institutions.total_enrollment <= 20000")
}

func TestInstitutionFilter_PartitionsAreEquivalent(t *testing.T) {
	db := dryRunDB(t)

	a := InstitutionFilter{NameContains: ptr("State"), OffersBachelors: ptr(true)}
	b := InstitutionFilter{Country: ptr("USA"), IsTribal: ptr(false)}
	c := InstitutionFilter{OffersDoctorate: ptr(true), MaxEnrollment: ptr(5000)}

	combined := listSQL(db, a.Merge(b).Merge(c).Scope())
	chained := listSQL(db, a.Merge(b).Scope(), c.Scope())
	reversed := listSQL(db, c.Scope(), b.Scope(), a.Scope())

	assert.Equal(t, whereConditions(combined), whereConditions(chained))
	assert.Equal(t, whereConditions(combined), whereConditions(reversed))
	assert.Equal(t, 1, strings.Count(chained, "JOIN degree_offerings"))
	assert.Equal(t, 1, strings.Count(reversed, "JOIN institution_identities"))
}

func TestInstitutionFilter_MergeKeepsDisjointOptions(t *testing.T) {
	a := InstitutionFilter{States: []string{"CO"}}
	b := InstitutionFilter{Sector: ptr("Public, 4-year or above")}

	merged := a.Merge(b)
	assert.Equal(t, []string{"CO"}, merged.States)
	require.NotNil(t, merged.Sector)
	assert.Equal(t, "Public, 4-year or above", *merged.Sector)
	assert.Equal(t, merged, b.Merge(a))
}

func TestParseSort(t *testing.T) {
	s, err := ParseSort("")
	require.NoError(t, err)
	assert.Equal(t, SortID, s)

	s, err = ParseSort(" -Total_Score ")
	require.NoError(t, err)
	assert.Equal(t, SortTotalScoreDesc, s)

	_, err = ParseSort("name; DROP TABLE institutions")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSort))
}

func TestSort_AlwaysBreaksTiesByID(t *testing.T) {
	db := dryRunDB(t)

	sql := listSQL(db, SortTotalScoreDesc.Scope())
	assert.Contains(t, sql, "ORDER BY institutions.total_score DESC NULLS LAST,institutions.id ASC")

	sql = listSQL(db, SortID.Scope())
	assert.Contains(t, sql, "ORDER BY institutions.id ASC")
	assert.NotContains(t, sql, "institutions.id ASC,institutions.id ASC")
}

func TestPagination_Scope(t *testing.T) {
	db := dryRunDB(t)
	sql := listSQL(db, Pagination{Offset: 20, Limit: 10}.Scope())

	assert.Contains(t, sql, "LIMIT 10 OFFSET 20")
}
