package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-test/deep"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/csvlint/internal/core"
	"github.com/JonMunkholm/csvlint/internal/validator"
)

// =============================================================================
// Fakes
// =============================================================================

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	execs   []execCall
	execErr error
	row     pgx.Row
	rows    pgx.Rows
	queries []string
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("DELETE 3"), nil
}

func (f *fakeDB) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, sql)
	return f.rows, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	f.queries = append(f.queries, sql)
	return f.row
}

type fakeRow struct {
	body []byte
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*[]byte) = r.body
	return nil
}

type fakeRows struct {
	data [][]any
	pos  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.pos-1], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(row))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *pgtype.UUID:
			*p = row[i].(pgtype.UUID)
		case *string:
			*p = row[i].(string)
		case *bool:
			*p = row[i].(bool)
		case *int32:
			*p = row[i].(int32)
		case *pgtype.Timestamptz:
			*p = pgtype.Timestamptz{Time: row[i].(time.Time), Valid: true}
		default:
			return fmt.Errorf("unsupported destination %T", d)
		}
	}
	return nil
}

func sampleReport() *core.Report {
	row := 2
	return &core.Report{
		ID:       uuid.MustParse("6f1c7c1e-8a4e-4d59-9b55-2b7d6c8b1f00"),
		Source:   "https://example.com/data.csv",
		Valid:    false,
		State:    "done",
		Errors:   []validator.Diagnostic{{Type: validator.KindRaggedRows, Category: validator.CategoryStructure, Row: &row}},
		Warnings: []validator.Diagnostic{},
		Formats: []validator.ColumnFormat{
			{Column: 0, Types: []validator.CellType{validator.TypeString, validator.TypeNumeric}},
		},
		Data:       [][]string{{"1", "2"}},
		LineBreaks: "\r\n",
		ClientIP:   "10.1.2.3",
		CreatedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestSaveReport(t *testing.T) {
	db := &fakeDB{}
	s := New(db)

	if err := s.SaveReport(context.Background(), sampleReport()); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	if len(db.execs) != 1 {
		t.Fatalf("Exec calls = %d, want 1", len(db.execs))
	}

	call := db.execs[0]
	wantSQL := "INSERT INTO validation_reports (id,source,valid,state,error_count,warning_count,client_ip,report,created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)"
	if call.sql != wantSQL {
		t.Errorf("sql = %q\nwant %q", call.sql, wantSQL)
	}
	if len(call.args) != 9 {
		t.Fatalf("args = %d, want 9", len(call.args))
	}
	if call.args[4] != 1 || call.args[5] != 0 {
		t.Errorf("counts = %v/%v, want 1/0", call.args[4], call.args[5])
	}

	var stored core.Report
	if err := json.Unmarshal(call.args[7].([]byte), &stored); err != nil {
		t.Fatalf("stored report not JSON: %v", err)
	}
	if stored.Data != nil {
		t.Errorf("Data persisted: %v", stored.Data)
	}
}

func TestSaveReport_ExecError(t *testing.T) {
	db := &fakeDB{execErr: errors.New("connection reset")}
	if err := New(db).SaveReport(context.Background(), sampleReport()); err == nil {
		t.Error("SaveReport() error = nil, want error")
	}
}

func TestGetReport(t *testing.T) {
	want := sampleReport()
	want.Data = nil
	body, err := json.Marshal(want)
	if err != nil {
		t.Fatal(err)
	}

	db := &fakeDB{row: fakeRow{body: body}}
	got, err := New(db).GetReport(context.Background(), want.ID)
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("GetReport() mismatch: %v", diff)
	}
	if !strings.Contains(db.queries[0], "WHERE id = $1") {
		t.Errorf("query = %q", db.queries[0])
	}
}

func TestGetReport_NotFound(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}
	_, err := New(db).GetReport(context.Background(), uuid.New())
	if !errors.Is(err, core.ErrReportNotFound) {
		t.Errorf("GetReport() error = %v, want ErrReportNotFound", err)
	}
}

func TestListReports(t *testing.T) {
	id := uuid.New()
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	db := &fakeDB{rows: &fakeRows{data: [][]any{
		{pgtype.UUID{Bytes: id, Valid: true}, "a.csv", true, "done", int32(0), int32(2), created},
	}}}

	got, err := New(db).ListReports(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListReports() error = %v", err)
	}
	want := []core.ReportSummary{{
		ID: id, Source: "a.csv", Valid: true, State: "done", ErrorCount: 0, WarningCount: 2, CreatedAt: created,
	}}
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("ListReports() mismatch: %v", diff)
	}

	wantSQL := "SELECT id, source, valid, state, error_count, warning_count, created_at FROM validation_reports ORDER BY created_at DESC LIMIT 10"
	if db.queries[0] != wantSQL {
		t.Errorf("sql = %q\nwant %q", db.queries[0], wantSQL)
	}
}

func TestPrune(t *testing.T) {
	db := &fakeDB{}
	n, err := New(db).Prune(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Prune() = %d, want 3", n)
	}
	if want := "DELETE FROM validation_reports WHERE created_at < $1"; db.execs[0].sql != want {
		t.Errorf("sql = %q, want %q", db.execs[0].sql, want)
	}
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	if err := New(db).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if !strings.Contains(db.execs[0].sql, "CREATE TABLE IF NOT EXISTS validation_reports") {
		t.Errorf("schema sql = %q", db.execs[0].sql)
	}
}
