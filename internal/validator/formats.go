package validator

import "math/bits"

// columnFormats is the per-column population of observed cell types.
type columnFormats struct {
	seen       uint8 // bit per CellType
	firstRow   int   // row of the first observation
	divergedAt int   // row that introduced the second distinct type; -1 if none
	history    []CellType
}

func (c *columnFormats) distinct() int {
	return bits.OnesCount8(c.seen)
}

// Types returns the distinct types observed, in CellType order.
func (c *columnFormats) types() []CellType {
	var out []CellType
	for t := TypeString; int(t) < len(cellTypeNames); t++ {
		if c.seen&(1<<uint(t)) != 0 {
			out = append(out, t)
		}
	}
	return out
}

// formatTracker accumulates column types across rows. Memory is bounded by
// columns times types unless full history is requested.
type formatTracker struct {
	columns       []*columnFormats
	recordHistory bool
}

func newFormatTracker(recordHistory bool) *formatTracker {
	return &formatTracker{recordHistory: recordHistory}
}

func (f *formatTracker) record(column, row int, t CellType) {
	for len(f.columns) <= column {
		f.columns = append(f.columns, nil)
	}
	c := f.columns[column]
	if c == nil {
		c = &columnFormats{firstRow: row, divergedAt: -1}
		f.columns[column] = c
	}

	bit := uint8(1) << uint(t)
	if c.seen != 0 && c.seen&bit == 0 && c.divergedAt < 0 {
		c.divergedAt = row
	}
	c.seen |= bit

	if f.recordHistory {
		c.history = append(c.history, t)
	}
}

// ColumnFormat summarizes one column for callers.
type ColumnFormat struct {
	Column  int        `json:"column"`
	Types   []CellType `json:"types"`
	History []CellType `json:"history,omitempty"`
}

func (f *formatTracker) snapshot() []ColumnFormat {
	out := make([]ColumnFormat, 0, len(f.columns))
	for i, c := range f.columns {
		if c == nil {
			continue
		}
		cf := ColumnFormat{Column: i, Types: c.types()}
		if f.recordHistory {
			cf.History = append([]CellType(nil), c.history...)
		}
		out = append(out, cf)
	}
	return out
}

// BuildFormats infers the type of every non-blank cell in row and records it
// under its column. Blank cells are skipped without shifting column indices.
// An empty row is a no-op.
func (v *Validator) BuildFormats(row []string, rowIndex int) {
	for col, cell := range row {
		if isBlank(cell) {
			continue
		}
		v.formats.record(col, rowIndex, InferType(cell))
	}
}

// CheckConsistency adds one inconsistent_values warning for every column
// that has held more than one distinct type.
func (v *Validator) CheckConsistency() {
	for i, c := range v.formats.columns {
		if c == nil || c.distinct() <= 1 {
			continue
		}
		d := newDiagnostic(KindInconsistentValues, CategorySchema).atColumn(i)
		if c.divergedAt >= 0 {
			d = d.atRow(c.divergedAt)
		}
		v.warnings = append(v.warnings, d)
	}
}

// Formats returns the per-column type summary. History is populated only
// when the validator was created with RecordFormats.
func (v *Validator) Formats() []ColumnFormat {
	return v.formats.snapshot()
}
