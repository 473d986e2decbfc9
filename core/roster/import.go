package roster

import (
	"context"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// Column aliases tried in priority order per field. Rosters come from
// French, Portuguese or English spreadsheets; matching is case-sensitive
// on purpose (headers are proper nouns in these files).
var (
	classAliases   = []string{"Classe", "Turma", "Class"}
	studentAliases = []string{"Nom", "Nome", "Student", "Eleve", "Élève"}
	emailAliases   = []string{"Email", "Mail", "Email Parent"}
)

const defaultClassName = "Sans Classe"

// Row is one spreadsheet row decoded into header-keyed fields.
type Row map[string]string

// ParseError indicates import file content that could not be decoded
// as tabular data. It is terminal: the reconciler applies no recovery.
type ParseError struct {
	Err error
}

func NewParseError(err error) error { return &ParseError{Err: err} }

func (e ParseError) Error() string {
	if e.Err == nil {
		return "unreadable import file"
	}
	return "unreadable import file: " + e.Err.Error()
}

func (e ParseError) Unwrap() error { return e.Err }

// DecodeRows reads the uploaded roster file into header-keyed rows.
// .csv files are decoded directly; anything else is treated as a
// workbook and decoded from its first sheet.
func DecodeRows(r io.Reader, filename string) ([]Row, error) {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return decodeCSV(r)
	}
	return decodeWorkbook(r)
}

func decodeWorkbook(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, NewParseError(err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, NewParseError(pkgerrors.New("workbook contains no sheets"))
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, NewParseError(err)
	}
	return mapRows(rows), nil
}

func decodeCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows are mapped by position below
	records, err := reader.ReadAll()
	if err != nil {
		return nil, NewParseError(err)
	}
	return mapRows(records), nil
}

// mapRows turns a header row + data rows into header-keyed rows,
// preserving file order. Cells beyond the header are dropped.
func mapRows(rows [][]string) []Row {
	if len(rows) < 2 {
		return nil
	}
	header := rows[0]
	out := make([]Row, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		row := make(Row, len(header))
		for i, key := range header {
			key = strings.TrimSpace(key)
			if key == "" || i >= len(cells) {
				continue
			}
			row[key] = strings.TrimSpace(cells[i])
		}
		out = append(out, row)
	}
	return out
}

func firstPresent(row Row, aliases []string) string {
	for _, key := range aliases {
		if v := row[key]; v != "" {
			return v
		}
	}
	return ""
}

// Assemble reconciles decoded rows into class records. A row is valid
// iff both a student name and a parent email resolve; invalid rows are
// silently dropped. Classes are keyed by resolved class name — first
// occurrence wins the identifier and casing — and student order
// follows row order. Only classes with at least one valid row appear.
func Assemble(rows []Row) []Class {
	var order []string
	byName := make(map[string]*Class)

	for _, row := range rows {
		className := firstPresent(row, classAliases)
		if className == "" {
			className = defaultClassName
		}
		studentName := firstPresent(row, studentAliases)
		parentEmail := firstPresent(row, emailAliases)
		if studentName == "" || parentEmail == "" {
			continue
		}

		cls, ok := byName[className]
		if !ok {
			cls = &Class{
				ID:       NewID(),
				Name:     className,
				Students: []Student{},
			}
			byName[className] = cls
			order = append(order, className)
		}
		cls.Students = append(cls.Students, Student{
			ID:          NewID(),
			Name:        studentName,
			ParentEmail: parentEmail,
			ParentPhone: "",
		})
	}

	out := make([]Class, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out
}

// ImportFile decodes the uploaded roster file, reconciles its rows into
// classes and merges them into the current roster. It returns the
// number of classes processed; a file with zero valid rows leaves the
// roster untouched and returns ErrImportEmpty.
func (svc *Service) ImportFile(ctx context.Context, r io.Reader, filename string) (int, error) {
	rows, err := DecodeRows(r, filename)
	if err != nil {
		return 0, err
	}
	return svc.MergeImported(ctx, Assemble(rows))
}
