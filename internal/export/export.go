// Package export writes the member dataset in spreadsheet-friendly formats.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/nzambello/plone-map/internal/model"
)

// Format names an output encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatYAML Format = "yaml"
)

// SheetName is the worksheet written by WriteXLSX.
const SheetName = "members"

// Columns is the header of the flattened CSV and XLSX layouts.
var Columns = []string{"id", "name", "company", "venue", "latitude", "longitude", "country", "continent"}

// ParseFormat validates a format name. Matching is case-insensitive and
// "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// Row flattens a member into the Columns layout. Missing coordinates are
// written as empty strings.
func Row(m model.Member) []string {
	return []string{
		m.ID,
		m.Name,
		m.Company,
		m.VenueName(),
		formatCoord(latitude(m)),
		formatCoord(longitude(m)),
		m.Country(),
		m.Continent(),
	}
}

// Write encodes members to w in the given format.
func Write(w io.Writer, f Format, members []model.Member) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, members)
	case FormatXLSX:
		return WriteXLSX(w, members)
	case FormatYAML:
		return WriteYAML(w, members)
	default:
		return eris.Errorf("export: unknown format %q", f)
	}
}

// WriteFile creates path and writes members to it.
func WriteFile(path string, f Format, members []model.Member) error {
	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := Write(out, f, members); err != nil {
		out.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(out.Close(), "export: close %s", path)
}

// WriteCSV writes a header row followed by one row per member.
func WriteCSV(w io.Writer, members []model.Member) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return eris.Wrap(err, "export: csv header")
	}
	for _, m := range members {
		if err := cw.Write(Row(m)); err != nil {
			return eris.Wrapf(err, "export: csv row %s", m.ID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: csv flush")
}

// WriteXLSX writes a single-sheet workbook. Coordinates are numeric cells.
func WriteXLSX(w io.Writer, members []model.Member) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, c := range Columns {
		header.AddCell().SetString(c)
	}

	for _, m := range members {
		row := sheet.AddRow()
		row.AddCell().SetString(m.ID)
		row.AddCell().SetString(m.Name)
		row.AddCell().SetString(m.Company)
		row.AddCell().SetString(m.VenueName())
		addCoordCell(row, latitude(m))
		addCoordCell(row, longitude(m))
		row.AddCell().SetString(m.Country())
		row.AddCell().SetString(m.Continent())
	}

	if err := file.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

// WriteYAML writes the members as a YAML sequence, keeping the nested venue.
func WriteYAML(w io.Writer, members []model.Member) error {
	if members == nil {
		members = []model.Member{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(members); err != nil {
		return eris.Wrap(err, "export: encode yaml")
	}
	return eris.Wrap(enc.Close(), "export: close yaml encoder")
}

func addCoordCell(row *xlsx.Row, v *float64) {
	cell := row.AddCell()
	if v != nil {
		cell.SetFloat(*v)
	}
}

func latitude(m model.Member) *float64 {
	if m.Venue == nil {
		return nil
	}
	return m.Venue.Latitude
}

func longitude(m model.Member) *float64 {
	if m.Venue == nil {
		return nil
	}
	return m.Venue.Longitude
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
