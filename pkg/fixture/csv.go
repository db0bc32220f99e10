// Package fixture reads and writes the CSV layout used for snow depth inputs
// and SWE reference outputs: one row per date, optionally grouped by station
// and hydrological year.
package fixture

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/deltasnow/pkg/deltasnow"
)

// Options holds column names and parsing options for CSV loading.
type Options struct {
	DateColumn    string   // Column name for dates (default: "date")
	HSColumn      string   // Column name for snow depth (default: "hs")
	StationColumn string   // Column name for station IDs (optional, default: auto-detect stn/station/id)
	YearColumn    string   // Column name for the grouping year (optional, default: auto-detect year/hydroyear)
	DateLayouts   []string // Accepted date layouts, tried in order
	Delimiter     rune     // Field delimiter (default: ',')
}

// DefaultOptions returns default options for CSV loading.
func DefaultOptions() *Options {
	return &Options{
		DateColumn:  "date",
		HSColumn:    "hs",
		DateLayouts: []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04"},
		Delimiter:   ',',
	}
}

// Station is the snow depth series of one station and year.
type Station struct {
	ID           string
	Year         string
	Observations []deltasnow.Observation
}

// Key identifies the station series, e.g. "5WJ/2019".
func (s Station) Key() string {
	switch {
	case s.ID == "" && s.Year == "":
		return "series"
	case s.Year == "":
		return s.ID
	case s.ID == "":
		return s.Year
	default:
		return s.ID + "/" + s.Year
	}
}

// StationResult pairs a station series with its modelled SWE.
type StationResult struct {
	Station Station
	SWE     *deltasnow.Result
}

// ReadHSFile loads snow depth series from a CSV file.
func ReadHSFile(filename string, opts *Options) ([]Station, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadHS(file, opts)
}

// ReadHS loads snow depth series from r. Rows are grouped by station and
// year in order of first appearance; within a group the row order is kept.
func ReadHS(r io.Reader, opts *Options) ([]Station, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	reader := newReader(r, opts)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	dateIdx, hsIdx, stationIdx, yearIdx := -1, -1, -1, -1
	for i, h := range header {
		h = cleanHeader(h)
		switch {
		case h == opts.DateColumn:
			dateIdx = i
		case h == opts.HSColumn:
			hsIdx = i
		case opts.StationColumn != "" && h == opts.StationColumn:
			stationIdx = i
		case opts.StationColumn == "" && stationIdx == -1 && (h == "stn" || h == "station" || h == "id"):
			stationIdx = i
		case opts.YearColumn != "" && h == opts.YearColumn:
			yearIdx = i
		case opts.YearColumn == "" && yearIdx == -1 && (h == "year" || h == "hydroyear"):
			yearIdx = i
		}
	}
	if dateIdx == -1 {
		return nil, fmt.Errorf("date column %q not found", opts.DateColumn)
	}
	if hsIdx == -1 {
		return nil, fmt.Errorf("snow depth column %q not found", opts.HSColumn)
	}

	var stations []Station
	index := make(map[string]int)

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := parseDate(record[dateIdx], opts.DateLayouts)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		hs, err := ParseValue(record[hsIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		var id, year string
		if stationIdx >= 0 {
			id = strings.TrimSpace(record[stationIdx])
		}
		if yearIdx >= 0 {
			year = strings.TrimSpace(record[yearIdx])
		}

		key := id + "\x00" + year
		pos, ok := index[key]
		if !ok {
			pos = len(stations)
			index[key] = pos
			stations = append(stations, Station{ID: id, Year: year})
		}
		stations[pos].Observations = append(stations[pos].Observations, deltasnow.Observation{Date: date, HS: hs})
	}

	if len(stations) == 0 {
		return nil, errors.New("no data rows found")
	}
	return stations, nil
}

// ReadSWEFile loads a reference SWE series from a CSV file.
func ReadSWEFile(filename string) ([]time.Time, []float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	return ReadSWE(file)
}

// ReadSWE loads a reference SWE series with a "date" column and one value
// column ("swe", "swe_deltasnow" or the last column).
func ReadSWE(r io.Reader) ([]time.Time, []float64, error) {
	opts := DefaultOptions()
	reader := newReader(r, opts)

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	dateIdx, valueIdx := -1, -1
	for i, h := range header {
		switch cleanHeader(h) {
		case "date":
			dateIdx = i
		case "swe", "swe_deltasnow":
			valueIdx = i
		}
	}
	if dateIdx == -1 {
		return nil, nil, errors.New(`date column "date" not found`)
	}
	if valueIdx == -1 {
		valueIdx = len(header) - 1
	}
	if valueIdx == dateIdx {
		return nil, nil, errors.New("no SWE column found")
	}

	var dates []time.Time
	var values []float64

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := parseDate(record[dateIdx], opts.DateLayouts)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		v, err := ParseValue(record[valueIdx])
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		dates = append(dates, date)
		values = append(values, v)
	}

	return dates, values, nil
}

// WriteSWE writes modelled SWE with the columns stn, year, date, hs, swe.
// Missing values are written as NA.
func WriteSWE(w io.Writer, results []StationResult) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"stn", "year", "date", "hs", "swe"}); err != nil {
		return err
	}
	for _, res := range results {
		obs := res.Station.Observations
		if res.SWE == nil || res.SWE.Len() != len(obs) {
			return fmt.Errorf("station %s: result does not match its observations", res.Station.Key())
		}
		for i, o := range obs {
			record := []string{
				res.Station.ID,
				res.Station.Year,
				formatDate(o.Date),
				FormatValue(o.HS),
				FormatValue(res.SWE.SWE[i]),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// ParseValue parses a numeric cell. Empty cells, NA and NaN are missing values.
func ParseValue(s string) (float64, error) {
	s = strings.TrimSpace(strings.Trim(s, "\""))
	switch strings.ToLower(s) {
	case "", "na", "nan", "null":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", s, err)
	}
	return v, nil
}

// FormatValue formats v with the shortest exact representation, NA for NaN.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func newReader(r io.Reader, opts *Options) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	if reader.Comma == 0 {
		reader.Comma = ','
	}
	reader.TrimLeadingSpace = true
	return reader
}

func cleanHeader(h string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimPrefix(h, "\uFEFF"), "\""))
}

func parseDate(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(layouts) == 0 {
		layouts = DefaultOptions().DateLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func formatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}
