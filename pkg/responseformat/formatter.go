// Package responseformat writes model results as CSV, JSON or MessagePack.
package responseformat

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/chrissnell/deltasnow/pkg/fixture"
)

// Output formats
const (
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatMsgPack = "msgpack"
)

// Formatter handles encoding and writing results in one format
type Formatter struct {
	format string
}

// NewFormatter creates a formatter for format. CSV is the default.
func NewFormatter(format string) (*Formatter, error) {
	switch format {
	case "":
		format = FormatCSV
	case FormatCSV, FormatJSON, FormatMsgPack:
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return &Formatter{format: format}, nil
}

// Format returns the formatter's output format
func (f *Formatter) Format() string {
	return f.format
}

// Document is the JSON and MessagePack layout of a batch
type Document struct {
	RunID    string    `json:"run_id,omitempty"`
	Stations []Station `json:"stations"`
}

// Station is one modelled series. Missing values are null.
type Station struct {
	Station    string     `json:"stn,omitempty"`
	Year       string     `json:"year,omitempty"`
	Unit       string     `json:"unit"`
	Resolution string     `json:"resolution"`
	Dates      []string   `json:"dates"`
	HS         []*float64 `json:"hs"`
	SWE        []*float64 `json:"swe"`
}

// WriteResults writes results to w in the formatter's format
func (f *Formatter) WriteResults(w io.Writer, runID string, results []fixture.StationResult) error {
	if f.format == FormatCSV {
		return fixture.WriteSWE(w, results)
	}

	doc, err := NewDocument(runID, results)
	if err != nil {
		return err
	}
	if f.format == FormatMsgPack {
		return f.writeMsgPack(w, doc)
	}
	return f.writeJSON(w, doc)
}

// NewDocument converts results into their document form
func NewDocument(runID string, results []fixture.StationResult) (*Document, error) {
	doc := &Document{RunID: runID, Stations: make([]Station, 0, len(results))}

	for _, res := range results {
		obs := res.Station.Observations
		if res.SWE == nil || res.SWE.Len() != len(obs) {
			return nil, fmt.Errorf("station %s: result does not match its observations", res.Station.Key())
		}

		st := Station{
			Station:    res.Station.ID,
			Year:       res.Station.Year,
			Unit:       res.SWE.Unit.String(),
			Resolution: res.SWE.Resolution.String(),
			Dates:      make([]string, len(obs)),
			HS:         make([]*float64, len(obs)),
			SWE:        make([]*float64, len(obs)),
		}
		for i, o := range obs {
			st.Dates[i] = o.Date.Format(time.RFC3339)
			st.HS[i] = nullable(o.HS)
			st.SWE[i] = nullable(res.SWE.SWE[i])
		}
		doc.Stations = append(doc.Stations, st)
	}
	return doc, nil
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func (f *Formatter) writeJSON(w io.Writer, data any) error {
	return json.NewEncoder(w).Encode(data)
}

func (f *Formatter) writeMsgPack(w io.Writer, data any) error {
	encoder := msgpack.NewEncoder(w)
	encoder.SetCustomStructTag("json") // Use json tags for MessagePack
	return encoder.Encode(data)
}
