package core

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

// ObservationWriter persists engine output.
type ObservationWriter interface {
	Write(obs []Observation) error
	Flush() error
}

// measurementColumns is the number of measurement value columns in CSV
// output; angles-only sensors report two values.
const measurementColumns = 2

var csvHeader = []string{
	"time", "sensor_id", "status", "visible", "measurement_visible",
	"body_x", "body_y", "body_z",
	"sensor_x", "sensor_y", "sensor_z",
	"angle_h", "angle_v", "distance",
	"meas_0", "meas_1",
}

// CSVWriter writes one row per observation after a header row.
type CSVWriter struct {
	w           *csv.Writer
	wroteHeader bool
}

// NewCSVWriter wraps w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// Write appends the observations. NaN and infinities are written in
// strconv form.
func (c *CSVWriter) Write(obs []Observation) error {
	if !c.wroteHeader {
		if err := c.w.Write(csvHeader); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		c.wroteHeader = true
	}
	var errs []error
	for _, o := range obs {
		row := []string{
			o.Time.UTC().Format(time.RFC3339Nano),
			o.SensorID,
			o.Visibility.Status.String(),
			strconv.FormatBool(o.Visibility.Visible()),
			strconv.FormatBool(o.Measurement.Visible),
			ff(o.BodyPosition.X), ff(o.BodyPosition.Y), ff(o.BodyPosition.Z),
			ff(o.SensorPosition.X), ff(o.SensorPosition.Y), ff(o.SensorPosition.Z),
			ff(o.Visibility.Angles.Horizontal), ff(o.Visibility.Angles.Vertical),
			ff(o.Visibility.Distance),
		}
		for i := 0; i < measurementColumns; i++ {
			if i < len(o.Measurement.Values) {
				row = append(row, ff(o.Measurement.Values[i]))
			} else {
				row = append(row, "")
			}
		}
		if err := c.w.Write(row); err != nil {
			errs = append(errs, fmt.Errorf("write csv row for %s: %w", o.SensorID, err))
		}
	}
	return errors.Join(errs...)
}

// Flush flushes buffered rows to the underlying writer.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// jsonFloat encodes NaN and infinities as null.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

type positionJSON struct {
	X jsonFloat `json:"x"`
	Y jsonFloat `json:"y"`
	Z jsonFloat `json:"z"`
}

func toPositionJSON(v Vec3) positionJSON {
	return positionJSON{X: jsonFloat(v.X), Y: jsonFloat(v.Y), Z: jsonFloat(v.Z)}
}

type observationJSON struct {
	Time               time.Time    `json:"time"`
	SensorID           string       `json:"sensor_id"`
	Status             string       `json:"status"`
	BodyPosition       positionJSON `json:"body_position"`
	SensorPosition     positionJSON `json:"sensor_position"`
	AngleH             jsonFloat    `json:"angle_h"`
	AngleV             jsonFloat    `json:"angle_v"`
	Distance           jsonFloat    `json:"distance"`
	Visible            bool         `json:"visible"`
	MeasurementVisible bool         `json:"measurement_visible"`
	Measurement        []jsonFloat  `json:"measurement,omitempty"`
}

// JSONLinesWriter writes one JSON object per observation per line.
type JSONLinesWriter struct {
	enc *json.Encoder
}

// NewJSONLinesWriter wraps w.
func NewJSONLinesWriter(w io.Writer) *JSONLinesWriter {
	return &JSONLinesWriter{enc: json.NewEncoder(w)}
}

// Write encodes the observations. Non-finite floats are written as null.
// A failed line does not stop the remaining observations from being
// written; the failures are joined into the returned error.
func (j *JSONLinesWriter) Write(obs []Observation) error {
	var errs []error
	for _, o := range obs {
		rec := observationJSON{
			Time:               o.Time.UTC(),
			SensorID:           o.SensorID,
			Status:             o.Visibility.Status.String(),
			BodyPosition:       toPositionJSON(o.BodyPosition),
			SensorPosition:     toPositionJSON(o.SensorPosition),
			AngleH:             jsonFloat(o.Visibility.Angles.Horizontal),
			AngleV:             jsonFloat(o.Visibility.Angles.Vertical),
			Distance:           jsonFloat(o.Visibility.Distance),
			Visible:            o.Visibility.Visible(),
			MeasurementVisible: o.Measurement.Visible,
		}
		for _, v := range o.Measurement.Values {
			rec.Measurement = append(rec.Measurement, jsonFloat(v))
		}
		if err := j.enc.Encode(rec); err != nil {
			errs = append(errs, fmt.Errorf("encode observation for %s: %w", o.SensorID, err))
		}
	}
	return errors.Join(errs...)
}

// Flush is a no-op; each line is written as it is encoded.
func (j *JSONLinesWriter) Flush() error { return nil }
