package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

const dateLayout = "2006-01-02"

// yHeadroom is applied to the maximum only; the minimum stays anchored.
const yHeadroom = 1.1

var errBadSeries = errors.New("malformed series")

// ChartDataset is a decoded /r/process response, in the order the server
// sent it.
type ChartDataset []MetricSeries

type MetricSeries struct {
	Metric   string
	Entities []NamedSeries
}

type NamedSeries struct {
	Entity string
	EntitySeries
}

// DecodeDataset parses a /r/process body. Each metric maps to a JSON string
// that itself encodes {entity: {Date, Metric}}; an object in place of the
// string is accepted as well.
func DecodeDataset(body []byte) (ChartDataset, error) {
	var ds ChartDataset
	err := decodeOrderedObject(body, func(metric string, raw json.RawMessage) error {
		inner := []byte(raw)
		trimmed := bytes.TrimSpace(inner)
		if len(trimmed) > 0 && trimmed[0] == '"' {
			var s string
			if err := json.Unmarshal(trimmed, &s); err != nil {
				return errors.Wrapf(err, "metric %q", metric)
			}
			inner = []byte(s)
		}

		ms := MetricSeries{Metric: metric}
		err := decodeOrderedObject(inner, func(entity string, raw json.RawMessage) error {
			var es EntitySeries
			if err := json.Unmarshal(raw, &es); err != nil {
				return errors.Wrapf(err, "metric %q entity %q", metric, entity)
			}
			ms.Entities = append(ms.Entities, NamedSeries{Entity: entity, EntitySeries: es})
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "metric %q", metric)
		}
		ds = append(ds, ms)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// EncodeDataset writes the wire form: every metric value is a JSON string.
func EncodeDataset(ds ChartDataset) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ms := range ds {
		if i > 0 {
			buf.WriteByte(',')
		}
		var inner bytes.Buffer
		inner.WriteByte('{')
		for j, ns := range ms.Entities {
			if j > 0 {
				inner.WriteByte(',')
			}
			if err := writeKey(&inner, ns.Entity); err != nil {
				return nil, err
			}
			b, err := json.Marshal(ns.EntitySeries)
			if err != nil {
				return nil, err
			}
			inner.Write(b)
		}
		inner.WriteByte('}')

		if err := writeKey(&buf, ms.Metric); err != nil {
			return nil, err
		}
		b, err := json.Marshal(inner.String())
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	b, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteByte(':')
	return nil
}

func decodeOrderedObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return errors.Wrap(err, "decode object")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.Newf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return errors.Wrap(err, "decode key")
		}
		key, ok := tok.(string)
		if !ok {
			return errors.Newf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Wrapf(err, "decode value of %q", key)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil {
		return errors.Wrap(err, "decode object end")
	}
	return nil
}

type Point struct {
	Date time.Time
	Val  float64
}

// Slice is one drawable series for a (metric, entity) pair.
type Slice struct {
	Metric string
	ID     string
	Values []Point
}

// Key identifies the slice inside a frame. Both names are path-escaped so
// the "|" separator never appears inside either of them.
func (s Slice) Key() string {
	return url.PathEscape(s.Metric) + "|" + url.PathEscape(s.ID)
}

func (s Slice) Label() string {
	return s.ID + ": " + s.Metric
}

// Peak returns the first point holding the maximum value.
func (s Slice) Peak() (Point, bool) {
	if len(s.Values) == 0 {
		return Point{}, false
	}
	peak := s.Values[0]
	for _, p := range s.Values[1:] {
		if p.Val > peak.Val {
			peak = p
		}
	}
	return peak, true
}

type Domain struct {
	XMin, XMax time.Time
	YMin, YMax float64
}

// Frame is everything one render draws.
type Frame struct {
	Slices []Slice
	Domain Domain
}

// BuildFrame zips every entity's dates and values into slices and computes
// the shared domain across all of them.
func BuildFrame(ds ChartDataset) (Frame, error) {
	var (
		frame          Frame
		minX, maxX     int64
		minVal, maxVal float64
		seen           bool
	)
	for _, ms := range ds {
		for _, ns := range ms.Entities {
			if len(ns.Date) != len(ns.Metric) {
				return Frame{}, errors.Wrapf(errBadSeries, "%s/%s: %d dates, %d values",
					ms.Metric, ns.Entity, len(ns.Date), len(ns.Metric))
			}
			if len(ns.Date) == 0 {
				continue
			}
			slice := Slice{Metric: ms.Metric, ID: ns.Entity, Values: make([]Point, 0, len(ns.Date))}
			for i, raw := range ns.Date {
				d, err := time.Parse(dateLayout, raw)
				if err != nil {
					return Frame{}, errors.Wrapf(errBadSeries, "%s/%s: date %q", ms.Metric, ns.Entity, raw)
				}
				v := ns.Metric[i]
				slice.Values = append(slice.Values, Point{Date: d, Val: v})

				ts := d.UnixMilli()
				if !seen {
					minX, maxX, minVal, maxVal = ts, ts, v, v
					seen = true
					continue
				}
				minX = min(minX, ts)
				maxX = max(maxX, ts)
				minVal = min(minVal, v)
				maxVal = max(maxVal, v)
			}
			frame.Slices = append(frame.Slices, slice)
		}
	}
	if !seen {
		return Frame{}, ErrEmptyDataset
	}
	frame.Domain = Domain{
		XMin: time.UnixMilli(minX).UTC(),
		XMax: time.UnixMilli(maxX).UTC(),
		YMin: minVal,
		YMax: yHeadroom * maxVal,
	}
	return frame, nil
}

// ColorForMetric is the fixed metric palette: exact names first, then
// substring matches.
func ColorForMetric(metric string) string {
	switch metric {
	case "Confirmed":
		return "olivedrab"
	case "Deaths":
		return "darkred"
	case "Hospitalized":
		return "steelblue"
	}
	switch {
	case strings.Contains(metric, "Confirmed"):
		return "limegreen"
	case strings.Contains(metric, "Deaths"):
		return "lightcoral"
	default:
		return "skyblue"
	}
}

var cssHex = map[string]string{
	"olivedrab":  "#6b8e23",
	"darkred":    "#8b0000",
	"steelblue":  "#4682b4",
	"limegreen":  "#32cd32",
	"lightcoral": "#f08080",
	"skyblue":    "#87ceeb",
}

// hexForMetric is ColorForMetric as a hex code for renderers without CSS
// color names.
func hexForMetric(metric string) string {
	return cssHex[ColorForMetric(metric)]
}

// FormatTooltipDate prints year, month and day without zero padding.
func FormatTooltipDate(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// TooltipText is the hover text of one point.
func TooltipText(metric string, p Point) string {
	s := FormatTooltipDate(p.Date) + ": " + formatValue(p.Val)
	if strings.Contains(metric, "%") {
		s += "%"
	}
	return s
}
