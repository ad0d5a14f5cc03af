package status

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"swimstatus/pkg/display"
)

var errNotObject = errors.New("body is not a JSON object")

// Field keeps one response value as raw JSON until it is rendered.
type Field []byte

func (f *Field) UnmarshalJSON(data []byte) error {
	*f = append((*f)[:0], data...)
	return nil
}

func (f Field) MarshalJSON() ([]byte, error) {
	if len(f) == 0 {
		return []byte("null"), nil
	}
	return f, nil
}

// Text renders the value the way a text node shows it: strings unquoted,
// numbers as a browser prints them, null or absent as the empty string.
func (f Field) Text() string {
	raw := bytes.TrimSpace(f)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err == nil {
			return buf.String()
		}
	case 't', 'f':
	default:
		if n, err := strconv.ParseFloat(string(raw), 64); err == nil || math.IsInf(n, 0) {
			return formatNumber(n)
		}
	}
	return string(raw)
}

// formatNumber follows the JavaScript Number-to-string rules: shortest
// round-trip digits, plain decimals for 1e-6 <= |n| < 1e21 and exponent
// form ("1e+21", "1.5e-7") outside that range.
func formatNumber(n float64) string {
	switch {
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == 0:
		return "0"
	}
	if abs := math.Abs(n); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	s := strconv.FormatFloat(n, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mant + "e" + sign + digits
}

// Reading is the body returned by /r, /stop and /data. T1 and T2 are the
// service's timer values; they are decoded but never shown in a slot.
type Reading struct {
	A  Field `json:"a"`
	B  Field `json:"b"`
	Y  Field `json:"y"`
	T1 Field `json:"t1,omitempty"`
	T2 Field `json:"t2,omitempty"`
}

// State is the text each slot receives for this reading.
func (r Reading) State() display.State {
	return display.State{A: r.A.Text(), B: r.B.Text(), Y: r.Y.Text()}
}

func decodeReading(body []byte) (Reading, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Reading{}, errNotObject
	}
	var r Reading
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return Reading{}, err
	}
	return r, nil
}

// StopSignal is the /signal_stop payload. ID is sent as given, so a number
// stays a number and a string stays a string.
type StopSignal struct {
	ID any `json:"id"`
}
