package projection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/Ursinus-CS476-F2020/LoopDitty/algorithms/temporal"
)

// ErrInvalidRequest wraps every request decoding failure.
var ErrInvalidRequest = errors.New("invalid projection request")

// Features maps a feature name to its frame matrix (one row per frame).
// All matrices of one request share the same frame count.
type Features map[string][][]float64

// Frames returns the frame count shared by the features, taken from the
// alphabetically first feature. It is 0 when there are no features.
func (f Features) Frames() int {
	if len(f) == 0 {
		return 0
	}
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return len(f[names[0]])
}

// Weight is one entry of a WeightMap
type Weight struct {
	Name  string
	Value float64
}

// WeightMap is an ordered feature-name to weight mapping. Its order is the
// column order of the composite matrix, so JSON objects are decoded in
// document order rather than into a Go map.
type WeightMap []Weight

// Get returns the weight for name and whether it is present.
func (w WeightMap) Get(name string) (float64, bool) {
	for _, e := range w {
		if e.Name == name {
			return e.Value, true
		}
	}
	return 0, false
}

// Set updates the weight for name in place, or appends it.
func (w *WeightMap) Set(name string, value float64) {
	for i := range *w {
		if (*w)[i].Name == name {
			(*w)[i].Value = value
			return
		}
	}
	*w = append(*w, Weight{Name: name, Value: value})
}

// UnmarshalJSON decodes a JSON object keeping key order. A repeated key
// keeps its first position and takes the last value.
func (w *WeightMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*w = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("weights must be a JSON object, got %v", tok)
	}

	out := WeightMap{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("weights: unexpected key %v", tok)
		}
		var value float64
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("weights[%q]: %w", name, err)
		}
		out.Set(name, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*w = out
	return nil
}

// MarshalJSON encodes the weights as a JSON object in order.
func (w WeightMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range w {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// WindowConfig selects the temporal windowing stage
type WindowConfig struct {
	Length         int  `json:"length"`
	DelayEmbedding bool `json:"delayEmbedding"`
	Mean           bool `json:"mean"`
	Stdev          bool `json:"stdev"`
}

// Mode resolves the flags to a window mode. Delay embedding takes
// precedence over the window statistics.
func (c WindowConfig) Mode() temporal.Mode {
	switch {
	case c.DelayEmbedding:
		return temporal.DelayEmbedding
	case c.Mean && c.Stdev:
		return temporal.RunningMeanStdev
	case c.Mean:
		return temporal.RunningMean
	case c.Stdev:
		return temporal.RunningStdev
	default:
		return temporal.ModeNone
	}
}

// Request is one projection invocation as sent by the visualization client
type Request struct {
	Features        Features     `json:"features"`
	Weights         WeightMap    `json:"weights"`
	FeatureNormName string       `json:"featureNormName"`
	JointNormName   string       `json:"jointNormName"`
	WindowConfig    WindowConfig `json:"windowConfig"`
}

// DecodeRequest reads one JSON request from r.
func DecodeRequest(r io.Reader) (*Request, error) {
	var req Request
	dec := json.NewDecoder(r)
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return &req, nil
}
