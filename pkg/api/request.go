package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/vjranagit/latency/pkg/types"
)

// MalformedRequestError reports a request body that cannot be turned into
// a LatencyRequest. It is answered before any statistics are computed.
type MalformedRequestError struct {
	Field  string
	Reason string
	Err    error
}

func (e *MalformedRequestError) Error() string {
	if e.Field == "" {
		return "malformed request: " + e.Reason
	}
	return fmt.Sprintf("malformed request: %s: %s", e.Field, e.Reason)
}

func (e *MalformedRequestError) Unwrap() error {
	return e.Err
}

// latencyRequestBody defers field decoding so each field can be checked
type latencyRequestBody struct {
	Regions     json.RawMessage `json:"regions"`
	ThresholdMs json.RawMessage `json:"threshold_ms"`
}

var jsonNull = []byte("null")

// decodeLatencyRequest reads and validates a request body. regions must be
// an array of strings; threshold_ms must be an integer, and a float with no
// fractional part is accepted as one.
func decodeLatencyRequest(r io.Reader) (*types.LatencyRequest, error) {
	dec := json.NewDecoder(r)

	var body latencyRequestBody
	if err := dec.Decode(&body); err != nil {
		return nil, &MalformedRequestError{Reason: describeJSONError(err), Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &MalformedRequestError{Reason: "unexpected data after JSON body", Err: err}
	}

	regions, err := parseRegions(body.Regions)
	if err != nil {
		return nil, err
	}

	threshold, err := parseThreshold(body.ThresholdMs)
	if err != nil {
		return nil, err
	}

	return &types.LatencyRequest{
		Regions:     regions,
		ThresholdMs: threshold,
	}, nil
}

func parseRegions(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, &MalformedRequestError{Field: "regions", Reason: "field required"}
	}
	if bytes.Equal(raw, jsonNull) {
		return nil, &MalformedRequestError{Field: "regions", Reason: "must be an array of strings"}
	}

	var elems []*string
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, &MalformedRequestError{Field: "regions", Reason: "must be an array of strings", Err: err}
	}

	regions := make([]string, len(elems))
	for i, region := range elems {
		if region == nil {
			return nil, &MalformedRequestError{Field: "regions", Reason: fmt.Sprintf("element %d must be a string", i)}
		}
		regions[i] = *region
	}
	return regions, nil
}

func parseThreshold(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, &MalformedRequestError{Field: "threshold_ms", Reason: "field required"}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return 0, &MalformedRequestError{Field: "threshold_ms", Reason: "must be an integer", Err: err}
	}

	num, ok := value.(json.Number)
	if !ok {
		return 0, &MalformedRequestError{Field: "threshold_ms", Reason: "must be an integer"}
	}

	if i, err := num.Int64(); err == nil {
		if i < math.MinInt || i > math.MaxInt {
			return 0, &MalformedRequestError{Field: "threshold_ms", Reason: "out of range"}
		}
		return int(i), nil
	}

	f, err := num.Float64()
	if err != nil || math.IsInf(f, 0) {
		return 0, &MalformedRequestError{Field: "threshold_ms", Reason: "out of range", Err: err}
	}
	if f != math.Trunc(f) {
		return 0, &MalformedRequestError{Field: "threshold_ms", Reason: "must be an integer"}
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, &MalformedRequestError{Field: "threshold_ms", Reason: "out of range"}
	}
	return int(f), nil
}

func describeJSONError(err error) string {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return "empty body"
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "truncated JSON body"
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("invalid JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return "body must be a JSON object"
	}
	return "unreadable body"
}
