package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/vitaliisemenov/streamrouter/internal/core/domain"
)

// TestMatchRequest is the /testmatch request body: a message to run
// through the current Compiled Engine without routing it anywhere.
// Fields mirrors the open field map spec.md §3 allows on a Message;
// JSON numbers are carried through as float64 and stored as
// domain.FloatValue (or domain.IntValue when they have no fractional
// part), matching encoding/json's native number decoding.
type TestMatchRequest struct {
	ID        string                 `json:"id"`
	Message   string                 `json:"message"`
	Source    string                 `json:"source"`
	Timestamp *time.Time             `json:"timestamp,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// TestMatchResponse is the /testmatch response: one entry per stream
// that has at least one indexed rule, per spec.md §4.2's testMatch.
type TestMatchResponse struct {
	Streams []StreamOutcomeDTO `json:"streams"`
}

// StreamOutcomeDTO is the wire form of routing.StreamOutcome.
type StreamOutcomeDTO struct {
	StreamID string          `json:"stream_id"`
	Title    string          `json:"title"`
	Matched  bool            `json:"matched"`
	Rules    []RuleOutcomeDTO `json:"rules"`
}

// RuleOutcomeDTO is the wire form of routing.RuleOutcome.
type RuleOutcomeDTO struct {
	Field    string `json:"field"`
	Kind     string `json:"kind"`
	Value    string `json:"value"`
	Inverted bool   `json:"inverted"`
	Matched  bool   `json:"matched"`
}

// TestMatch decodes a TestMatchRequest, builds a domain.Message from it,
// and reports the current engine's per-rule diagnostic for every stream
// with indexed rules.
func (h *Handlers) TestMatch(w http.ResponseWriter, r *http.Request) {
	var req TestMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	msg, err := req.toMessage()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcomes := h.router.TestMatch(msg)

	resp := TestMatchResponse{Streams: make([]StreamOutcomeDTO, 0, len(outcomes))}
	for _, o := range outcomes {
		dto := StreamOutcomeDTO{
			StreamID: o.StreamID,
			Title:    o.Title,
			Matched:  o.Matched,
			Rules:    make([]RuleOutcomeDTO, 0, len(o.Rules)),
		}
		for _, ro := range o.Rules {
			dto.Rules = append(dto.Rules, RuleOutcomeDTO{
				Field:    ro.Rule.Field,
				Kind:     ro.Rule.Kind.String(),
				Value:    ro.Rule.Value,
				Inverted: ro.Rule.Inverted,
				Matched:  ro.Matched,
			})
		}
		resp.Streams = append(resp.Streams, dto)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode testmatch response", "error", err)
	}
}

// toMessage builds a domain.Message from the request, defaulting id and
// timestamp when absent so a minimal {"message": "..."} body is enough
// to probe a rule set.
func (req *TestMatchRequest) toMessage() (*domain.Message, error) {
	id := req.ID
	if id == "" {
		id = "testmatch"
	}
	if req.Message == "" {
		return nil, errEmptyMessageBody
	}
	ts := time.Now().UTC()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	msg := domain.NewMessage(id, req.Message, req.Source, ts)
	for name, raw := range req.Fields {
		value, err := fieldValueFromJSON(raw)
		if err != nil {
			return nil, err
		}
		if err := msg.SetField(name, value); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

var errEmptyMessageBody = &emptyMessageBodyError{}

type emptyMessageBodyError struct{}

func (e *emptyMessageBodyError) Error() string {
	return "testmatch: \"message\" is required"
}

// fieldValueFromJSON converts a decoded JSON scalar into a
// domain.FieldValue. encoding/json decodes all JSON numbers as float64;
// values with no fractional part are stored as domain.IntValue so an
// equality rule against an integer field behaves as expected.
func fieldValueFromJSON(raw interface{}) (domain.FieldValue, error) {
	switch v := raw.(type) {
	case string:
		return domain.StringValue(v), nil
	case float64:
		if v == float64(int64(v)) {
			return domain.IntValue(int64(v)), nil
		}
		return domain.FloatValue(v), nil
	case bool:
		if v {
			return domain.StringValue("true"), nil
		}
		return domain.StringValue("false"), nil
	default:
		return domain.FieldValue{}, &unsupportedFieldTypeError{}
	}
}

type unsupportedFieldTypeError struct{}

func (e *unsupportedFieldTypeError) Error() string {
	return "testmatch: field values must be strings, numbers, or booleans"
}
