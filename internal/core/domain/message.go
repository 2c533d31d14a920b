// Package domain holds the plain data types the routing engine operates
// on: messages, streams, and stream rules. Nothing in this package talks
// to a database, a network socket, or the catalogue — it is the shared
// vocabulary between the ingestion pipeline and the routing engine.
package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// fieldNamePattern is the allowed shape for a field name, per spec.md §3:
// "[A-Za-z0-9_.\-]+".
var fieldNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// reservedFields cannot be set through SetField at all.
var reservedFields = map[string]struct{}{
	"_id":           {},
	"gl2_source":    {},
	"streams":       {},
	"full_message":  {},
}

// dedicatedAccessorFields are reserved from the generic setter. source and
// timestamp remain settable through their own named accessor (SetSource,
// SetTimestamp); message has no setter and is fixed at construction.
var dedicatedAccessorFields = map[string]struct{}{
	"message":   {},
	"source":    {},
	"timestamp": {},
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// messageValidation mirrors Message's mandatory fields so they can be
// checked through validator struct tags, consistent with how the teacher
// validates core.Alert's required fields (internal/core/interfaces.go).
type messageValidation struct {
	ID      string `validate:"required"`
	Message string `validate:"required"`
}

// ErrReservedField is returned by SetField for a name in reservedFields or
// dedicatedAccessorFields.
type ErrReservedField struct {
	Name string
}

func (e *ErrReservedField) Error() string {
	return fmt.Sprintf("field %q is reserved and cannot be set directly", e.Name)
}

// ErrInvalidFieldName is returned by SetField when name does not match
// fieldNamePattern.
type ErrInvalidFieldName struct {
	Name string
}

func (e *ErrInvalidFieldName) Error() string {
	return fmt.Sprintf("field name %q does not match the allowed pattern", e.Name)
}

// Message is one inbound log record: a unique id, the mandatory body
// fields, an open map of additional fields, and pipeline bookkeeping that
// accumulates as the message moves toward routing (spec.md §3).
type Message struct {
	id        string
	message   string
	source    string
	timestamp time.Time

	fields map[string]FieldValue

	streamIDs     []string
	filterOut     bool
	journalOffset *int64
	recordings    map[string]time.Duration
	counters      map[string]int64
}

// NewMessage constructs a Message with its three mandatory fields. id and
// message must be non-empty, checked via validator struct tags; NewMessage
// panics otherwise since a message failing this invariant should never be
// constructed in the first place — callers at the ingestion boundary are
// expected to validate user input before reaching this constructor.
func NewMessage(id, message, source string, timestamp time.Time) *Message {
	if err := validate.Struct(messageValidation{ID: id, Message: message}); err != nil {
		panic(fmt.Sprintf("domain: invalid message: %v", err))
	}
	return &Message{
		id:        id,
		message:   message,
		source:    source,
		timestamp: timestamp.UTC(),
		fields:    make(map[string]FieldValue),
	}
}

// ID returns the message's unique identifier.
func (m *Message) ID() string { return m.id }

// Body returns the mandatory "message" field.
func (m *Message) Body() string { return m.message }

// Source returns the mandatory "source" field.
func (m *Message) Source() string { return m.source }

// SetSource updates the source field. Part of the dedicated-accessor set
// carved out of the reserved-field rule in spec.md §3.
func (m *Message) SetSource(source string) { m.source = source }

// Timestamp returns the mandatory UTC timestamp.
func (m *Message) Timestamp() time.Time { return m.timestamp }

// SetTimestamp updates the timestamp, normalizing to UTC.
func (m *Message) SetTimestamp(t time.Time) { m.timestamp = t.UTC() }

// SetField sets an additional field on the message. It rejects reserved
// field names, names outside the allowed pattern, and drops empty string
// values (spec.md §3: "Empty string values are dropped; strings are
// trimmed on insertion").
func (m *Message) SetField(name string, value FieldValue) error {
	if _, ok := reservedFields[name]; ok {
		return &ErrReservedField{Name: name}
	}
	if _, ok := dedicatedAccessorFields[name]; ok {
		return &ErrReservedField{Name: name}
	}
	if !fieldNamePattern.MatchString(name) {
		return &ErrInvalidFieldName{Name: name}
	}

	if value.kind == KindString {
		trimmed := strings.TrimSpace(value.str)
		if trimmed == "" {
			delete(m.fields, name)
			return nil
		}
		value.str = trimmed
	}

	if m.fields == nil {
		m.fields = make(map[string]FieldValue)
	}
	m.fields[name] = value
	return nil
}

// GetField returns the named field's value and whether it was present.
// The three mandatory fields are reachable here too, so a rule written
// against "source" or "timestamp" behaves the same as one against any
// other field.
func (m *Message) GetField(name string) (FieldValue, bool) {
	switch name {
	case "message":
		return StringValue(m.message), true
	case "source":
		return StringValue(m.source), true
	case "timestamp":
		return TimestampValue(m.timestamp), true
	}
	v, ok := m.fields[name]
	return v, ok
}

// GetFields returns a snapshot of all fields, including the mandatory
// ones, as a plain map. Intended for presentation/diagnostics, not the
// matching hot path (which uses GetField / FieldNames directly).
func (m *Message) GetFields() map[string]FieldValue {
	out := make(map[string]FieldValue, len(m.fields)+3)
	out["message"] = StringValue(m.message)
	out["source"] = StringValue(m.source)
	out["timestamp"] = TimestampValue(m.timestamp)
	for k, v := range m.fields {
		out[k] = v
	}
	return out
}

// FieldNames returns the set of every field name a rule can address on
// this message: the three mandatory fields plus whatever additional
// fields were set via SetField. Rules written against "source" or
// "timestamp" are ordinary field rules, not special cases, so they must
// appear in the same set GetField resolves against.
func (m *Message) FieldNames() map[string]struct{} {
	out := make(map[string]struct{}, len(m.fields)+3)
	out["message"] = struct{}{}
	out["source"] = struct{}{}
	out["timestamp"] = struct{}{}
	for k := range m.fields {
		out[k] = struct{}{}
	}
	return out
}

// StreamIDs returns the ids of streams this message has been assigned to.
func (m *Message) StreamIDs() []string { return m.streamIDs }

// AssignStream appends a stream id to the message's assignment list.
func (m *Message) AssignStream(streamID string) {
	m.streamIDs = append(m.streamIDs, streamID)
}

// FilterOut reports whether downstream consumers should drop this message.
func (m *Message) FilterOut() bool { return m.filterOut }

// SetFilterOut sets the filter-out flag.
func (m *Message) SetFilterOut(v bool) { m.filterOut = v }

// JournalOffset returns the optional journal offset, if any.
func (m *Message) JournalOffset() (int64, bool) {
	if m.journalOffset == nil {
		return 0, false
	}
	return *m.journalOffset, true
}

// SetJournalOffset records the message's journal offset.
func (m *Message) SetJournalOffset(offset int64) { m.journalOffset = &offset }

// RecordDuration stores a named timing in the message's recordings buffer
// (spec.md §3's "optional recordings buffer"). A nil map is allocated
// lazily so messages that never get timed don't pay for it.
func (m *Message) RecordDuration(name string, d time.Duration) {
	if m.recordings == nil {
		m.recordings = make(map[string]time.Duration)
	}
	m.recordings[name] = d
}

// RecordCount stores a named counter in the message's recordings buffer.
func (m *Message) RecordCount(name string, n int64) {
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	m.counters[name] = n
}

// Recordings returns the timing recordings captured for this message, if
// detailed recording was enabled for it.
func (m *Message) Recordings() map[string]time.Duration { return m.recordings }

// Counters returns the counter recordings captured for this message.
func (m *Message) Counters() map[string]int64 { return m.counters }

// Valid reports the message's core invariant from spec.md §3: the id and
// message body are always present and non-empty for a valid message.
// Checked through the same validator.Validate struct tags as NewMessage,
// so a Message that somehow lost its mandatory fields after construction
// (zero value, deserialization) is still caught the same way.
func (m *Message) Valid() bool {
	return validate.Struct(messageValidation{ID: m.id, Message: m.message}) == nil
}
