package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/nstogner/diagrammer/pkg/domain"
)

// SchemaVersion is the version written by Encode.
const SchemaVersion = 1

// File is the session file format.
//
// CurrentPlantUML holds the current diagram source whatever the engine; the
// name is kept for compatibility with existing files.
type File struct {
	SchemaVersion   int           `json:"schemaVersion"`
	ChatHistory     []FileMessage `json:"chatHistory"`
	CurrentPlantUML string        `json:"currentPlantUML"`
	LastDiagramType string        `json:"lastDiagramType,omitempty"`
}

// FileMessage is one persisted message. Timestamp is in unix milliseconds.
type FileMessage struct {
	Role      domain.Role     `json:"role"`
	Text      string          `json:"text"`
	Timestamp int64           `json:"timestamp"`
	ID        string          `json:"id"`
	Kind      domain.Kind     `json:"kind,omitempty"`
	Engine    domain.EngineID `json:"engine,omitempty"`
}

// Now returns the current time at the precision stored in session files.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NewID returns a new message id.
func NewID() string {
	return uuid.NewString()
}

// Encode serializes s. Placeholders are dropped.
func Encode(s domain.Session) ([]byte, error) {
	f := File{
		SchemaVersion:   SchemaVersion,
		ChatHistory:     make([]FileMessage, 0, len(s.Messages)),
		CurrentPlantUML: s.CurrentSource,
		LastDiagramType: string(s.CurrentKind),
	}
	for _, m := range s.Messages {
		if !m.Role.Persisted() {
			continue
		}
		f.ChatHistory = append(f.ChatHistory, FileMessage{
			Role:      m.Role,
			Text:      m.Text,
			Timestamp: m.Timestamp.UnixMilli(),
			ID:        m.ID,
			Kind:      m.Kind,
			Engine:    m.Engine,
		})
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return data, nil
}

// rawFile and rawMessage keep every field undecoded so that types can be
// checked before anything is trusted.
type rawFile struct {
	SchemaVersion   json.RawMessage `json:"schemaVersion"`
	ChatHistory     json.RawMessage `json:"chatHistory"`
	CurrentPlantUML json.RawMessage `json:"currentPlantUML"`
	LastDiagramType json.RawMessage `json:"lastDiagramType"`
}

type rawMessage struct {
	Role      json.RawMessage `json:"role"`
	Text      json.RawMessage `json:"text"`
	Timestamp json.RawMessage `json:"timestamp"`
	ID        json.RawMessage `json:"id"`
	Kind      json.RawMessage `json:"kind"`
	Engine    json.RawMessage `json:"engine"`
}

// Decode validates and parses a session file. Every failure wraps
// domain.ErrInvalidSessionFormat. Missing ids and timestamps are filled in.
func Decode(data []byte) (domain.Session, error) {
	if jsonType(data) != '{' {
		return domain.Session{}, invalid("session must be a JSON object")
	}
	var rf rawFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return domain.Session{}, invalid("%v", err)
	}

	if jsonType(rf.SchemaVersion) != '0' {
		return domain.Session{}, invalid("schemaVersion must be a number")
	}
	var version float64
	if err := json.Unmarshal(rf.SchemaVersion, &version); err != nil {
		return domain.Session{}, invalid("schemaVersion: %v", err)
	}
	if version < 0 || version != math.Trunc(version) {
		return domain.Session{}, invalid("schemaVersion must be a non-negative integer, got %v", version)
	}
	if version > SchemaVersion {
		return domain.Session{}, invalid("unsupported schemaVersion %v", version)
	}

	if jsonType(rf.CurrentPlantUML) != '"' {
		return domain.Session{}, invalid("currentPlantUML must be a string")
	}
	var current string
	if err := json.Unmarshal(rf.CurrentPlantUML, &current); err != nil {
		return domain.Session{}, invalid("currentPlantUML: %v", err)
	}

	var lastType string
	if err := optionalString(rf.LastDiagramType, &lastType); err != nil {
		return domain.Session{}, invalid("lastDiagramType must be a string")
	}

	if jsonType(rf.ChatHistory) != '[' {
		return domain.Session{}, invalid("chatHistory must be a list")
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(rf.ChatHistory, &entries); err != nil {
		return domain.Session{}, invalid("chatHistory: %v", err)
	}

	now := Now()
	msgs := make([]domain.Message, 0, len(entries))
	for i, e := range entries {
		m, err := decodeMessage(e, now)
		if err != nil {
			return domain.Session{}, invalid("chatHistory[%d]: %v", i, err)
		}
		msgs = append(msgs, m)
	}

	s := domain.Session{
		SchemaVersion: SchemaVersion,
		Messages:      msgs,
		CurrentSource: current,
		CurrentKind:   domain.Kind(lastType),
	}
	// The engine is not part of the file; recover it from the bot message
	// that produced the current diagram.
	if bot, ok := lastBot(msgs); ok && bot.Text == current {
		s.CurrentEngine = bot.Engine
		if !s.CurrentKind.Specified() {
			s.CurrentKind = bot.Kind
		}
	}
	return s, nil
}

func decodeMessage(data json.RawMessage, now time.Time) (domain.Message, error) {
	if jsonType(data) != '{' {
		return domain.Message{}, fmt.Errorf("entry must be an object")
	}
	var rm rawMessage
	if err := json.Unmarshal(data, &rm); err != nil {
		return domain.Message{}, err
	}

	var m domain.Message
	var role string
	if jsonType(rm.Role) != '"' {
		return domain.Message{}, fmt.Errorf("role must be a string")
	}
	if err := json.Unmarshal(rm.Role, &role); err != nil {
		return domain.Message{}, err
	}
	m.Role = domain.Role(role)
	if !m.Role.Persisted() {
		return domain.Message{}, fmt.Errorf("unknown role %q", role)
	}

	if jsonType(rm.Text) != '"' {
		return domain.Message{}, fmt.Errorf("text must be a string")
	}
	if err := json.Unmarshal(rm.Text, &m.Text); err != nil {
		return domain.Message{}, err
	}

	if err := optionalString(rm.ID, &m.ID); err != nil {
		return domain.Message{}, fmt.Errorf("id must be a string")
	}
	if m.ID == "" {
		m.ID = NewID()
	}

	var kind, engine string
	if err := optionalString(rm.Kind, &kind); err != nil {
		return domain.Message{}, fmt.Errorf("kind must be a string")
	}
	if err := optionalString(rm.Engine, &engine); err != nil {
		return domain.Message{}, fmt.Errorf("engine must be a string")
	}
	m.Kind = domain.Kind(kind)
	m.Engine = domain.EngineID(engine)

	m.Timestamp = now
	switch jsonType(rm.Timestamp) {
	case 0, 'n':
	case '0':
		var ms float64
		if err := json.Unmarshal(rm.Timestamp, &ms); err != nil {
			return domain.Message{}, err
		}
		m.Timestamp = time.UnixMilli(int64(ms)).UTC()
	default:
		return domain.Message{}, fmt.Errorf("timestamp must be a number")
	}
	return m, nil
}

// CurrentFrom returns the diagram described by the last bot message, or the
// empty template when there is none.
func CurrentFrom(msgs []domain.Message) (string, domain.Kind, domain.EngineID) {
	if bot, ok := lastBot(msgs); ok {
		return bot.Text, bot.Kind, bot.Engine
	}
	return "", domain.KindUnspecified, ""
}

func lastBot(msgs []domain.Message) (domain.Message, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == domain.RoleBot {
			return msgs[i], true
		}
	}
	return domain.Message{}, false
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidSessionFormat, fmt.Sprintf(format, args...))
}

// jsonType returns the class of a raw JSON value: '{', '[', '"', '0' for
// numbers, 't' for booleans, 'n' for null and 0 when absent.
func jsonType(data []byte) byte {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0
	}
	switch c := data[0]; {
	case c == '{' || c == '[' || c == '"' || c == 'n':
		return c
	case c == 't' || c == 'f':
		return 't'
	case c == '-' || (c >= '0' && c <= '9'):
		return '0'
	default:
		return 0
	}
}

// optionalString decodes data into dst unless it is absent or null.
func optionalString(data json.RawMessage, dst *string) error {
	switch jsonType(data) {
	case 0, 'n':
		return nil
	case '"':
		return json.Unmarshal(data, dst)
	default:
		return fmt.Errorf("not a string")
	}
}
