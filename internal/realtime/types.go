package realtime

import (
	"encoding/json"
	"time"
)

// --- Channel kinds ---
type Kind string

const (
	KindCart      Kind = "cart"
	KindOrder     Kind = "order"
	KindProduct   Kind = "product"
	KindExecutive Kind = "executive"
	KindInventory Kind = "inventory"
	KindMarketing Kind = "marketing"
)

var kinds = []Kind{KindCart, KindOrder, KindProduct, KindExecutive, KindInventory, KindMarketing}

func (k Kind) IsValid() bool {
	for _, v := range kinds {
		if k == v {
			return true
		}
	}
	return false
}

// IsDashboard reports whether k is one of the analytics dashboard kinds.
func (k Kind) IsDashboard() bool {
	return k == KindExecutive || k == KindInventory || k == KindMarketing
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", newValidationError("kind", "unknown channel kind "+quote(s))
	}
	return k, nil
}

// --- Visibility scopes ---
type Scope string

const (
	ScopeUser   Scope = "user-specific"
	ScopeAdmin  Scope = "admin-only"
	ScopeGlobal Scope = "global"
)

func (s Scope) IsValid() bool {
	return s == ScopeUser || s == ScopeAdmin || s == ScopeGlobal
}

// Tag is the short form used in channel names.
func (s Scope) Tag() string {
	switch s {
	case ScopeUser:
		return "user"
	case ScopeAdmin:
		return "admin"
	case ScopeGlobal:
		return "global"
	}
	return ""
}

func ParseScope(s string) (Scope, error) {
	sc := Scope(s)
	if !sc.IsValid() {
		return "", newValidationError("scope", "unknown scope "+quote(s))
	}
	return sc, nil
}

// --- Subscription status reported by transports ---
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusSubscribed Status = "subscribed"
	StatusClosed     Status = "closed"
	StatusErrored    Status = "errored"
)

// --- Channel descriptor ---

// ChannelDescriptor identifies a logical channel. Identity is the whole tuple.
type ChannelDescriptor struct {
	Kind      Kind   `json:"kind"`
	Scope     Scope  `json:"scope"`
	SubjectID string `json:"subject_id,omitempty"`
}

// Validate checks the tuple. SubjectID is required only for user-specific scope.
func (d ChannelDescriptor) Validate() error {
	if !d.Kind.IsValid() {
		return newValidationError("kind", "unknown channel kind "+quote(string(d.Kind)))
	}
	if !d.Scope.IsValid() {
		return newValidationError("scope", "unknown scope "+quote(string(d.Scope)))
	}
	if d.Scope == ScopeUser && d.SubjectID == "" {
		return newValidationError("subject_id", "required for user-specific scope")
	}
	return nil
}

// Normalize drops SubjectID for scopes that ignore it.
func (d ChannelDescriptor) Normalize() ChannelDescriptor {
	if d.Scope != ScopeUser {
		d.SubjectID = ""
	}
	return d
}

func (d ChannelDescriptor) String() string {
	if d.Scope == ScopeUser {
		return string(d.Kind) + "/" + string(d.Scope) + "/" + d.SubjectID
	}
	return string(d.Kind) + "/" + string(d.Scope)
}

// --- Wire envelope ---

const EnvelopeTypeBroadcast = "broadcast"

// Envelope is the JSON document carried by the transport.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Event      string          `json:"event"`
	Resource   Kind            `json:"resource"`
	Payload    json.RawMessage `json:"payload"`
	SourceRole string          `json:"source_role,omitempty"`
	SentAt     time.Time       `json:"sent_at"`
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEnvelope parses and sanity-checks a raw transport message.
func UnmarshalEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, newValidationError("envelope", err.Error())
	}
	if env.Type != EnvelopeTypeBroadcast {
		return Envelope{}, newValidationError("envelope", "unsupported type "+quote(env.Type))
	}
	if env.Event == "" {
		return Envelope{}, newValidationError("event", "must not be empty")
	}
	return env, nil
}

func quote(s string) string {
	return `"` + s + `"`
}
