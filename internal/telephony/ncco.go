package telephony

import (
	"encoding/json"
	"errors"
	"strings"
)

// NCCO (Nexmo Call Control Object) is the JSON call-control language the
// provider executes, in order, for a voice webhook response.
//
// Only the actions the hotline needs are modelled.

// Action is one NCCO instruction. The concrete types serialise with an
// "action" discriminator.
type Action interface {
	ActionName() string
}

// Sequence is an ordered NCCO. Order is significant.
type Sequence []Action

const (
	ActionTalk         = "talk"
	ActionConversation = "conversation"
)

// Talk synthesises speech into the call.
type Talk struct {
	Text string `json:"text"`
}

func (Talk) ActionName() string { return ActionTalk }

func (t Talk) MarshalJSON() ([]byte, error) {
	type alias Talk
	return json.Marshal(struct {
		Action string `json:"action"`
		alias
	}{ActionTalk, alias(t)})
}

// Conversation joins (or creates) the named audio bridge.
//
// Record, EventMethod, MusicOnHoldURL and EventURL are omitted when unset.
// EndOnExit and StartOnEnter are always sent.
type Conversation struct {
	Name           string   `json:"name"`
	Record         bool     `json:"record,omitempty"`
	EventMethod    string   `json:"eventMethod,omitempty"`
	MusicOnHoldURL []string `json:"musicOnHoldUrl,omitempty"`
	EventURL       []string `json:"eventUrl,omitempty"`
	EndOnExit      bool     `json:"endOnExit"`
	StartOnEnter   bool     `json:"startOnEnter"`
}

func (Conversation) ActionName() string { return ActionConversation }

func (c Conversation) MarshalJSON() ([]byte, error) {
	type alias Conversation
	return json.Marshal(struct {
		Action string `json:"action"`
		alias
	}{ActionConversation, alias(c)})
}

var (
	ErrEmptyNCCO             = errors.New("telephony: empty ncco")
	ErrConversationName      = errors.New("telephony: conversation name required")
	ErrRecordWithoutEventURL = errors.New("telephony: recorded conversation requires an event url")
	ErrUnsupportedNCCOAction = errors.New("telephony: unsupported ncco action")
)

// Validate checks the invariants the provider relies on.
func (s Sequence) Validate() error {
	if len(s) == 0 {
		return ErrEmptyNCCO
	}
	for _, a := range s {
		switch v := a.(type) {
		case Talk:
		case Conversation:
			if strings.TrimSpace(v.Name) == "" {
				return ErrConversationName
			}
			if v.Record && len(v.EventURL) == 0 {
				return ErrRecordWithoutEventURL
			}
		default:
			return ErrUnsupportedNCCOAction
		}
	}
	return nil
}

// RenderNCCO validates and serialises a sequence as the JSON array the
// provider expects.
func RenderNCCO(s Sequence) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal([]Action(s))
}
