package nav

import (
	"strings"
)

// ActionID names a button. Callback data is "<id>" or "<id>:<arg>".
type ActionID string

type Action struct {
	ID  ActionID
	Arg string
}

// ParseAction decodes raw callback data. It is the only place raw
// identifiers are split; the rest of the engine works with Action values.
func ParseAction(data string) (Action, bool) {
	data = strings.TrimSpace(data)
	if data == "" {
		return Action{}, false
	}
	id, arg, _ := strings.Cut(data, ":")
	if id == "" {
		return Action{}, false
	}
	return Action{ID: ActionID(id), Arg: arg}, true
}

// Data encodes the action for a button.
func (a Action) Data() string {
	if a.Arg == "" {
		return string(a.ID)
	}
	return string(a.ID) + ":" + a.Arg
}

// Act builds an Action; arg is optional.
func Act(id ActionID, arg ...string) Action {
	a := Action{ID: id}
	if len(arg) > 0 {
		a.Arg = arg[0]
	}
	return a
}

type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

type AttachmentKind string

const (
	AttachPhoto    AttachmentKind = "photo"
	AttachVideo    AttachmentKind = "video"
	AttachDocument AttachmentKind = "document"
)

type Attachment struct {
	Kind     AttachmentKind `json:"kind"`
	FileID   string         `json:"file_id"`
	Caption  string         `json:"caption,omitempty"`
	FileName string         `json:"file_name,omitempty"`
	MIME     string         `json:"mime,omitempty"`
}

// Event is one of ButtonPress, TextMessage or CommandMessage.
type Event interface {
	event()
}

type ButtonPress struct {
	Action Action
}

type TextMessage struct {
	Text       string
	Attachment *Attachment
}

type CommandMessage struct {
	Name string
	Args string
}

func (ButtonPress) event()    {}
func (TextMessage) event()    {}
func (CommandMessage) event() {}

// Inbound is an event scoped to the user that sent it.
type Inbound struct {
	User  User
	Event Event
}
