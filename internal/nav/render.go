package nav

type Button struct {
	Label  string
	Action Action
	URL    string
}

// Render is the single response to one event.
type Render struct {
	Text     string
	Keyboard [][]Button
	// Album is sent as a media group before Text; the previous album sent to
	// the user is removed first.
	Album []Attachment
	// Notice is a short message about the event itself (unknown selection,
	// data gap, receipt). Button presses show it as a callback answer,
	// messages get it above Text.
	Notice string
	// Fresh asks for a new message instead of editing the previous screen.
	Fresh bool
	Ack   string
}

func Row(buttons ...Button) []Button { return buttons }

func Btn(label string, a Action) Button {
	return Button{Label: label, Action: a}
}

func Link(label, url string) Button {
	return Button{Label: label, URL: url}
}

// HasAction reports whether any button of r triggers id.
func (r Render) HasAction(id ActionID) bool {
	for _, row := range r.Keyboard {
		for _, b := range row {
			if b.URL == "" && b.Action.ID == id {
				return true
			}
		}
	}
	return false
}
