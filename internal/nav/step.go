package nav

import (
	"errors"
	"strings"
)

type OutcomeKind int

const (
	// OutcomeScreen renders the session's screen or prompt.
	OutcomeScreen OutcomeKind = iota
	// OutcomeCommand runs Outcome.Command; its render is the response.
	OutcomeCommand
	// OutcomeCollect feeds the text to the session's collector.
	OutcomeCollect
	// OutcomeCommit runs the terminal action of a completed flow.
	OutcomeCommit
)

// Outcome is the result of Step. Session is a new value; the input session
// is never modified.
type Outcome struct {
	Kind       OutcomeKind
	Session    *Session
	Err        error
	Notice     string
	Transition *Transition
	Arg        string
	Command    *Command
	Args       string
	Completion *Completion
}

const (
	cmdStart  = "start"
	cmdCancel = "cancel"
)

// Step is the transition function of the graph. It decides everything that
// does not need I/O: which screen comes next, whether a flow starts, records
// an answer or completes, and which command or collector should run.
func (g *Graph) Step(cur *Session, in Inbound, admin bool) Outcome {
	s := cur.Clone()
	texts := g.texts(s.Lang)

	switch ev := in.Event.(type) {
	case CommandMessage:
		return g.stepCommand(s, ev, admin, texts)
	case ButtonPress:
		return g.stepButton(s, ev, admin, texts)
	case TextMessage:
		return g.stepText(s, ev, texts)
	}
	return Outcome{Kind: OutcomeScreen, Session: s, Err: ErrUnknownSelection, Notice: texts.Unknown}
}

func (g *Graph) stepCommand(s *Session, ev CommandMessage, admin bool, texts Texts) Outcome {
	name := strings.ToLower(ev.Name)
	switch name {
	case cmdStart:
		g.reset(s)
		s.Screen = g.startScreen(s)
		return Outcome{Kind: OutcomeScreen, Session: s}
	case cmdCancel:
		busy := s.Flow != nil || s.Collector != ""
		g.reset(s)
		out := Outcome{Kind: OutcomeScreen, Session: s}
		if busy {
			out.Notice = texts.Cancelled
		}
		return out
	}

	cmd, ok := g.commands[name]
	if !ok {
		if s.Flow != nil {
			// Anything typed during a flow is an answer.
			return g.stepText(s, TextMessage{Text: "/" + ev.Name + spaced(ev.Args)}, texts)
		}
		return Outcome{Kind: OutcomeScreen, Session: s, Err: ErrUnknownSelection, Notice: texts.Unknown}
	}
	if cmd.AdminOnly && !admin {
		return Outcome{Kind: OutcomeScreen, Session: s, Err: ErrUnauthorized, Notice: texts.Unauthorized}
	}
	g.leave(s)
	return Outcome{Kind: OutcomeCommand, Session: s, Command: cmd, Args: strings.TrimSpace(ev.Args)}
}

func (g *Graph) stepButton(s *Session, ev ButtonPress, admin bool, texts Texts) Outcome {
	busy := s.Flow != nil || s.Collector != ""
	g.leave(s)

	if ev.Action.ID == ActionCancel {
		out := Outcome{Kind: OutcomeScreen, Session: s}
		if busy {
			out.Notice = texts.Cancelled
		}
		return out
	}

	t, ok := g.transition(s.Screen, ev.Action.ID)
	if !ok {
		return Outcome{Kind: OutcomeScreen, Session: s, Err: ErrUnknownSelection, Notice: texts.Unknown}
	}
	if t.Select != "" && (ev.Action.Arg == "" || (t.Valid != nil && !t.Valid(ev.Action.Arg))) {
		return Outcome{Kind: OutcomeScreen, Session: s, Err: ErrUnknownSelection, Notice: texts.Unknown}
	}
	if t.To != "" && t.Flow == "" {
		if target, ok := g.screens[t.To]; ok && target.AdminOnly && !admin {
			return Outcome{Kind: OutcomeScreen, Session: s, Err: ErrUnauthorized, Notice: texts.Unauthorized}
		}
	}

	if t.Reset {
		s.Selection = nil
	}
	if t.Select != "" {
		s.Select(t.Select, ev.Action.Arg)
	}
	if t.Flow != "" {
		s.Flow = &FlowState{ID: t.Flow, Instance: g.newID(), Origin: s.Screen}
	} else if t.To != "" {
		s.Screen = t.To
	}
	return Outcome{Kind: OutcomeScreen, Session: s, Transition: &t, Arg: ev.Action.Arg}
}

func (g *Graph) stepText(s *Session, ev TextMessage, texts Texts) Outcome {
	if s.Collector != "" {
		return Outcome{Kind: OutcomeCollect, Session: s}
	}
	if s.Flow == nil {
		return Outcome{Kind: OutcomeScreen, Session: s, Notice: texts.UseButtons}
	}

	f, ok := g.flows[s.Flow.ID]
	if !ok || s.Flow.Step >= len(f.Prompts) {
		// The graph changed under a live session.
		g.leave(s)
		return Outcome{Kind: OutcomeScreen, Session: s, Err: ErrUnknownSelection, Notice: texts.Unknown}
	}
	p := f.Prompts[s.Flow.Step]

	answer := Answer{Field: p.Field, Value: strings.TrimSpace(ev.Text)}
	if p.Media {
		if ev.Attachment == nil {
			return Outcome{Kind: OutcomeScreen, Session: s, Err: ErrInvalidAnswer, Notice: texts.NeedMedia}
		}
		media := *ev.Attachment
		answer.Media = &media
		if answer.Value == "" {
			answer.Value = strings.TrimSpace(media.Caption)
		}
	}
	if p.Normalize != nil {
		v, err := p.Normalize(answer.Value)
		if err != nil {
			notice := texts.UseButtons
			var rej *Reject
			if errors.As(err, &rej) {
				notice = rej.Message
			}
			return Outcome{Kind: OutcomeScreen, Session: s, Err: ErrInvalidAnswer, Notice: notice}
		}
		answer.Value = v
	}
	s.Flow.Answers = append(s.Flow.Answers, answer)

	if s.Flow.Step+1 < len(f.Prompts) {
		s.Flow.Step++
		return Outcome{Kind: OutcomeScreen, Session: s}
	}

	done := &Completion{
		Flow:      f.ID,
		Instance:  s.Flow.Instance,
		Origin:    s.Flow.Origin,
		Lang:      s.Lang,
		Answers:   s.Flow.Answers,
		Selection: copySelection(s.Selection),
	}
	// The flow is gone from the session in the same step that hands out its
	// completion, so a repeated final message finds nothing to complete.
	s.Flow = nil
	s.Screen = f.Done
	return Outcome{Kind: OutcomeCommit, Session: s, Completion: done}
}

func (g *Graph) transition(screen ScreenID, id ActionID) (Transition, bool) {
	if scr, ok := g.screens[screen]; ok {
		if t, ok := scr.Transitions[id]; ok {
			return t, true
		}
	}
	t, ok := g.globals[id]
	return t, ok
}

// leave drops any flow or collector, returning to the screen the flow was
// started from.
func (g *Graph) leave(s *Session) {
	if s.Flow != nil {
		s.Screen = s.Flow.Origin
		s.Flow = nil
	}
	s.Collector = ""
}

// reset is the root transition: no flow, no collector, no selection.
func (g *Graph) reset(s *Session) {
	s.Flow = nil
	s.Collector = ""
	s.Selection = nil
	s.Screen = g.root
}

func (g *Graph) startScreen(s *Session) ScreenID {
	if g.start != nil {
		if id := g.start(s); id != "" {
			return id
		}
	}
	return g.root
}

func copySelection(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func spaced(args string) string {
	if args == "" {
		return ""
	}
	return " " + args
}
