package nav

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"telegram-storefront-bot/internal/notify"
)

type (
	ScreenID string
	FlowID   string
)

// Built-in actions available on every screen.
const (
	ActionHome   ActionID = "home"
	ActionCancel ActionID = "cancel"
)

// View is what a screen or prompt render function sees.
type View struct {
	Session *Session
	User    User
	Lang    string
	Admin   bool
}

func (v *View) Selected(key string) string { return v.Session.Selected(key) }

type RenderFunc func(ctx context.Context, v *View) (Render, error)

// Screen is a named menu. Transitions are keyed by the action that
// triggers them.
type Screen struct {
	ID          ScreenID
	AdminOnly   bool
	Render      RenderFunc
	Transitions map[ActionID]Transition
}

// Effect is passed to Transition.Do.
type Effect struct {
	Session *Session
	User    User
	Arg     string
}

type Transition struct {
	// To is the target screen; empty keeps the current one.
	To ScreenID
	// Flow starts a collection flow instead of moving to To.
	Flow FlowID
	// Select stores the action argument under this selection key. An
	// argument rejected by Valid (or missing) is an unknown selection.
	Select string
	Valid  func(arg string) bool
	// Reset clears the selection context before Select is applied.
	Reset bool
	Do    func(ctx context.Context, e *Effect) error
	Ack   string
}

type Prompt struct {
	Field string
	// Media prompts need an attachment; its caption is the answer text.
	Media     bool
	Normalize func(text string) (string, error)
	Render    RenderFunc
}

// Completion is handed to Flow.Commit once all prompts are answered.
type Completion struct {
	Flow      FlowID
	Instance  string
	Origin    ScreenID
	User      User
	Lang      string
	Answers   []Answer
	Selection map[string]string
}

func (c *Completion) Value(field string) string {
	for _, a := range c.Answers {
		if a.Field == field {
			return a.Value
		}
	}
	return ""
}

func (c *Completion) Media(field string) *Attachment {
	for _, a := range c.Answers {
		if a.Field == field {
			return a.Media
		}
	}
	return nil
}

// Receipt is the result of a committed flow: Text for the user, Notify
// for the administrators.
type Receipt struct {
	Text   string
	Notify *notify.Message
}

type Flow struct {
	ID      FlowID
	Prompts []Prompt
	Done    ScreenID
	Commit  func(ctx context.Context, c *Completion) (Receipt, error)
}

// Request is passed to commands and collectors.
type Request struct {
	Session *Session
	User    User
	Args    string
	Lang    string
	Admin   bool
	Text    TextMessage
}

type Command struct {
	Name      string
	AdminOnly bool
	Run       func(ctx context.Context, r *Request) (Render, error)
}

// Collector accepts an open-ended series of messages until it reports done.
type Collector struct {
	ID        string
	AdminOnly bool
	Accept    func(ctx context.Context, r *Request) (out Render, done bool, err error)
}

// Texts are the engine's own user-facing strings.
type Texts struct {
	Unknown      string
	UseButtons   string
	Cancelled    string
	Unauthorized string
	DataGap      string
	Failed       string
	Busy         string
	NeedMedia    string
	CancelLabel  string
}

type Graph struct {
	root       ScreenID
	screens    map[ScreenID]*Screen
	flows      map[FlowID]*Flow
	commands   map[string]*Command
	collectors map[string]*Collector
	globals    map[ActionID]Transition
	texts      func(lang string) Texts
	start      func(s *Session) ScreenID
	newID      func() string
}

type GraphOption func(*Graph)

// WithTexts sets the localized engine strings.
func WithTexts(fn func(lang string) Texts) GraphOption {
	return func(g *Graph) { g.texts = fn }
}

// WithStart picks the screen /start and new sessions land on.
func WithStart(fn func(s *Session) ScreenID) GraphOption {
	return func(g *Graph) { g.start = fn }
}

// WithIDs replaces the flow instance id generator.
func WithIDs(fn func() string) GraphOption {
	return func(g *Graph) { g.newID = fn }
}

func NewGraph(root ScreenID, opts ...GraphOption) *Graph {
	g := &Graph{
		root:       root,
		screens:    make(map[ScreenID]*Screen),
		flows:      make(map[FlowID]*Flow),
		commands:   make(map[string]*Command),
		collectors: make(map[string]*Collector),
		globals: map[ActionID]Transition{
			ActionHome: {To: root, Reset: true},
		},
		texts: DefaultTexts,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func DefaultTexts(string) Texts {
	return Texts{
		Unknown:      "Unknown selection, please use the buttons below.",
		UseButtons:   "Please use the buttons below.",
		Cancelled:    "Cancelled.",
		Unauthorized: "Access denied.",
		DataGap:      "This item is unavailable right now.",
		Failed:       "Something went wrong, please try again later.",
		Busy:         "Still working on your previous request, please wait.",
		NeedMedia:    "Please send a photo or a file.",
		CancelLabel:  "✖ Cancel",
	}
}

func (g *Graph) Root() ScreenID { return g.root }

func (g *Graph) Texts(lang string) Texts { return g.texts(lang) }

func (g *Graph) AddScreen(s *Screen) *Graph {
	g.screens[s.ID] = s
	return g
}

func (g *Graph) AddFlow(f *Flow) *Graph {
	g.flows[f.ID] = f
	return g
}

func (g *Graph) AddCommand(c *Command) *Graph {
	g.commands[strings.ToLower(c.Name)] = c
	return g
}

func (g *Graph) AddCollector(c *Collector) *Graph {
	g.collectors[c.ID] = c
	return g
}

// Global registers a transition that every screen accepts.
func (g *Graph) Global(id ActionID, t Transition) *Graph {
	g.globals[id] = t
	return g
}

func (g *Graph) Screen(id ScreenID) (*Screen, bool) {
	s, ok := g.screens[id]
	return s, ok
}

func (g *Graph) Flow(id FlowID) (*Flow, bool) {
	f, ok := g.flows[id]
	return f, ok
}

func (g *Graph) Command(name string) (*Command, bool) {
	c, ok := g.commands[strings.ToLower(name)]
	return c, ok
}

func (g *Graph) Collector(id string) (*Collector, bool) {
	c, ok := g.collectors[id]
	return c, ok
}

// Validate checks that every state of the graph has a defined successor:
// transition targets exist, flows have prompts and a done screen, and every
// screen and prompt can render.
func (g *Graph) Validate() error {
	var errs []error
	if _, ok := g.screens[g.root]; !ok {
		errs = append(errs, fmt.Errorf("root screen %q is not registered", g.root))
	}
	check := func(where string, t Transition) {
		if t.Flow != "" {
			if _, ok := g.flows[t.Flow]; !ok {
				errs = append(errs, fmt.Errorf("%s: unknown flow %q", where, t.Flow))
			}
			return
		}
		if t.To != "" {
			if _, ok := g.screens[t.To]; !ok {
				errs = append(errs, fmt.Errorf("%s: unknown screen %q", where, t.To))
			}
		}
	}
	for _, id := range sortedKeys(g.screens) {
		s := g.screens[id]
		if s.Render == nil {
			errs = append(errs, fmt.Errorf("screen %q: no render", id))
		}
		for action, t := range s.Transitions {
			if action == ActionCancel {
				errs = append(errs, fmt.Errorf("screen %q: %q is reserved", id, action))
			}
			check(fmt.Sprintf("screen %q action %q", id, action), t)
		}
	}
	for action, t := range g.globals {
		check(fmt.Sprintf("global action %q", action), t)
	}
	for _, id := range sortedKeys(g.flows) {
		f := g.flows[id]
		if len(f.Prompts) == 0 {
			errs = append(errs, fmt.Errorf("flow %q: no prompts", id))
		}
		for i, p := range f.Prompts {
			if p.Field == "" || p.Render == nil {
				errs = append(errs, fmt.Errorf("flow %q prompt %d: field and render are required", id, i))
			}
		}
		if _, ok := g.screens[f.Done]; !ok {
			errs = append(errs, fmt.Errorf("flow %q: unknown done screen %q", id, f.Done))
		}
		if f.Commit == nil {
			errs = append(errs, fmt.Errorf("flow %q: no commit", id))
		}
	}
	for name, c := range g.commands {
		if c.Run == nil {
			errs = append(errs, fmt.Errorf("command %q: no run", name))
		}
	}
	for id, c := range g.collectors {
		if c.Accept == nil {
			errs = append(errs, fmt.Errorf("collector %q: no accept", id))
		}
	}
	return errors.Join(errs...)
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// render draws whatever the session is on: the active prompt or the screen.
// A flow prompt always carries a cancel button.
func (g *Graph) render(ctx context.Context, s *Session, v *View) (Render, error) {
	if s.Flow != nil {
		f, ok := g.flows[s.Flow.ID]
		if !ok || s.Flow.Step >= len(f.Prompts) {
			return Render{}, fmt.Errorf("flow %q step %d not defined", s.Flow.ID, s.Flow.Step)
		}
		r, err := f.Prompts[s.Flow.Step].Render(ctx, v)
		if err != nil {
			return Render{}, err
		}
		if !r.HasAction(ActionCancel) {
			r.Keyboard = append(r.Keyboard, Row(Btn(g.texts(v.Lang).CancelLabel, Act(ActionCancel))))
		}
		return r, nil
	}
	scr, ok := g.screens[s.Screen]
	if !ok {
		return Render{}, fmt.Errorf("screen %q not defined", s.Screen)
	}
	return scr.Render(ctx, v)
}
