package nav

import (
	"context"
	"testing"
)

func stepGraph() *Graph {
	r := func(context.Context, *View) (Render, error) { return Render{}, nil }
	g := NewGraph("main", WithIDs(func() string { return "id-1" }))
	g.AddScreen(&Screen{ID: "main", Render: r, Transitions: map[ActionID]Transition{
		"order": {Flow: "order"},
		"shop":  {To: "shop"},
	}})
	g.AddScreen(&Screen{ID: "shop", Render: r})
	g.AddFlow(&Flow{
		ID: "order",
		Prompts: []Prompt{
			{Field: "link", Render: r, Normalize: func(s string) (string, error) {
				if s == "" {
					return "", &Reject{Message: "send a link"}
				}
				return s, nil
			}},
			{Field: "proof", Media: true, Render: r},
		},
		Done:   "main",
		Commit: func(context.Context, *Completion) (Receipt, error) { return Receipt{}, nil },
	})
	return g
}

func TestStep_DoesNotMutateInput(t *testing.T) {
	g := stepGraph()
	cur := &Session{UserID: 1, Screen: "main"}
	out := g.Step(cur, Inbound{Event: ButtonPress{Action: Act("order")}}, false)
	if cur.Flow != nil {
		t.Fatal("input session mutated")
	}
	if out.Session.Flow == nil || out.Session.Flow.Instance != "id-1" || out.Session.Flow.Origin != "main" {
		t.Fatalf("flow not started: %+v", out.Session.Flow)
	}
}

func TestStep_SameInputSameOutcome(t *testing.T) {
	g := stepGraph()
	cur := &Session{UserID: 1, Screen: "main"}
	in := Inbound{Event: ButtonPress{Action: Act("shop")}}
	a, b := g.Step(cur, in, false), g.Step(cur, in, false)
	if a.Session.Screen != b.Session.Screen || a.Kind != b.Kind {
		t.Fatalf("non-deterministic step: %+v vs %+v", a, b)
	}
}

func TestStep_NormalizeRejects(t *testing.T) {
	g := stepGraph()
	cur := &Session{UserID: 1, Screen: "main", Flow: &FlowState{ID: "order", Instance: "x", Origin: "main"}}
	out := g.Step(cur, Inbound{Event: TextMessage{Text: "  "}}, false)
	if out.Err != ErrInvalidAnswer || out.Notice != "send a link" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Session.Flow.Step != 0 || len(out.Session.Flow.Answers) != 0 {
		t.Fatalf("rejected answer recorded")
	}
}

func TestStep_MediaPrompt(t *testing.T) {
	g := stepGraph()
	cur := &Session{UserID: 1, Screen: "main", Flow: &FlowState{
		ID: "order", Instance: "x", Origin: "main", Step: 1,
		Answers: []Answer{{Field: "link", Value: "https://t.me/x"}},
	}}

	out := g.Step(cur, Inbound{Event: TextMessage{Text: "paid"}}, false)
	if out.Err != ErrInvalidAnswer || out.Kind != OutcomeScreen {
		t.Fatalf("text accepted as proof: %+v", out)
	}

	att := &Attachment{Kind: AttachPhoto, FileID: "F1", Caption: "receipt"}
	out = g.Step(cur, Inbound{Event: TextMessage{Attachment: att}}, false)
	if out.Kind != OutcomeCommit {
		t.Fatalf("expected commit, got %+v", out)
	}
	c := out.Completion
	if c.Instance != "x" || c.Media("proof") == nil || c.Media("proof").FileID != "F1" || c.Value("proof") != "receipt" {
		t.Fatalf("unexpected completion %+v", c)
	}
	if out.Session.Flow != nil || out.Session.Screen != "main" {
		t.Fatalf("flow not cleared with the commit: %+v", out.Session)
	}
}

func TestStep_UnknownCommandDuringFlowIsAnswer(t *testing.T) {
	g := stepGraph()
	cur := &Session{UserID: 1, Screen: "main", Flow: &FlowState{ID: "order", Instance: "x", Origin: "main"}}
	out := g.Step(cur, Inbound{Event: CommandMessage{Name: "promo", Args: "42"}}, false)
	if out.Session.Flow == nil || out.Session.Flow.Step != 1 || out.Session.Flow.Answers[0].Value != "/promo 42" {
		t.Fatalf("unexpected outcome %+v", out.Session.Flow)
	}
}

func TestStep_StartUsesEntryScreen(t *testing.T) {
	g := stepGraph()
	g.start = func(s *Session) ScreenID {
		if s.Lang == "" {
			return "shop"
		}
		return ""
	}
	out := g.Step(&Session{UserID: 1, Screen: "main"}, Inbound{Event: CommandMessage{Name: "start"}}, false)
	if out.Session.Screen != "shop" {
		t.Fatalf("expected entry screen, got %q", out.Session.Screen)
	}
	out = g.Step(&Session{UserID: 1, Screen: "shop", Lang: "en"}, Inbound{Event: CommandMessage{Name: "start"}}, false)
	if out.Session.Screen != "main" {
		t.Fatalf("expected root, got %q", out.Session.Screen)
	}
}
