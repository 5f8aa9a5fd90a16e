package nav

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"telegram-storefront-bot/internal/notify"
)

// Deps are the collaborators of an Engine.
type Deps struct {
	Store    SessionStore
	Locker   Locker
	Notifier notify.Notifier
	Logger   logrus.FieldLogger
	// IsAdmin is asked on every administrator-scoped event.
	IsAdmin func(userID int64) bool
	// Lang returns the saved language of a user for new sessions.
	Lang func(ctx context.Context, userID int64) (string, error)
}

// Engine applies events to sessions, one event per user at a time.
type Engine struct {
	graph *Graph
	deps  Deps
	wg    sync.WaitGroup
}

func NewEngine(g *Graph, deps Deps) (*Engine, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}
	if deps.Store == nil || deps.Locker == nil {
		return nil, errors.New("engine needs a session store and a locker")
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.IsAdmin == nil {
		deps.IsAdmin = func(int64) bool { return false }
	}
	return &Engine{graph: g, deps: deps}, nil
}

func (e *Engine) Graph() *Graph { return e.graph }

// Wait blocks until every notification started by Handle has finished.
func (e *Engine) Wait() { e.wg.Wait() }

func sessionKey(userID int64) string {
	return "nav:user:" + strconv.FormatInt(userID, 10)
}

// Handle processes one inbound event and returns the render for it. It
// only fails when the session cannot be locked or loaded; everything else
// becomes a notice on the render.
func (e *Engine) Handle(ctx context.Context, in Inbound) (Render, error) {
	log := e.deps.Logger.WithField("user_id", in.User.ID)

	unlock, err := e.deps.Locker.Lock(ctx, sessionKey(in.User.ID))
	if err != nil {
		return Render{}, fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	cur, created, err := e.load(ctx, in.User.ID)
	if err != nil {
		return Render{}, err
	}
	admin := e.deps.IsAdmin(in.User.ID)
	texts := e.graph.texts(cur.Lang)

	out := e.graph.Step(cur, in, admin)
	next := out.Session
	notice := out.Notice
	ack := ""
	var (
		direct *Render
		alert  *notify.Message
	)

	switch out.Kind {
	case OutcomeCommand:
		req := &Request{Session: next, User: in.User, Args: out.Args, Lang: next.Lang, Admin: admin}
		r, err := out.Command.Run(ctx, req)
		var usage *UsageError
		switch {
		case err == nil:
			direct = &r
		case errors.As(err, &usage):
			direct = &Render{Text: usage.Hint, Fresh: true}
		default:
			log.WithFields(logrus.Fields{"command": out.Command.Name, "error": err.Error()}).Error("command failed")
			notice = texts.Failed
		}

	case OutcomeCollect:
		c, ok := e.graph.collectors[next.Collector]
		if !ok || (c.AdminOnly && !admin) {
			next.Collector = ""
			notice = texts.Unauthorized
			if !ok {
				notice = texts.Unknown
			}
			break
		}
		text, _ := in.Event.(TextMessage)
		req := &Request{Session: next, User: in.User, Lang: next.Lang, Admin: admin, Text: text}
		r, done, err := c.Accept(ctx, req)
		if err != nil {
			log.WithFields(logrus.Fields{"collector": c.ID, "error": err.Error()}).Error("collector failed")
			notice = texts.Failed
			break
		}
		if done {
			next.Collector = ""
		}
		direct = &r

	case OutcomeCommit:
		f := e.graph.flows[out.Completion.Flow]
		out.Completion.User = in.User
		receipt, err := f.Commit(ctx, out.Completion)
		if err != nil {
			log.WithFields(logrus.Fields{
				"flow":     f.ID,
				"instance": out.Completion.Instance,
				"error":    err.Error(),
			}).Error("flow commit failed")
			next.Screen = out.Completion.Origin
			notice = texts.Failed
			break
		}
		notice = receipt.Text
		alert = receipt.Notify

	case OutcomeScreen:
		if t := out.Transition; t != nil {
			ack = t.Ack
			if t.Do != nil {
				if err := t.Do(ctx, &Effect{Session: next, User: in.User, Arg: out.Arg}); err != nil {
					log.WithField("error", err.Error()).Error("transition effect failed")
					next = cur.Clone()
					notice = texts.Failed
				}
			}
		}
	}

	var render Render
	if direct != nil {
		render = *direct
	} else {
		render, next, notice = e.draw(ctx, cur, next, in.User, admin, notice, log)
	}
	if render.Notice == "" {
		render.Notice = notice
	}
	if render.Ack == "" {
		render.Ack = ack
	}

	if err := e.save(ctx, next, created); err != nil {
		log.WithField("error", err.Error()).Warn("session not saved")
	}
	if alert != nil {
		e.dispatch(ctx, *alert, log)
	}
	return render, nil
}

// draw renders next. A data gap falls back to the previous session with a
// gap notice, so the user stays where they were.
func (e *Engine) draw(ctx context.Context, prev, next *Session, user User, admin bool, notice string, log logrus.FieldLogger) (Render, *Session, string) {
	texts := e.graph.texts(next.Lang)
	if scr, ok := e.graph.screens[next.Screen]; ok && scr.AdminOnly && !admin && next.Flow == nil {
		e.graph.reset(next)
		notice = texts.Unauthorized
	}

	r, err := e.graph.render(ctx, next, &View{Session: next, User: user, Lang: next.Lang, Admin: admin})
	if err == nil {
		return r, next, notice
	}
	if errors.Is(err, ErrDataGap) {
		log.WithFields(logrus.Fields{"screen": next.Screen, "error": err.Error()}).Info("data gap")
		notice = texts.DataGap
	} else {
		log.WithFields(logrus.Fields{"screen": next.Screen, "error": err.Error()}).Error("render failed")
		notice = texts.Failed
	}

	fallback := prev.Clone()
	fallback.Flow = nil
	fallback.Collector = ""
	r, err = e.graph.render(ctx, fallback, &View{Session: fallback, User: user, Lang: fallback.Lang, Admin: admin})
	if err != nil {
		e.graph.reset(fallback)
		r, err = e.graph.render(ctx, fallback, &View{Session: fallback, User: user, Lang: fallback.Lang, Admin: admin})
		if err != nil {
			log.WithField("error", err.Error()).Error("root screen does not render")
			return Render{Text: texts.Failed}, fallback, ""
		}
	}
	return r, fallback, notice
}

func (e *Engine) load(ctx context.Context, userID int64) (*Session, bool, error) {
	s, err := e.deps.Store.Get(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("load session: %w", err)
	}
	if s != nil {
		return s, false, nil
	}
	s = &Session{UserID: userID}
	if e.deps.Lang != nil {
		lang, err := e.deps.Lang(ctx, userID)
		if err != nil {
			e.deps.Logger.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("language preference unavailable")
		}
		s.Lang = lang
	}
	s.Screen = e.graph.startScreen(s)
	return s, true, nil
}

func (e *Engine) save(ctx context.Context, s *Session, created bool) error {
	s.UpdatedAt = time.Now()
	if created {
		return e.deps.Store.Create(ctx, s)
	}
	return e.deps.Store.Update(ctx, s)
}

// dispatch delivers msg in the background. The user's response never waits
// for it and its failure changes nothing that was already committed.
func (e *Engine) dispatch(ctx context.Context, msg notify.Message, log logrus.FieldLogger) {
	ctx = context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.deps.Notifier.Notify(ctx, msg); err != nil {
			log.WithField("error", err.Error()).Warn("admin notification failed")
		}
	}()
}
