// Package install tracks whether the app can be installed and whether the
// install banner should be shown.
package install

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"spendwise/internal/events"
	"spendwise/internal/log"
	"spendwise/internal/storage"
)

// SuppressFor is how long a dismissal hides the banner.
const SuppressFor = 7 * 24 * time.Hour

type Outcome string

const (
	OutcomeAccepted    Outcome = "accepted"
	OutcomeDismissed   Outcome = "dismissed"
	OutcomeUnavailable Outcome = "unavailable"
)

func (o Outcome) IsValid() bool {
	return o == OutcomeAccepted || o == OutcomeDismissed
}

// Choice is the user's answer to an install prompt.
type Choice struct {
	Outcome  Outcome `json:"outcome"`
	Platform string  `json:"platform,omitempty"`
}

// Deferred is a platform install prompt held back until the user asks for it.
type Deferred interface {
	Prompt(ctx context.Context) (Choice, error)
}

// DeferredFunc adapts a function to Deferred.
type DeferredFunc func(ctx context.Context) (Choice, error)

func (f DeferredFunc) Prompt(ctx context.Context) (Choice, error) { return f(ctx) }

type Options struct {
	Bus    *events.Bus
	Logger *log.Logger
	Now    func() time.Time
}

// Prompt holds the install state of one client.
type Prompt struct {
	mu        sync.Mutex
	deferred  Deferred
	installed bool

	kv     storage.KV
	bus    *events.Bus
	logger *log.Logger
	now    func() time.Time
}

func NewPrompt(kv storage.KV, opts Options) *Prompt {
	p := &Prompt{kv: kv, bus: opts.Bus, logger: opts.Logger, now: opts.Now}
	if p.logger == nil {
		p.logger = log.Default(log.ComponentInstall)
	} else {
		p.logger = p.logger.WithComponent(log.ComponentInstall)
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// MarkInstallable stashes d and announces that the app can be installed.
func (p *Prompt) MarkInstallable(ctx context.Context, d Deferred) {
	p.mu.Lock()
	p.deferred = d
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "Install prompt available")
	p.bus.Publish(ctx, events.New(events.KindInstallable, log.ComponentInstall, nil))
}

// MarkInstalled drops any deferred prompt and announces the installation.
func (p *Prompt) MarkInstalled(ctx context.Context) {
	p.mu.Lock()
	p.deferred = nil
	p.installed = true
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "App installed")
	p.bus.Publish(ctx, events.New(events.KindInstalled, log.ComponentInstall, nil))
}

func (p *Prompt) CanInstall() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deferred != nil
}

func (p *Prompt) IsInstalled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.installed
}

// PromptInstall shows the deferred prompt once and returns the user's
// choice. Without a deferred prompt the outcome is OutcomeUnavailable.
// It is the in-process counterpart of Resolve, for embedders whose Deferred
// can show the prompt itself; the origin server's clients answer through
// Resolve instead.
func (p *Prompt) PromptInstall(ctx context.Context) (Choice, error) {
	p.mu.Lock()
	d := p.deferred
	p.deferred = nil
	p.mu.Unlock()

	if d == nil {
		p.logger.WarnContext(ctx, "Install prompt not available")
		return Choice{Outcome: OutcomeUnavailable}, nil
	}

	choice, err := d.Prompt(ctx)
	if err != nil {
		return Choice{}, fmt.Errorf("show install prompt: %w", err)
	}
	p.logger.InfoContext(ctx, "Install prompt answered",
		"outcome", string(choice.Outcome), "platform", choice.Platform)
	return choice, nil
}

// Resolve records the answer to a prompt the client showed itself and
// consumes the deferred prompt. Without one the outcome is
// OutcomeUnavailable.
func (p *Prompt) Resolve(ctx context.Context, c Choice) Choice {
	p.mu.Lock()
	had := p.deferred != nil
	p.deferred = nil
	p.mu.Unlock()

	if !had {
		return Choice{Outcome: OutcomeUnavailable}
	}
	p.logger.InfoContext(ctx, "Install prompt answered",
		"outcome", string(c.Outcome), "platform", c.Platform)
	return c
}

// Dismiss hides the banner for SuppressFor.
func (p *Prompt) Dismiss(ctx context.Context) error {
	ms := strconv.FormatInt(p.now().UnixMilli(), 10)
	if err := p.kv.Set(ctx, storage.InstallPromptDismissedKey, ms); err != nil {
		return fmt.Errorf("record dismissal: %w", err)
	}
	return nil
}

// DismissedAt returns when the banner was last dismissed, if ever.
// Unparseable values count as never dismissed.
func (p *Prompt) DismissedAt(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := p.kv.Get(ctx, storage.InstallPromptDismissedKey)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read dismissal: %w", err)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

// ShouldShow reports whether the banner is due: the app is installable, not
// installed, and not dismissed within SuppressFor.
func (p *Prompt) ShouldShow(ctx context.Context) bool {
	if !p.CanInstall() || p.IsInstalled() {
		return false
	}
	at, ok, err := p.DismissedAt(ctx)
	if err != nil {
		p.logger.WarnContext(ctx, "Failed to read dismissal", log.FieldError, err)
		return true
	}
	return !ok || p.now().Sub(at) >= SuppressFor
}

// Status is a snapshot for API clients.
type Status struct {
	CanInstall  bool       `json:"canInstall"`
	Installed   bool       `json:"installed"`
	ShouldShow  bool       `json:"shouldShow"`
	DismissedAt *time.Time `json:"dismissedAt,omitempty"`
}

func (p *Prompt) Status(ctx context.Context) Status {
	s := Status{
		CanInstall: p.CanInstall(),
		Installed:  p.IsInstalled(),
		ShouldShow: p.ShouldShow(ctx),
	}
	if at, ok, err := p.DismissedAt(ctx); err == nil && ok {
		s.DismissedAt = &at
	}
	return s
}
