package offline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"spendwise/internal/log"
)

// Control message types accepted by HandleMessage.
const (
	MessageSkipWaiting = "SKIP_WAITING"
	MessageClearCache  = "CLEAR_CACHE"
)

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrNoController   = errors.New("no controller registered")
)

// Message is a control message posted by a client.
type Message struct {
	Type string `json:"type"`
}

// Registration tracks the active and waiting controllers of one scope and
// routes requests to the active one.
type Registration struct {
	// lifecycle serializes install and activation.
	lifecycle sync.Mutex

	mu      sync.RWMutex
	active  *Controller
	waiting *Controller
	// pending failed to register and is retried by Update.
	pending *Controller

	network http.RoundTripper
	logger  *log.Logger
}

var _ http.RoundTripper = (*Registration)(nil)

// NewRegistration routes requests to network until a controller activates.
func NewRegistration(network http.RoundTripper, logger *log.Logger) *Registration {
	if network == nil {
		network = http.DefaultTransport
	}
	if logger == nil {
		logger = log.Default(log.ComponentOffline)
	}
	return &Registration{
		network: network,
		logger:  logger.WithComponent(log.ComponentOffline),
	}
}

func (r *Registration) Active() *Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

func (r *Registration) Waiting() *Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.waiting
}

// Register installs c and promotes it when it asked to skip waiting or when
// nothing is active yet. Otherwise c waits for a SKIP_WAITING message.
// A controller that fails to register is kept and retried by Update.
func (r *Registration) Register(ctx context.Context, c *Controller) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()
	return r.register(ctx, c)
}

// register must be called with lifecycle held.
func (r *Registration) register(ctx context.Context, c *Controller) error {
	err := r.install(ctx, c)

	r.mu.Lock()
	if err != nil {
		r.pending = c
	} else {
		r.pending = nil
	}
	r.mu.Unlock()
	return err
}

func (r *Registration) install(ctx context.Context, c *Controller) error {
	if err := c.Install(ctx); err != nil {
		return fmt.Errorf("install %s: %w", c.Version(), err)
	}

	r.mu.Lock()
	prevWaiting := r.waiting
	r.waiting = c
	hasActive := r.active != nil
	r.mu.Unlock()

	if prevWaiting != nil && prevWaiting != c {
		prevWaiting.markRedundant(ctx)
	}

	if c.WantsSkipWaiting() || !hasActive {
		return r.promote(ctx, c)
	}
	return nil
}

// promote must be called with lifecycle held.
func (r *Registration) promote(ctx context.Context, c *Controller) error {
	if err := c.Activate(ctx); err != nil {
		c.markRedundant(ctx)
		r.mu.Lock()
		if r.waiting == c {
			r.waiting = nil
		}
		r.mu.Unlock()
		return fmt.Errorf("activate %s: %w", c.Version(), err)
	}

	r.mu.Lock()
	old := r.active
	r.active = c
	if r.waiting == c {
		r.waiting = nil
	}
	r.mu.Unlock()

	if old != nil && old != c {
		old.markRedundant(ctx)
	}
	return nil
}

// HandleMessage applies a control message.
func (r *Registration) HandleMessage(ctx context.Context, m Message) error {
	r.logger.InfoContext(ctx, "Control message received",
		log.FieldOperation, log.OpMessage, log.FieldType, m.Type)

	switch m.Type {
	case MessageSkipWaiting:
		r.lifecycle.Lock()
		defer r.lifecycle.Unlock()

		w := r.Waiting()
		if w == nil {
			return nil
		}
		w.SkipWaiting()
		return r.promote(ctx, w)

	case MessageClearCache:
		c := r.Active()
		if c == nil {
			c = r.Waiting()
		}
		if c == nil {
			return ErrNoController
		}
		n, err := c.ClearCaches(ctx)
		r.logger.InfoContext(ctx, "Caches cleared", log.FieldOperation, log.OpMessage, log.FieldCount, n)
		return err

	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}
}

// Update re-precaches the manifest into the active controller's static
// generation and returns the number of assets that failed. With nothing
// active it retries the registration that failed last.
func (r *Registration) Update(ctx context.Context) (int, error) {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	c := r.Active()
	if c == nil {
		r.mu.RLock()
		pending := r.pending
		r.mu.RUnlock()
		if pending == nil {
			return 0, ErrNoController
		}

		r.logger.InfoContext(ctx, "Retrying controller registration", log.FieldVersion, pending.Version())
		if err := r.register(ctx, pending); err != nil {
			return 0, fmt.Errorf("retry registration: %w", err)
		}
		return 0, nil
	}
	if err := c.storage.Open(ctx, c.StaticCache()); err != nil {
		return 0, fmt.Errorf("open %s: %w", c.StaticCache(), err)
	}
	return c.Precache(ctx), nil
}

// RoundTrip sends req through the active controller, or straight to the
// network when none is active.
func (r *Registration) RoundTrip(req *http.Request) (*http.Response, error) {
	if c := r.Active(); c != nil {
		return c.RoundTrip(req)
	}
	return r.network.RoundTrip(req)
}
