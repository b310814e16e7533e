package epoch

import (
	"context"
	"fmt"

	"github.com/luxfi/prism/internal/logging"
)

// CommandType names an action the command queue can carry.
type CommandType int

const (
	CommandNew CommandType = iota
	CommandNext
	CommandOff
	CommandFloodEpoch
	CommandFloodLSP
	CommandConfig
)

// Command is one instruction for the Controller's run loop.
type Command struct {
	Type            CommandType
	TargetEpochName string // empty means "every non-OFF epoch"
	Seed            []byte // for CommandNew
}

// Controller owns every epoch a node has ever run and drives their
// lifecycle transitions from a single-goroutine command loop (the Go
// equivalent of the source's epoch_command_queue drained once per
// main-loop tick).
type Controller struct {
	epochs  map[string]*Epoch
	current *Epoch
	queue   chan Command
	log     *logging.Logger

	// OnLaunch is invoked (from the Run goroutine) whenever a new epoch
	// is created via CommandNew, so the caller can start that epoch's
	// role loop.
	OnLaunch func(e *Epoch)
	// OnFloodEpoch is invoked for a PRE_RUN epoch with a previous epoch
	// when a CommandFloodEpoch targets it.
	OnFloodEpoch func(e *Epoch)
	// OnFloodLSP is invoked for any targeted epoch on CommandFloodLSP.
	OnFloodLSP func(e *Epoch)
	// OnShutdown is invoked for any targeted epoch on CommandOff.
	OnShutdown func(e *Epoch)
}

// NewController builds a Controller seeded with the deployment's first
// epoch.
func NewController(genesis *Epoch, log *logging.Logger) *Controller {
	c := &Controller{
		epochs:  map[string]*Epoch{genesis.Name: genesis},
		current: genesis,
		queue:   make(chan Command, 64),
		log:     log,
	}
	return c
}

// Current returns the most recently launched epoch.
func (c *Controller) Current() *Epoch {
	return c.current
}

// Lookup returns a previously launched epoch by name.
func (c *Controller) Lookup(name string) (*Epoch, bool) {
	e, ok := c.epochs[name]
	return e, ok
}

// Submit enqueues a command for the run loop to process. It blocks if
// the queue is momentarily full, which only happens under a pathological
// burst of control-plane commands.
func (c *Controller) Submit(cmd Command) {
	c.queue <- cmd
}

// Register adds an already-constructed epoch (built via NewFromSeed) so
// CommandNew's launch callback can be wired externally, e.g. once
// sortition has been run against a fresh seed.
func (c *Controller) Register(e *Epoch) {
	c.epochs[e.Name] = e
	c.current = e
}

// Run drains the command queue until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-c.queue:
			if err := c.handle(cmd); err != nil {
				c.log.With("error", err).Error("epoch command failed")
			}
		}
	}
}

func (c *Controller) handle(cmd Command) error {
	targets, err := c.targets(cmd.TargetEpochName)
	if err != nil {
		return err
	}

	switch cmd.Type {
	case CommandNew:
		// The actual Epoch (with its sorted role) is expected to have
		// been built via NewFromSeed/NewGenesis and handed to Register
		// by the caller before Submit(CommandNew{}) is issued; Run's
		// job here is only to fire the launch hook for the now-current
		// epoch.
		if c.OnLaunch != nil {
			c.OnLaunch(c.current)
		}
	case CommandNext:
		for _, e := range targets {
			c.log.With("epoch", e.Name).Debug("advancing epoch to next state")
			changed := e.Advance()
			if changed && e.State == Off && c.OnShutdown != nil {
				c.OnShutdown(e)
			}
		}
	case CommandOff:
		for _, e := range targets {
			c.log.With("epoch", e.Name).Debug("shutting down epoch")
			e.State = Off
			if c.OnShutdown != nil {
				c.OnShutdown(e)
			}
		}
	case CommandFloodEpoch:
		for _, e := range targets {
			if e.State == PreRun && e.Previous != nil && c.OnFloodEpoch != nil {
				c.OnFloodEpoch(e)
			}
		}
	case CommandFloodLSP:
		for _, e := range targets {
			if c.OnFloodLSP != nil {
				c.OnFloodLSP(e)
			}
		}
	case CommandConfig:
		// Configuration patches are applied by the caller before
		// enqueueing; nothing epoch-scoped to do here.
	default:
		return fmt.Errorf("epoch: unhandled command type %d", cmd.Type)
	}
	return nil
}

func (c *Controller) targets(name string) ([]*Epoch, error) {
	if name != "" {
		e, ok := c.epochs[name]
		if !ok {
			return nil, fmt.Errorf("epoch: unknown target epoch %q", name)
		}
		return []*Epoch{e}, nil
	}
	out := make([]*Epoch, 0, len(c.epochs))
	for _, e := range c.epochs {
		if e.State != Off {
			out = append(out, e)
		}
	}
	return out, nil
}
