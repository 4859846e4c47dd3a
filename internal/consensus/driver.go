// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package consensus

import (
	"sync"

	"github.com/starknet-sequencer/core/internal/domain"
	"github.com/starknet-sequencer/core/internal/logging"
)

// Driver owns the single active height's Machine and is the only thing
// external callers (the consensus bus, timer service, validation
// callbacks) touch. Starting a new height discards whatever Machine was
// active, which is how spec section 4.3's cancellation rule is realized:
// "a new height invalidates all in-flight async requests for older
// heights; their eventual results are dropped" falls out naturally from
// events for the old height no longer matching d.height.
type Driver struct {
	mu sync.Mutex

	validators *ValidatorSet
	self       domain.VoterID

	height  domain.Height
	machine *Machine

	log logging.Logger
}

// NewDriver constructs a Driver over a fixed validator set and local
// identity. Call StartHeight before delivering any events.
func NewDriver(validators *ValidatorSet, self domain.VoterID) *Driver {
	return &Driver{
		validators: validators,
		self:       self,
		log:        logging.For("consensus.driver"),
	}
}

// StartHeight discards the previous height's Machine (if any) and starts
// a fresh one at round 0, returning the round-entry actions (spec section
// 5: "Consensus emits events for height h strictly before any event for
// height h+1").
func (d *Driver) StartHeight(height domain.Height) []Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.height = height
	d.machine = NewMachine(height, d.validators, d.self)
	return d.machine.Start()
}

// HandleEvent delivers ev, tagged with the height it concerns, to the
// active Machine. Events for any height other than the currently active
// one are dropped: either stale results from an abandoned/decided height,
// or a bus delivery ahead of where StartHeight has gotten to.
func (d *Driver) HandleEvent(height domain.Height, ev Event) []Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.machine == nil || height != d.height {
		d.log.Debug("dropping consensus event for inactive height", "event_height", height, "active_height", d.height, "event", ev.String())
		return nil
	}
	return d.machine.HandleEvent(ev)
}

// ActiveHeight reports the height currently being driven and its state.
func (d *Driver) ActiveHeight() (domain.Height, HeightState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.machine == nil {
		return d.height, HeightState{}
	}
	return d.height, d.machine.State()
}
