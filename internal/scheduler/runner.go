// Package scheduler runs the hub's power routines: cron-driven
// power-on and power-off of the player.
package scheduler

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// PowerController is the slice of the player driver the runner needs.
type PowerController interface {
	PowerOn() bool
	PowerOff() bool
}

// routine is one cron-scheduled power action.
type routine struct {
	name     string
	spec     string
	schedule cron.Schedule
	action   func() bool
}

// Runner fires power routines on their cron schedules.
type Runner struct {
	logger   *log.Logger
	routines []*routine

	// OnResult, when set, receives the outcome of every fired routine.
	OnResult func(name string, success bool)

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRunner builds a runner for the given cron expressions. Empty
// expressions disable the corresponding routine; invalid ones are
// rejected. Standard five-field cron syntax (minute through weekday).
func NewRunner(logger *log.Logger, player PowerController, powerOnSpec, powerOffSpec string) (*Runner, error) {
	if logger == nil {
		logger = log.Default()
	}

	r := &Runner{
		logger: logger,
		stopCh: make(chan struct{}),
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	if powerOnSpec != "" {
		schedule, err := parser.Parse(powerOnSpec)
		if err != nil {
			return nil, fmt.Errorf("parse POWER_ON_CRON: %w", err)
		}
		r.routines = append(r.routines, &routine{
			name:     "power_on",
			spec:     powerOnSpec,
			schedule: schedule,
			action:   player.PowerOn,
		})
	}

	if powerOffSpec != "" {
		schedule, err := parser.Parse(powerOffSpec)
		if err != nil {
			return nil, fmt.Errorf("parse POWER_OFF_CRON: %w", err)
		}
		r.routines = append(r.routines, &routine{
			name:     "power_off",
			spec:     powerOffSpec,
			schedule: schedule,
			action:   player.PowerOff,
		})
	}

	return r, nil
}

// Start begins the scheduling loop. A runner with no routines is a
// no-op.
func (r *Runner) Start() {
	if len(r.routines) == 0 {
		r.logger.Printf("Power routines disabled, no cron expressions configured")
		return
	}

	for _, rt := range r.routines {
		r.logger.Printf("Power routine %s scheduled: %s", rt.name, rt.spec)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run()
	}()
}

// Stop gracefully stops the runner.
func (r *Runner) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}

// run sleeps until the earliest next fire time, executes that routine,
// and repeats.
func (r *Runner) run() {
	for {
		fireAt, rt := r.nextFire(time.Now())
		timer := time.NewTimer(time.Until(fireAt))

		select {
		case <-r.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			r.fire(rt)
		}
	}
}

// nextFire returns the earliest upcoming fire time across all routines
// and the routine that owns it.
func (r *Runner) nextFire(now time.Time) (time.Time, *routine) {
	var at time.Time
	var winner *routine
	for _, rt := range r.routines {
		next := rt.schedule.Next(now)
		if winner == nil || next.Before(at) {
			at = next
			winner = rt
		}
	}
	return at, winner
}

func (r *Runner) fire(rt *routine) {
	success := rt.action()
	r.logger.Printf("Power routine %s fired, success=%v", rt.name, success)

	if r.OnResult != nil {
		r.OnResult(rt.name, success)
	}
}
