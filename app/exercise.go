package app

import (
	"segpad/core"
)

// Exercise is one demo program sharing the display and keypad
type Exercise interface {
	Name() string

	// Bind registers the exercise's key actions
	Bind(d *Dispatcher)

	// Update refreshes outputs. It runs from a core timer.
	Update() error

	// Period returns the delay before the next Update, in ticks.
	// Zero means the exercise is purely key driven.
	Period() uint32
}

// Runner schedules an exercise's Update calls
type Runner struct {
	ex     Exercise
	timer  core.Timer
	errors uint32
}

// Run binds ex to d and schedules its updates. The first update runs on
// the next timer dispatch.
func Run(ex Exercise, d *Dispatcher) *Runner {
	r := &Runner{ex: ex}
	ex.Bind(d)
	if ex.Period() == 0 {
		if err := ex.Update(); err != nil {
			r.report(err)
		}
		return r
	}
	r.timer.Handler = r.handle
	r.timer.WakeTime = core.GetTime()
	core.ScheduleTimer(&r.timer)
	return r
}

func (r *Runner) handle(t *core.Timer) uint8 {
	if err := r.ex.Update(); err != nil {
		r.report(err)
	}
	period := r.ex.Period()
	if period == 0 {
		return core.SF_DONE
	}
	t.WakeTime += period
	if now := core.GetTime(); core.TimeBefore(t.WakeTime, now) {
		t.WakeTime = now + period
	}
	return core.SF_RESCHEDULE
}

func (r *Runner) report(err error) {
	r.errors++
	if r.errors == 1 || r.errors%100 == 0 {
		core.Logger().Error("exercise update failed", "exercise", r.ex.Name(), "err", err, "count", r.errors)
	}
}

// Stop cancels further updates
func (r *Runner) Stop() {
	core.CancelTimer(&r.timer)
}

// Errors returns the number of failed updates
func (r *Runner) Errors() uint32 { return r.errors }
