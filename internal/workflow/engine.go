package workflow

// Engine bundles the workflow components over one backend. They share an
// Inflight guard, so a tracking command and a status change on the same
// task exclude each other.
type Engine struct {
	Tracker      *Tracker
	Status       *StatusMachine
	Approval     *Approval
	Appointments *Appointments
	Guard        *Inflight
}

func NewEngine(b Backend) *Engine {
	guard := NewInflight()
	status := NewStatusMachine(b, guard)
	return &Engine{
		Tracker:      NewTracker(b, guard),
		Status:       status,
		Approval:     NewApproval(status, b),
		Appointments: NewAppointments(b, guard),
		Guard:        guard,
	}
}

// OnTaskChange registers fn to run after every successful task command,
// typically a Hub refresh.
func (e *Engine) OnTaskChange(fn func(taskID string)) {
	e.Tracker.onChange = fn
	e.Status.onChange = fn
}

func (e *Engine) OnAppointmentChange(fn func(appointmentID string)) {
	e.Appointments.onChange = fn
}
