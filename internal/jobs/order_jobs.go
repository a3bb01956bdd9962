package jobs

import "context"

// AssessLateFees charges late fees on delivered orders past their rental end.
func (jr *JobRunner) AssessLateFees() {
	jr.scheduled(JobAssessLateFees)
}

// SendReturnReminders emails customers whose rentals end soon.
func (jr *JobRunner) SendReturnReminders() {
	jr.scheduled(JobSendReturnReminders)
}

// ExpirePendingOrders cancels orders that stayed pending too long.
func (jr *JobRunner) ExpirePendingOrders() {
	jr.scheduled(JobExpirePendingOrders)
}

// scheduled is the cron entry point. Errors are logged and recorded by Run.
func (jr *JobRunner) scheduled(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	_, _ = jr.Run(ctx, name)
}
