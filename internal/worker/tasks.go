package worker

// Task type constants
const (
	TaskReminderSweep     = "reminder:sweep"
	TaskSubscriptionSweep = "subscription:sweep"
)
