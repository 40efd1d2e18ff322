package tasks

// TaskSchedulerInterface defines the interface for background task
// processing. The main application starts and stops the scheduler; the API
// layer enqueues on-demand tasks through it.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
