package constants

// OutreachTaskQueue is the Temporal task queue shared by the worker and
// every workflow starter.
const OutreachTaskQueue = "outreach-task-queue"
