package model

// EngineStats describes the current state of the priority engine.
// Breakdown counts only messages still pending in the heap.
type EngineStats struct {
	Pending   int            `json:"total_messages"`
	History   int            `json:"history_size"`
	Breakdown map[string]int `json:"priority_breakdown"`
}

// QueueStats carries the depths of the auxiliary pipeline stages.
type QueueStats struct {
	BatchDepth   int `json:"batch_queue_size"`
	RetryDepth   int `json:"retry_queue_size"`
	SessionDepth int `json:"session_queue_size"`
}

// PipelineStats is the full observability snapshot exposed over HTTP
// and pushed to clients on connect.
type PipelineStats struct {
	Engine    EngineStats `json:"message_system"`
	Queues    QueueStats  `json:"queues"`
	Connected int         `json:"connected_users"`
}
