package model

// WireMessage is the payload shape delivered to clients for a single message.
// The same structure is used by the WebSocket marshaller and the bus
// dispatcher so every egress speaks one dialect.
type WireMessage struct {
	Text            string `json:"text"`
	User            string `json:"user"`
	Priority        int    `json:"priority"`
	PriorityName    string `json:"priority_name"`
	Timestamp       int64  `json:"timestamp"`
	FormattedTime   string `json:"formatted_time"`
	DetectionMethod string `json:"detection_method"`
}

// FormatMessage converts a pipeline message into its wire representation.
func FormatMessage(m Message) WireMessage {
	return WireMessage{
		Text:            m.Text,
		User:            m.Sender,
		Priority:        int(m.Priority),
		PriorityName:    m.Priority.String(),
		Timestamp:       m.CreatedAt,
		FormattedTime:   m.AdmittedAt().Format("15:04:05"),
		DetectionMethod: string(m.Source),
	}
}

// FormatBatch converts a released batch, preserving its order.
func FormatBatch(batch []*Message) []WireMessage {
	res := make([]WireMessage, 0, len(batch))
	for _, m := range batch {
		res = append(res, FormatMessage(*m))
	}
	return res
}

// ToMessage reconstructs the pipeline view of a wire payload. Text, sender,
// priority and timestamp survive the round trip exactly.
func (w WireMessage) ToMessage() Message {
	return Message{
		Text:      w.Text,
		Sender:    w.User,
		Priority:  Priority(w.Priority),
		Source:    PrioritySource(w.DetectionMethod),
		CreatedAt: w.Timestamp,
	}
}
