package ws

import "time"

type EventType string

const (
	EventViolationRecorded  EventType = "violation.recorded"
	EventSessionVerified    EventType = "session.verified"
	EventCameraConnected    EventType = "camera.connected"
	EventCameraDisconnected EventType = "camera.disconnected"
	EventFramePlaceholder   EventType = "frame.placeholder"
)

// Event é o envelope entregue aos assinantes de um tópico. O tópico em
// si nunca vai no payload, cada cliente já sabe o que assinou.
type Event struct {
	Topic     string      `json:"-"`
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
