package channel

import "encoding/json"

// Namespace names. Each namespace is one logical partition of realtime
// traffic and owns exactly one connection.
const (
	NamespaceNotifications = "notifications"
	NamespaceBoards        = "boards"
	NamespaceChat          = "chat"
	NamespaceWorkspace     = "workspace"
	NamespaceSystem        = "system"
)

// DefaultNamespaces are held whenever the auth signal is valid. The system
// namespace additionally requires an elevated user.
var DefaultNamespaces = []string{
	NamespaceNotifications,
	NamespaceBoards,
	NamespaceChat,
	NamespaceWorkspace,
}

// Event names the client emits or receives on the notifications namespace.
const (
	EventGetUnreadCount = "notifications:getUnreadCount"
	EventGetRecent      = "notifications:getRecent"
	EventMarkRead       = "notifications:markRead"
	EventMarkAllRead    = "notifications:markAllRead"

	EventNotificationNew = "notification:new"
	EventNotifications   = "notifications:list"
	EventUnreadCount     = "notifications:unreadCount"
	EventError           = "error"

	EventJoinRoom  = "join_room"
	EventLeaveRoom = "leave_room"
)

// Event is the wire envelope for both directions: an event name and a raw
// JSON payload decoded by the registered handler.
type Event struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// encodeEvent marshals an outbound event with an arbitrary payload value.
func encodeEvent(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Event: event, Payload: raw})
}
