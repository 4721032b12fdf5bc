package protocol

import "fmt"

// TopicRoot prefixes every session topic.
const TopicRoot = "typing-game"

// Role identifies which side of the race a message comes from.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// Opponent returns the other role.
func (r Role) Opponent() Role {
	if r == RoleHost {
		return RoleGuest
	}
	return RoleHost
}

func (r Role) Valid() bool {
	return r == RoleHost || r == RoleGuest
}

// SessionTopic returns the root topic for a game code: "typing-game/<code>".
// With NATS these are literal single-token subjects; the relayd treats them
// as opaque strings.
func SessionTopic(code string) string {
	return fmt.Sprintf("%s/%s", TopicRoot, code)
}

// SnapshotTopic is the role-scoped sub-topic a player publishes its
// periodic snapshots on ("<root>/host" or "<root>/guest").
func SnapshotTopic(code string, role Role) string {
	return fmt.Sprintf("%s/%s/%s", TopicRoot, code, role)
}

// ControlTopic carries handshake and completion events for the session.
func ControlTopic(code string) string {
	return fmt.Sprintf("%s/%s/control", TopicRoot, code)
}
