package feeder

// PolicyKind enumerates the notification treatments an event can receive.
type PolicyKind int

const (
	// PolicyDataOnly delivers a silent data payload with no human-visible
	// notification block. Routine telemetry only updates client-side state.
	PolicyDataOnly PolicyKind = iota
	// PolicyPresenceChanged delivers a visible online/offline notification.
	PolicyPresenceChanged
	// PolicyFactoryReset delivers a visible factory-reset notification.
	PolicyFactoryReset
)

// Notification type tags carried in every outbound data payload.
const (
	NotificationTypePresence = "FEEDER_PRESENCE"
	NotificationTypeReset    = "FEEDER_RESET"
	NotificationTypeLog      = "MQTT_LOG"
)

// Presence payloads recognised by the dispatcher.
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

// Categories with a dedicated policy. Everything else is data-only.
const (
	CategoryPresence     = "presence"
	CategoryFactoryReset = "factory_reset"
)

// Policy is the single notification treatment selected for one event.
type Policy struct {
	Kind PolicyKind
	// PresenceStatus is "online" or "offline" when Kind is
	// PolicyPresenceChanged, empty otherwise.
	PresenceStatus string
}

// NotificationType returns the tag carried in the push data payload.
func (p Policy) NotificationType() string {
	switch p.Kind {
	case PolicyPresenceChanged:
		return NotificationTypePresence
	case PolicyFactoryReset:
		return NotificationTypeReset
	default:
		return NotificationTypeLog
	}
}

// Visible reports whether the policy carries a human-readable notification
// block in addition to the data payload.
func (p Policy) Visible() bool {
	return p.Kind != PolicyDataOnly
}

// Decide maps an event descriptor to exactly one Policy. It is total and
// deterministic: categories are matched in the fixed order
// {presence, factory_reset, default} and the first match wins, so one inbound
// message never selects zero or several policies.
//
// A "presence" payload other than the literal strings "online"/"offline" is
// not dropped, it downgrades to data-only.
func Decide(ev *Event) Policy {
	switch ev.Category {
	case CategoryPresence:
		if s := payloadString(ev.Payload); s == PresenceOnline || s == PresenceOffline {
			return Policy{Kind: PolicyPresenceChanged, PresenceStatus: s}
		}
		return Policy{Kind: PolicyDataOnly}
	case CategoryFactoryReset:
		return Policy{Kind: PolicyFactoryReset}
	default:
		return Policy{Kind: PolicyDataOnly}
	}
}

func payloadString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
