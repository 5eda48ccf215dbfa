package activity

// Known extension points referenced by notification_sent records. The
// identifiers are persisted inside activity payloads, so removing one makes
// historical records unverifiable; append only.

var notificationResolvers = map[string]struct{}{
	"stage_started":   {},
	"level_started":   {},
	"approvals_reset": {},
	"completed":       {},
}

var notificationRecipients = map[string]struct{}{
	"applicant": {},
	"approver":  {},
}

// KnownNotificationResolver reports whether the resolver identifier is a
// registered notification extension point.
func KnownNotificationResolver(name string) bool {
	_, ok := notificationResolvers[name]

	return ok
}

// KnownNotificationRecipient reports whether the recipient kind is a
// registered notification extension point.
func KnownNotificationRecipient(name string) bool {
	_, ok := notificationRecipients[name]

	return ok
}
