package enums

// NotificationType identifies in-app notification templates sent to store owners.
type NotificationType string

const (
	NotificationTypeNewOrder           NotificationType = "new_order"
	NotificationTypeOrderSettled       NotificationType = "order_settled"
	NotificationTypeWithdrawalApproved NotificationType = "withdrawal_approved"
	NotificationTypeWithdrawalRejected NotificationType = "withdrawal_rejected"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeNewOrder,
	NotificationTypeOrderSettled,
	NotificationTypeWithdrawalApproved,
	NotificationTypeWithdrawalRejected,
}

// String implements fmt.Stringer.
func (v NotificationType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known NotificationType.
func (v NotificationType) IsValid() bool {
	return oneOf(v, validNotificationTypes)
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	return parseOneOf(value, validNotificationTypes, "notification type")
}
