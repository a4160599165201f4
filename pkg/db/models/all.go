package models

// All lists every persisted model, in dependency order, for sqlite
// auto-migration in tests and local runs.
func All() []any {
	return []any{
		&User{},
		&Store{},
		&Product{},
		&PendingCheckout{},
		&Order{},
		&OrderItem{},
		&Transaction{},
		&Withdrawal{},
		&ShippingChargeHistory{},
		&GlobalCourier{},
		&SuperSetting{},
		&PaymentSetting{},
		&Notification{},
	}
}
