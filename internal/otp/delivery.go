package otp

import (
	"context"

	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// LogDelivery writes messages to the log instead of an SMS provider. The code
// itself is only logged when reveal is set, which the api enables in dev.
type LogDelivery struct {
	logg   *logger.Logger
	reveal bool
}

func NewLogDelivery(logg *logger.Logger, reveal bool) *LogDelivery {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogDelivery{logg: logg, reveal: reveal}
}

func (d *LogDelivery) Deliver(ctx context.Context, phone, countryCode, message string) error {
	fields := map[string]any{"phone": maskPhone(phone), "country_code": countryCode}
	if d.reveal {
		fields["message"] = message
	}
	d.logg.Info(d.logg.WithFields(ctx, fields), "otp dispatched")
	return nil
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	masked := make([]byte, len(phone))
	for i := range masked {
		masked[i] = '*'
	}
	copy(masked[len(phone)-4:], phone[len(phone)-4:])
	return string(masked)
}
