package shipments

import (
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// courierCandidates puts the requested courier first when it is still among
// the active ones, followed by the rest in the given priority order.
func courierCandidates(active []models.GlobalCourier, requested *int64) []models.GlobalCourier {
	out := make([]models.GlobalCourier, 0, len(active))
	if requested != nil {
		for _, courier := range active {
			if courier.ProviderCourierID == *requested && courier.IsActive {
				out = append(out, courier)
				break
			}
		}
	}
	for _, courier := range active {
		if !courier.IsActive {
			continue
		}
		if requested != nil && courier.ProviderCourierID == *requested {
			continue
		}
		out = append(out, courier)
	}
	return out
}
