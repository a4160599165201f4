package payments

import "github.com/angelmondragon/bazaar-backend/internal/orders"

// ResultDTO is the public view of a reconciliation result.
type ResultDTO struct {
	MerchantOrderID string            `json:"merchant_order_id"`
	State           State             `json:"state"`
	AlreadyFinal    bool              `json:"already_final"`
	Ignored         bool              `json:"ignored,omitempty"`
	Orders          []orders.OrderDTO `json:"orders"`
}

func ResultFromModel(result *Result) ResultDTO {
	if result == nil {
		return ResultDTO{Orders: []orders.OrderDTO{}}
	}
	return ResultDTO{
		MerchantOrderID: result.MerchantOrderID,
		State:           result.State,
		AlreadyFinal:    result.AlreadyFinal,
		Ignored:         result.Ignored,
		Orders:          orders.FromModels(result.Orders),
	}
}
