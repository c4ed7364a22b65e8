package usecase

import "go.uber.org/fx"

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	NewAuthUseCase,
	NewDiscountUseCase,
	NewOrderUseCase,
	NewPaymentUseCase,
	orderStatusUpdater,
)

func orderStatusUpdater(u *OrderUseCase) OrderStatusUpdater {
	return u
}
