package handlers

// HandlerBundle groups the handlers so route registration takes one argument.
type HandlerBundle struct {
	Booking   *BookingHandler
	Analytics *AnalyticsHandler
	Device    *DeviceHandler
}
