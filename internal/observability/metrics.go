package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MStockConflicts          MetricKey = "checkout_stock_conflicts_total"
	MCompensations           MetricKey = "checkout_compensations_total"
	MUnrecordedOrders        MetricKey = "checkout_unrecorded_orders_total"
)
