package chat

// Order is an order summary pushed by the assistant.
type Order struct {
	OrderID   string `json:"order_id"`
	OrderDate string `json:"order_date"`
	Status    string `json:"status"`
}
