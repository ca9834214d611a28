package domain

type Invoice struct {
	ID              string
	SubscriptionID  string
	CustomerID      string
	AmountDue       int64
	AmountPaid      int64
	AmountRemaining int64
	Total           int64
	TotalDouble     float64
	Created         int64
	Currency        string
	DueDate         *int64
	Status          string
	HostedURL       string
	Lines           []InvoiceLine
}

// InvoiceLine attributes part of an invoice total to a price.
type InvoiceLine struct {
	PriceIntegrationID string
	Quantity           int64
	Amount             int64
}
