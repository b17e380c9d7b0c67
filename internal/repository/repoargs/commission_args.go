package repoargs

import "github.com/shopspring/decimal"

type CommissionCreate struct {
	ResellerID       int64
	CustomerID       int64
	MessageCount     int64
	TotalCost        decimal.Decimal
	CommissionAmount decimal.Decimal
	Period           string
}
