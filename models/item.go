package models

import "github.com/shopspring/decimal"

type Item struct {
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"price"`
	TargetQuantity int             `json:"targetSales"`
	SoldQuantity   int             `json:"sold"`
}
