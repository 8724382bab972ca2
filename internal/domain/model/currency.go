package model

import (
	"fmt"
	"strings"
)

// Currency is a currency code as given by the caller. It is forwarded to the
// provider without ISO-4217 validation.
type Currency string

func (c Currency) String() string {
	return string(c)
}

func (c Currency) IsEmpty() bool {
	return strings.TrimSpace(string(c)) == ""
}

type CurrencyPair struct {
	From Currency `json:"from"`
	To   Currency `json:"to"`
}

// Key is the cache key for the pair. Codes are used as given, case included.
func (p CurrencyPair) Key() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

func (p CurrencyPair) String() string {
	return fmt.Sprintf("%s-%s", p.From, p.To)
}
