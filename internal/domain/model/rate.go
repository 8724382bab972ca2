package model

type ConversionRequest struct {
	From   Currency
	To     Currency
	Amount float64
	Lang   string
}

func (r ConversionRequest) Pair() CurrencyPair {
	return CurrencyPair{From: r.From, To: r.To}
}

type ConversionResult struct {
	Result    string   `json:"result"`
	From      Currency `json:"from"`
	To        Currency `json:"to"`
	Amount    float64  `json:"amount"`
	Converted float64  `json:"converted"`
	Rate      float64  `json:"rate"`
}

type RateQuote struct {
	From   Currency `json:"from"`
	To     Currency `json:"to"`
	Rate   float64  `json:"rate"`
	Cached bool     `json:"cached"`
}
