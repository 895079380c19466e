package catalog

import "fmt"

const DefaultCurrency = "ZAR"

var currencySymbols = map[string]string{
	"ZAR": "R",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// FormatPrice renders minor units with two decimals behind the currency
// symbol, e.g. 420000 ZAR -> "R4200.00". Unknown currencies use their code.
func FormatPrice(cents int64, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = currency + " "
	}

	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s%d.%02d", sign, symbol, cents/100, cents%100)
}
