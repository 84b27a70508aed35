package domain

// PaymentMethod is a manual payment channel shown to prospective members
// (e.g. a wallet number for jazzcash).
type PaymentMethod struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Details  string `json:"details"`
}

var AllowedPaymentProviders = []string{"jazzcash", "easypaisa"}

func IsAllowedPaymentProvider(p string) bool {
	for _, a := range AllowedPaymentProviders {
		if a == p {
			return true
		}
	}
	return false
}
