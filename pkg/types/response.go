package types

// ErrorEnvelope is the body the storefront API returns on a non-2xx response.
type ErrorEnvelope struct {
	Status  int      `json:"status,omitempty"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}
