package payment

import "context"

// NoTransaction is the sentinel returned when a gateway accepted the call but
// produced no transaction. Callers treat it the same as a failure.
const NoTransaction = ""

// Info carries the buyer's payment instrument. The engine treats it as opaque.
type Info struct {
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

// Gateway is the external payment collaborator: a handshake availability probe
// followed by the actual charge. No stock lock is ever held across these calls;
// a failure after reservation is answered with compensation, not rollback of a
// held transaction.
type Gateway interface {
	Handshake(ctx context.Context) bool
	Pay(ctx context.Context, info Info, amount int64) (string, error)
}
