package shipping

import "context"

// NoTransaction is the sentinel returned when a gateway accepted the call but
// produced no transaction. Callers treat it the same as a failure.
const NoTransaction = ""

// Info carries the delivery details. The engine treats it as opaque.
type Info struct {
	Recipient string `json:"recipient"`
	Address   string `json:"address"`
}

// Gateway is the external shipping collaborator, following the same
// handshake-then-act shape as the payment gateway.
type Gateway interface {
	Handshake(ctx context.Context) bool
	Ship(ctx context.Context, info Info) (string, error)
}
