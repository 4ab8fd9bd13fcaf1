package clients

// Reasons attached as Data to verification failures.
const (
	ErrTransactionNotFound = "transaction_not_found"
	ErrTransactionPending  = "transaction_pending"
	ErrTransactionReverted = "transaction_reverted"
	ErrNoTransferToPayee   = "no_transfer_to_payee"
	ErrWrongRecipient      = "wrong_recipient"
	ErrUnsupportedChain    = "unsupported_chain"
)
