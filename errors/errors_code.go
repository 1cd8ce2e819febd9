package errors

type Code string

const (
	CodeInvalidFormat Code = "INVALID_FORMAT"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeForbidden     Code = "FORBIDDEN"
	CodeDecryption    Code = "DECRYPTION_ERROR"
	CodeStore         Code = "STORE_ERROR"
	CodeInternal      Code = "INTERNAL_ERROR"

	CodeChainRPC     Code = "CHAIN_RPC_ERROR"
	CodeGasEstimate  Code = "GAS_ESTIMATE_ERROR"
	PendingNonceAt   Code = "PENDING_NONCE_AT_ERROR"
	DailChain        Code = "DIAL_CHAIN_ERROR"
	SignerErr        Code = "SIGNER_ERROR"
	SendTxErr        Code = "SEND_TX_ERROR"
	GetchainIDErr    Code = "GET_CHAIN_ID_ERROR"
	CodeContractCall Code = "CONTRACT_CALL_ERROR"
	CodeTxFailed     Code = "TX_FAILED"
)

// IsChain reports whether the code belongs to a downstream RPC or contract failure.
func (c Code) IsChain() bool {
	switch c {
	case CodeChainRPC, CodeGasEstimate, PendingNonceAt, DailChain, SignerErr,
		SendTxErr, GetchainIDErr, CodeContractCall, CodeTxFailed:
		return true
	}
	return false
}
