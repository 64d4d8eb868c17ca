package protocol

const (
	// Ledger metadata
	PrefixMeta          = "meta:"
	PrefixMetaSlot      = "meta:slot"      // Latest slot
	PrefixMetaBlockhash = "meta:blockhash" // Latest blockhash
	PrefixMetaFaucet    = "meta:faucet"    // Faucet keypair seed
	PrefixMetaTxCount   = "meta:txcount"   // Processed transaction count

	// Recent blockhashes
	PrefixBlockhash = "bh:" // bh:Hash = Slot the hash was produced at

	// Account related prefixes
	PrefixAccount = "acct:" // acct:Address = Account data

	// Transaction related prefixes
	PrefixTx       = "tx:raw:"    // tx:raw:Signature = Raw wire transaction
	PrefixTxStatus = "tx:status:" // tx:status:Signature = Execution status
)
