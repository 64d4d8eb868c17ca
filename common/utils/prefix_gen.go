package utils

import (
	prt "github.com/abcfe/abcfe-calculator/protocol"
)

// "acct:"
func GetAccountKey(address prt.PublicKey) []byte {
	return []byte(prt.PrefixAccount + PublicKeyToString(address))
}

// "bh:"
func GetBlockhashKey(hash prt.Hash) []byte {
	return []byte(prt.PrefixBlockhash + HashToHex(hash))
}

// "tx:raw:"
func GetTxKey(sig prt.Signature) []byte {
	return []byte(prt.PrefixTx + SignatureToString(sig))
}

// "tx:status:"
func GetTxStatusKey(sig prt.Signature) []byte {
	return []byte(prt.PrefixTxStatus + SignatureToString(sig))
}
