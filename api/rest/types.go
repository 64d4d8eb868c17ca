package rest

// General response structure
type RestResp struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Ledger status response
type LedgerStatResp struct {
	Slot             uint64 `json:"slot"`
	Blockhash        string `json:"blockhash"`
	TransactionCount uint64 `json:"transactionCount"`
	NetworkID        string `json:"networkId"`
	Faucet           string `json:"faucet,omitempty"`
	WSClients        int    `json:"wsClients"`
}

// Account response
type AccountResp struct {
	Address    string `json:"address"`
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Executable bool   `json:"executable"`
	Space      int    `json:"space"`
	Data       string `json:"data"` // hex
	// Set when the account holds a calculator state record
	Result *uint32 `json:"result,omitempty"`
}

// Transaction response
type TxResp struct {
	Signature        string   `json:"signature"`
	Slot             uint64   `json:"slot"`
	Fee              uint64   `json:"fee"`
	Err              string   `json:"err,omitempty"`
	InstructionIndex int      `json:"instructionIndex"`
	Accounts         []string `json:"accounts"`
	Instructions     int      `json:"instructions"`
}
