package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/abcfe/abcfe-calculator/calculator"
	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/core"
	"github.com/abcfe/abcfe-calculator/ledger"
	prt "github.com/abcfe/abcfe-calculator/protocol"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run tools/db_browser.go <db_path> [command]")
		fmt.Println("Commands:")
		fmt.Println("  meta             - Show ledger head")
		fmt.Println("  accounts         - List all accounts")
		fmt.Println("  account <addr>   - Show specific account")
		fmt.Println("  txs              - List all transactions")
		fmt.Println("  tx <signature>   - Show specific transaction")
		fmt.Println("  blockhashes      - List recorded blockhashes")
		fmt.Println("  all              - Show all data")
		return
	}

	dbPath := os.Args[1]
	command := "meta"
	if len(os.Args) > 2 {
		command = os.Args[2]
	}

	// The localnet must be stopped: leveldb holds an exclusive lock
	db, err := leveldb.OpenFile(dbPath, &opt.Options{ReadOnly: true})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Database opened: %s\n\n", dbPath)

	switch command {
	case "meta":
		showMetadata(db)
	case "accounts":
		listAccounts(db)
	case "account":
		if len(os.Args) < 4 {
			fmt.Println("Usage: go run tools/db_browser.go <db_path> account <address>")
			return
		}
		showAccount(db, os.Args[3])
	case "txs":
		listTransactions(db)
	case "tx":
		if len(os.Args) < 4 {
			fmt.Println("Usage: go run tools/db_browser.go <db_path> tx <signature>")
			return
		}
		showTransaction(db, os.Args[3])
	case "blockhashes":
		listBlockhashes(db)
	case "all":
		showAllData(db)
	default:
		fmt.Printf("Unknown command: %s\n", command)
	}
}

func showMetadata(db *leveldb.DB) {
	fmt.Println("=== METADATA ===")

	slotBytes, err := db.Get([]byte(prt.PrefixMetaSlot), nil)
	if err != nil {
		fmt.Printf("Latest Slot: Not found (%v)\n", err)
	} else {
		fmt.Printf("Latest Slot: %d\n", utils.BytesToUint64(slotBytes))
	}

	hashBytes, err := db.Get([]byte(prt.PrefixMetaBlockhash), nil)
	if err != nil {
		fmt.Printf("Latest Blockhash: Not found (%v)\n", err)
	} else {
		var hash prt.Hash
		copy(hash[:], hashBytes)
		fmt.Printf("Latest Blockhash: %s\n", utils.HashToString(hash))
	}

	countBytes, err := db.Get([]byte(prt.PrefixMetaTxCount), nil)
	if err == nil {
		fmt.Printf("Transactions: %d\n", utils.BytesToUint64(countBytes))
	}

	if _, err := db.Get([]byte(prt.PrefixMetaFaucet), nil); err == nil {
		fmt.Println("Faucet: enabled")
	} else {
		fmt.Println("Faucet: disabled")
	}

	fmt.Println()
}

func decodeAccount(data []byte) (*ledger.AccountInfo, error) {
	var account ledger.AccountInfo
	if err := utils.DeserializeData(data, &account, utils.SerializationFormatGob); err != nil {
		return nil, err
	}
	return &account, nil
}

func printAccount(address string, account *ledger.AccountInfo) {
	fmt.Printf("Account: %s\n", address)
	fmt.Printf("  Lamports: %d\n", account.Lamports)
	fmt.Printf("  Owner: %s\n", utils.PublicKeyToString(account.Owner))
	fmt.Printf("  Executable: %v\n", account.Executable)
	fmt.Printf("  Space: %d\n", len(account.Data))
	if len(account.Data) > 0 {
		fmt.Printf("  Data (hex): %s\n", hex.EncodeToString(account.Data[:min(64, len(account.Data))]))
	}
	if account.Owner != prt.SystemProgramID && !account.Executable {
		if state, err := calculator.DecodeState(account.Data); err == nil {
			fmt.Printf("  Calculator result: %d\n", state.Result)
		}
	}
}

func listAccounts(db *leveldb.DB) {
	fmt.Println("=== ACCOUNTS ===")

	iter := db.NewIterator(util.BytesPrefix([]byte(prt.PrefixAccount)), nil)
	defer iter.Release()

	count := 0
	for iter.Next() {
		address := strings.TrimPrefix(string(iter.Key()), prt.PrefixAccount)
		account, err := decodeAccount(iter.Value())
		if err != nil {
			fmt.Printf("Account %s: undecodable (%v)\n", address, err)
			continue
		}
		printAccount(address, account)
		count++
	}
	fmt.Printf("Total accounts: %d\n\n", count)
}

func showAccount(db *leveldb.DB, addressStr string) {
	fmt.Printf("=== ACCOUNT %s ===\n", addressStr)

	address, err := utils.StringToPublicKey(addressStr)
	if err != nil {
		fmt.Printf("Invalid address: %v\n", err)
		return
	}

	data, err := db.Get(utils.GetAccountKey(address), nil)
	if err != nil {
		fmt.Printf("Account not found: %v\n", err)
		return
	}

	account, err := decodeAccount(data)
	if err != nil {
		fmt.Printf("Undecodable account: %v\n", err)
		return
	}
	printAccount(addressStr, account)
	fmt.Println()
}

func listTransactions(db *leveldb.DB) {
	fmt.Println("=== TRANSACTIONS ===")

	iter := db.NewIterator(util.BytesPrefix([]byte(prt.PrefixTxStatus)), nil)
	defer iter.Release()

	count := 0
	for iter.Next() {
		sig := strings.TrimPrefix(string(iter.Key()), prt.PrefixTxStatus)

		var status core.TxStatus
		if err := utils.DeserializeData(iter.Value(), &status, utils.SerializationFormatGob); err != nil {
			fmt.Printf("Transaction %s: undecodable status (%v)\n", sig, err)
			continue
		}

		outcome := "ok"
		if status.Failed() {
			outcome = fmt.Sprintf("failed at instruction %d: %s", status.InstructionIndex, status.Err)
		}
		fmt.Printf("Slot %d  %s  fee=%d  %s\n", status.Slot, sig, status.Fee, outcome)
		count++
	}
	fmt.Printf("Total transactions: %d\n\n", count)
}

func showTransaction(db *leveldb.DB, sigStr string) {
	fmt.Printf("=== TRANSACTION %s ===\n", sigStr)

	sig, err := utils.StringToSignature(sigStr)
	if err != nil {
		fmt.Printf("Invalid signature: %v\n", err)
		return
	}

	raw, err := db.Get(utils.GetTxKey(sig), nil)
	if err != nil {
		fmt.Printf("Transaction not found: %v\n", err)
		return
	}

	tx, err := ledger.UnmarshalTransaction(raw)
	if err != nil {
		fmt.Printf("Undecodable transaction: %v\n", err)
		return
	}

	fmt.Printf("Size: %d bytes\n", len(raw))
	fmt.Printf("Recent Blockhash: %s\n", utils.HashToString(tx.Message.RecentBlockhash))
	fmt.Printf("Fee Payer: %s\n", utils.PublicKeyToString(tx.Message.FeePayer()))
	for i, key := range tx.Message.AccountKeys {
		flags := ""
		if tx.Message.IsSigner(i) {
			flags += "s"
		}
		if tx.Message.IsWritable(i) {
			flags += "w"
		}
		fmt.Printf("  [%d] %-2s %s\n", i, flags, utils.PublicKeyToString(key))
	}
	for i, ix := range tx.Message.Instructions {
		fmt.Printf("  Instruction %d: program=%d accounts=%v data=%s\n",
			i, ix.ProgramIDIndex, ix.Accounts, hex.EncodeToString(ix.Data))
	}

	statusData, err := db.Get(utils.GetTxStatusKey(sig), nil)
	if err == nil {
		var status core.TxStatus
		if err := utils.DeserializeData(statusData, &status, utils.SerializationFormatGob); err == nil {
			fmt.Printf("Slot: %d  Fee: %d\n", status.Slot, status.Fee)
			if status.Failed() {
				fmt.Printf("Error (instruction %d): %s\n", status.InstructionIndex, status.Err)
			}
		}
	}

	fmt.Println()
}

func listBlockhashes(db *leveldb.DB) {
	fmt.Println("=== BLOCKHASHES ===")

	iter := db.NewIterator(util.BytesPrefix([]byte(prt.PrefixBlockhash)), nil)
	defer iter.Release()

	count := 0
	for iter.Next() {
		hash := strings.TrimPrefix(string(iter.Key()), prt.PrefixBlockhash)
		fmt.Printf("Slot %d: %s\n", utils.BytesToUint64(iter.Value()), hash)
		count++
	}
	fmt.Printf("Total blockhashes: %d\n\n", count)
}

func showAllData(db *leveldb.DB) {
	fmt.Println("=== ALL DATABASE DATA ===")

	iter := db.NewIterator(nil, nil)
	defer iter.Release()

	count := 0
	for iter.First(); iter.Valid(); iter.Next() {
		key := string(iter.Key())
		value := iter.Value()

		fmt.Printf("[%d] Key: %s\n", count, key)
		fmt.Printf("     Value Size: %d bytes\n", len(value))
		fmt.Printf("     Value (hex): %s\n", hex.EncodeToString(value[:min(50, len(value))]))
		fmt.Println()

		count++
		if count >= 50 { // Show max 50 entries
			fmt.Printf("... (showing first 50 entries)\n")
			break
		}
	}

	fmt.Printf("Total entries: %d\n", count)
}
