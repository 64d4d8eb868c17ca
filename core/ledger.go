package core

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"sync"

	"github.com/abcfe/abcfe-calculator/common/crypto"
	"github.com/abcfe/abcfe-calculator/common/logger"
	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/config"
	prt "github.com/abcfe/abcfe-calculator/protocol"
	"github.com/syndtr/goleveldb/leveldb"
)

var (
	ErrBlockhashNotFound       = errors.New("blockhash not found")
	ErrAlreadyProcessed        = errors.New("transaction already processed")
	ErrInsufficientFundsForFee = errors.New("insufficient funds for fee")
	ErrFaucetDisabled          = errors.New("faucet is disabled")
	ErrAirdropTooLarge         = errors.New("airdrop request exceeds the limit")
)

// Notifier receives every committed transaction status, outside the ledger lock
type Notifier func(sig prt.Signature, status TxStatus)

// Ledger is a single node, slot-per-transaction account ledger backed by goleveldb
type Ledger struct {
	LatestSlot      uint64
	LatestBlockhash prt.Hash
	TxCount         uint64

	db  *leveldb.DB
	cfg *config.Config
	mu  sync.RWMutex // readers may run concurrently while no transaction commits

	faucet   ed25519.PrivateKey
	faucetMu sync.Mutex
	programs map[prt.PublicKey]struct{}

	notifyMu sync.RWMutex
	notify   []Notifier
}

// Status is a snapshot of the ledger head
type Status struct {
	Slot      uint64   `json:"slot"`
	Blockhash prt.Hash `json:"blockhash"`
	TxCount   uint64   `json:"transactionCount"`
	Faucet    string   `json:"faucet,omitempty"`
}

func NewLedger(db *leveldb.DB, cfg *config.Config) (*Ledger, error) {
	l := &Ledger{
		db:       db,
		cfg:      cfg,
		programs: make(map[prt.PublicKey]struct{}),
	}

	for _, id := range cfg.Genesis.Programs {
		pk, err := utils.StringToPublicKey(id)
		if err != nil {
			return nil, fmt.Errorf("invalid genesis program %q: %w", id, err)
		}
		l.programs[pk] = struct{}{}
	}

	fresh, err := l.LoadLedgerDB()
	if err != nil {
		return nil, err
	}

	if fresh {
		if err := l.applyGenesis(); err != nil {
			return nil, err
		}
		logger.Info("local ledger initialized at genesis, blockhash ", utils.HashToString(l.LatestBlockhash))
	} else {
		logger.Info("local ledger loaded at slot ", l.LatestSlot)
	}

	return l, nil
}

// LoadLedgerDB restores the ledger head. It reports true for an empty database.
func (p *Ledger) LoadLedgerDB() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	slotBytes, err := p.db.Get([]byte(prt.PrefixMetaSlot), nil)
	if err == leveldb.ErrNotFound {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load latest slot: %w", err)
	}
	p.LatestSlot = utils.BytesToUint64(slotBytes)

	hashBytes, err := p.db.Get([]byte(prt.PrefixMetaBlockhash), nil)
	if err != nil {
		return false, fmt.Errorf("failed to load latest blockhash: %w", err)
	}
	copy(p.LatestBlockhash[:], hashBytes)

	countBytes, err := p.db.Get([]byte(prt.PrefixMetaTxCount), nil)
	if err != nil && err != leveldb.ErrNotFound {
		return false, fmt.Errorf("failed to load transaction count: %w", err)
	}
	p.TxCount = utils.BytesToUint64(countBytes)

	seed, err := p.db.Get([]byte(prt.PrefixMetaFaucet), nil)
	if err != nil && err != leveldb.ErrNotFound {
		return false, fmt.Errorf("failed to load faucet: %w", err)
	}
	if err == nil {
		if p.faucet, _, err = crypto.KeyPairFromSeed(seed); err != nil {
			return false, fmt.Errorf("invalid faucet seed: %w", err)
		}
	}

	return false, nil
}

func (p *Ledger) GetStatus() Status {
	if p == nil {
		return Status{}
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	status := Status{
		Slot:      p.LatestSlot,
		Blockhash: p.LatestBlockhash,
		TxCount:   p.TxCount,
	}
	if p.faucet != nil {
		status.Faucet = utils.PublicKeyToString(crypto.PublicKeyOf(p.faucet))
	}
	return status
}

func (p *Ledger) GetLatestSlot() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.LatestSlot
}

func (p *Ledger) GetLatestBlockhash() prt.Hash {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.LatestBlockhash
}

// IsBlockhashValid reports whether hash is recent enough to anchor a new transaction
func (p *Ledger) IsBlockhashValid(hash prt.Hash) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isBlockhashValid(hash)
}

func (p *Ledger) isBlockhashValid(hash prt.Hash) (bool, error) {
	data, err := p.db.Get(utils.GetBlockhashKey(hash), nil)
	if err == leveldb.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get blockhash: %w", err)
	}

	slot := utils.BytesToUint64(data)
	return p.LatestSlot-slot <= prt.MaxRecentBlockhashes, nil
}

// advanceSlot stages the next slot and its blockhash into batch
func (p *Ledger) advanceSlot(batch *leveldb.Batch, seed []byte) (uint64, prt.Hash) {
	slot := p.LatestSlot + 1
	hash := utils.HashBytes(p.LatestBlockhash[:], seed, utils.Uint64ToBytes(slot))

	batch.Put([]byte(prt.PrefixMetaSlot), utils.Uint64ToBytes(slot))
	batch.Put([]byte(prt.PrefixMetaBlockhash), hash[:])
	batch.Put(utils.GetBlockhashKey(hash), utils.Uint64ToBytes(slot))

	return slot, hash
}

// Subscribe registers fn for every committed transaction
func (p *Ledger) Subscribe(fn Notifier) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()
	p.notify = append(p.notify, fn)
}

func (p *Ledger) publish(sig prt.Signature, status TxStatus) {
	p.notifyMu.RLock()
	defer p.notifyMu.RUnlock()
	for _, fn := range p.notify {
		fn(sig, status)
	}
}

// IsProgram reports whether id is an executable program known to this ledger
func (p *Ledger) IsProgram(id prt.PublicKey) bool {
	_, ok := p.programs[id]
	return ok
}

// FeeForSignatures is the fee charged for a message with n required signatures
func (p *Ledger) FeeForSignatures(n int) uint64 {
	return p.cfg.Fee.LamportsPerSignature * uint64(n)
}

// MinimumBalanceForRentExemption returns the balance an account of size bytes needs to be rent exempt
func MinimumBalanceForRentExemption(size uint64) uint64 {
	return (prt.AccountStorageOverhead + size) * prt.LamportsPerByteYear * prt.ExemptionThresholdYears
}
