package core

import (
	"fmt"

	"github.com/abcfe/abcfe-calculator/common/crypto"
	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/ledger"
	prt "github.com/abcfe/abcfe-calculator/protocol"
	"github.com/syndtr/goleveldb/leveldb"
)

// applyGenesis writes slot 0: the faucet, the builtin programs and the first blockhash
func (p *Ledger) applyGenesis() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	batch := new(leveldb.Batch)

	genesisHash := utils.HashBytes([]byte("calculator genesis"), []byte(p.cfg.Common.NetworkID))

	if p.cfg.Genesis.FaucetLamports > 0 {
		priv, pub, err := crypto.GenerateKeyPair()
		if err != nil {
			return fmt.Errorf("failed to generate faucet key: %w", err)
		}
		batch.Put([]byte(prt.PrefixMetaFaucet), priv.Seed())

		faucet := &ledger.AccountInfo{Lamports: p.cfg.Genesis.FaucetLamports, Owner: prt.SystemProgramID}
		if err := putAccount(batch, pub, faucet); err != nil {
			return err
		}
		p.faucet = priv
	}

	for id := range p.programs {
		program := &ledger.AccountInfo{
			Lamports:   MinimumBalanceForRentExemption(0),
			Owner:      prt.LoaderProgramID,
			Executable: true,
		}
		if err := putAccount(batch, id, program); err != nil {
			return err
		}
	}

	batch.Put([]byte(prt.PrefixMetaSlot), utils.Uint64ToBytes(0))
	batch.Put([]byte(prt.PrefixMetaBlockhash), genesisHash[:])
	batch.Put(utils.GetBlockhashKey(genesisHash), utils.Uint64ToBytes(0))
	batch.Put([]byte(prt.PrefixMetaTxCount), utils.Uint64ToBytes(0))

	if err := p.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to write genesis: %w", err)
	}

	p.LatestSlot = 0
	p.LatestBlockhash = genesisHash
	p.TxCount = 0
	return nil
}
