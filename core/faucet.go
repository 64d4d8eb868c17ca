package core

import (
	"crypto/ed25519"
	"fmt"

	"github.com/abcfe/abcfe-calculator/common/crypto"
	"github.com/abcfe/abcfe-calculator/common/logger"
	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/ledger"
	prt "github.com/abcfe/abcfe-calculator/protocol"
)

type faucetSigner struct {
	priv ed25519.PrivateKey
}

func (s faucetSigner) PublicKey() prt.PublicKey { return crypto.PublicKeyOf(s.priv) }

func (s faucetSigner) Sign(message []byte) (prt.Signature, error) {
	return crypto.SignData(s.priv, message)
}

// FaucetAddress returns the genesis faucet, if airdrops are enabled
func (p *Ledger) FaucetAddress() (prt.PublicKey, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.faucet == nil {
		return prt.PublicKey{}, false
	}
	return crypto.PublicKeyOf(p.faucet), true
}

// RequestAirdrop transfers lamports from the faucet to address as an ordinary signed transaction
func (p *Ledger) RequestAirdrop(address prt.PublicKey, lamports uint64) (prt.Signature, error) {
	p.mu.RLock()
	faucet := p.faucet
	p.mu.RUnlock()

	if faucet == nil {
		return prt.Signature{}, ErrFaucetDisabled
	}
	if limit := p.cfg.Server.MaxAirdropLamports; limit > 0 && lamports > limit {
		return prt.Signature{}, fmt.Errorf("%w: %d > %d", ErrAirdropTooLarge, lamports, limit)
	}

	// Two identical requests anchored to the same blockhash would share a signature
	p.faucetMu.Lock()
	defer p.faucetMu.Unlock()

	signer := faucetSigner{priv: faucet}
	tx, err := ledger.NewTransaction(signer.PublicKey(), p.GetLatestBlockhash(), ledger.Transfer(signer.PublicKey(), address, lamports))
	if err != nil {
		return prt.Signature{}, err
	}
	if err := tx.Sign(signer); err != nil {
		return prt.Signature{}, err
	}

	sig, err := p.ProcessTransaction(tx)
	if err != nil {
		return sig, err
	}

	logger.Info("airdropped ", lamports, " lamports to ", utils.PublicKeyToString(address))
	return sig, nil
}
