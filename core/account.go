package core

import (
	"fmt"

	"github.com/abcfe/abcfe-calculator/common/utils"
	"github.com/abcfe/abcfe-calculator/ledger"
	prt "github.com/abcfe/abcfe-calculator/protocol"
	"github.com/syndtr/goleveldb/leveldb"
)

// GetAccount returns the stored account, or nil when none exists
func (p *Ledger) GetAccount(address prt.PublicKey) (*ledger.AccountInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.getAccount(address)
}

func (p *Ledger) getAccount(address prt.PublicKey) (*ledger.AccountInfo, error) {
	data, err := p.db.Get(utils.GetAccountKey(address), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	var account ledger.AccountInfo
	if err := utils.DeserializeData(data, &account, utils.SerializationFormatGob); err != nil {
		return nil, fmt.Errorf("failed to deserialize account: %w", err)
	}

	return &account, nil
}

// GetBalance returns the lamports held at address; absent accounts hold zero
func (p *Ledger) GetBalance(address prt.PublicKey) (uint64, error) {
	account, err := p.GetAccount(address)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, nil
	}
	return account.Lamports, nil
}

// putAccount stages an account write. Accounts drained to zero lamports are removed.
func putAccount(batch *leveldb.Batch, address prt.PublicKey, account *ledger.AccountInfo) error {
	key := utils.GetAccountKey(address)
	if account.Lamports == 0 {
		batch.Delete(key)
		return nil
	}

	data, err := utils.SerializeData(account, utils.SerializationFormatGob)
	if err != nil {
		return fmt.Errorf("failed to serialize account: %w", err)
	}
	batch.Put(key, data)
	return nil
}

func cloneAccount(account *ledger.AccountInfo) *ledger.AccountInfo {
	if account == nil {
		return &ledger.AccountInfo{Owner: prt.SystemProgramID}
	}
	c := *account
	c.Data = append([]byte(nil), account.Data...)
	return &c
}

// isUnused reports whether an account slot can still be allocated
func isUnused(account *ledger.AccountInfo) bool {
	return account.Lamports == 0 && len(account.Data) == 0 && account.Owner == prt.SystemProgramID && !account.Executable
}
