package repository

import (
	"context"
	"sync"

	"github.com/injectivepass/nfc_service/entity"
	apperrors "github.com/injectivepass/nfc_service/errors"
)

// MemoryWalletRepo keeps wallets in a map. One mutex covers every method, so
// GetOrCreate is atomic like the Mongo upsert.
type MemoryWalletRepo struct {
	mu       sync.RWMutex
	wallets  map[string]*entity.NFCWallet
	byDomain map[string]string
}

func NewMemoryWalletRepo() *MemoryWalletRepo {
	return &MemoryWalletRepo{
		wallets:  make(map[string]*entity.NFCWallet),
		byDomain: make(map[string]string),
	}
}

func (r *MemoryWalletRepo) Get(_ context.Context, uid string) (*entity.NFCWallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[uid]
	if !ok {
		return nil, apperrors.WrapWithCode(apperrors.CodeNotFound, "get wallet", errWalletNotFound)
	}
	return w.Clone(), nil
}

func (r *MemoryWalletRepo) Exists(_ context.Context, uid string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.wallets[uid]
	return ok, nil
}

func (r *MemoryWalletRepo) GetOrCreate(_ context.Context, w *entity.NFCWallet) (*entity.NFCWallet, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.wallets[w.UID]; ok {
		return existing.Clone(), false, nil
	}
	stored := w.Clone()
	r.wallets[w.UID] = stored
	if stored.Domain != nil {
		r.byDomain[*stored.Domain] = w.UID
	}
	return stored.Clone(), true, nil
}

func (r *MemoryWalletRepo) MarkFunded(_ context.Context, uid, txHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[uid]
	if !ok {
		return apperrors.WrapWithCode(apperrors.CodeNotFound, "mark funded", errWalletNotFound)
	}
	w.InitialFunded = true
	w.FundingTxHash = txHash
	return nil
}

func (r *MemoryWalletRepo) ReserveDomain(_ context.Context, uid, domain string) error {
	const op = "reserve domain"
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[uid]
	if !ok {
		return apperrors.WrapWithCode(apperrors.CodeNotFound, op, errWalletNotFound)
	}
	if w.Domain != nil {
		return apperrors.WrapWithCode(apperrors.CodeConflict, op, errDomainSet)
	}
	if _, taken := r.byDomain[domain]; taken {
		return apperrors.WrapWithCode(apperrors.CodeConflict, op, errDomainTaken)
	}
	d := domain
	w.Domain = &d
	w.DomainPending = true
	r.byDomain[domain] = uid
	return nil
}

func (r *MemoryWalletRepo) ConfirmDomain(_ context.Context, uid, domain string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[uid]
	if !ok || w.Domain == nil || *w.Domain != domain {
		return apperrors.WrapWithCode(apperrors.CodeConflict, "confirm domain", errNoReservation)
	}
	w.DomainPending = false
	return nil
}

func (r *MemoryWalletRepo) ReleaseDomain(_ context.Context, uid, domain string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[uid]
	if !ok || w.Domain == nil || *w.Domain != domain || !w.DomainPending {
		return nil
	}
	w.Domain = nil
	w.DomainPending = false
	delete(r.byDomain, domain)
	return nil
}

func (r *MemoryWalletRepo) SetNFT(_ context.Context, uid, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[uid]
	if !ok {
		return apperrors.WrapWithCode(apperrors.CodeNotFound, "set nft", errWalletNotFound)
	}
	t := tokenID
	w.NFTTokenID = &t
	return nil
}

func (r *MemoryWalletRepo) DomainTaken(_ context.Context, domain string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, taken := r.byDomain[domain]
	return taken, nil
}

func (r *MemoryWalletRepo) Delete(_ context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[uid]
	if !ok {
		return apperrors.WrapWithCode(apperrors.CodeNotFound, "delete wallet", errWalletNotFound)
	}
	if w.Domain != nil {
		delete(r.byDomain, *w.Domain)
	}
	delete(r.wallets, uid)
	return nil
}

func (r *MemoryWalletRepo) Stats(_ context.Context) (entity.WalletStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s entity.WalletStats
	for _, w := range r.wallets {
		s.TotalWallets++
		if w.InitialFunded {
			s.FundedWallets++
		}
		if w.Domain != nil && !w.DomainPending {
			s.WalletsWithDomain++
		}
		if w.NFTTokenID != nil {
			s.WalletsWithNFT++
		}
	}
	return s, nil
}
