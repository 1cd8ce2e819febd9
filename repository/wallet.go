/*
uid → 唯一索引
domain → 稀疏唯一索引 (预留中的域名也占用)
*/
package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/injectivepass/nfc_service/entity"
	apperrors "github.com/injectivepass/nfc_service/errors"
)

// WalletRepository persists one NFCWallet per card UID.
type WalletRepository interface {
	Get(ctx context.Context, uid string) (*entity.NFCWallet, error)
	Exists(ctx context.Context, uid string) (bool, error)
	// GetOrCreate inserts w unless a record for w.UID exists, in which case
	// the stored record is returned untouched and created is false.
	GetOrCreate(ctx context.Context, w *entity.NFCWallet) (stored *entity.NFCWallet, created bool, err error)
	MarkFunded(ctx context.Context, uid, txHash string) error
	// ReserveDomain claims domain for a wallet that has none, marked pending
	// until ConfirmDomain. A pending name is already taken for everyone else.
	ReserveDomain(ctx context.Context, uid, domain string) error
	ConfirmDomain(ctx context.Context, uid, domain string) error
	// ReleaseDomain drops a pending reservation. It is a no-op when there is
	// none.
	ReleaseDomain(ctx context.Context, uid, domain string) error
	SetNFT(ctx context.Context, uid, tokenID string) error
	DomainTaken(ctx context.Context, domain string) (bool, error)
	Delete(ctx context.Context, uid string) error
	Stats(ctx context.Context) (entity.WalletStats, error)
}

var (
	errWalletNotFound = errors.New("wallet not found")
	errDomainSet      = errors.New("wallet already has a domain")
	errDomainTaken    = errors.New("domain already registered")
	errNoReservation  = errors.New("no pending domain reservation")
)

type MongoWalletRepo struct {
	col *mongo.Collection
}

func NewMongoWalletRepo(col *mongo.Collection) *MongoWalletRepo {
	return &MongoWalletRepo{col: col}
}

func (r *MongoWalletRepo) Get(ctx context.Context, uid string) (*entity.NFCWallet, error) {
	var w entity.NFCWallet
	err := r.col.FindOne(ctx, bson.M{"uid": uid}).Decode(&w)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.WrapWithCode(apperrors.CodeNotFound, "get wallet", errWalletNotFound)
	}
	if err != nil {
		return nil, apperrors.WrapWithCode(apperrors.CodeStore, "get wallet", err)
	}
	return &w, nil
}

func (r *MongoWalletRepo) Exists(ctx context.Context, uid string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"uid": uid}, options.Count().SetLimit(1))
	if err != nil {
		return false, apperrors.WrapWithCode(apperrors.CodeStore, "exists wallet", err)
	}
	return n > 0, nil
}

// GetOrCreate is a single upsert with $setOnInsert, so the read and the
// insert happen in one server-side operation. Two racing upserts on a new uid
// can still collide on the unique index; the loser re-reads the winner.
func (r *MongoWalletRepo) GetOrCreate(ctx context.Context, w *entity.NFCWallet) (*entity.NFCWallet, bool, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.Before)

	var existing entity.NFCWallet
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"uid": w.UID},
		bson.M{"$setOnInsert": w},
		opts,
	).Decode(&existing)

	switch {
	case err == nil:
		return &existing, false, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return w.Clone(), true, nil
	case mongo.IsDuplicateKeyError(err):
		stored, getErr := r.Get(ctx, w.UID)
		if getErr != nil {
			return nil, false, getErr
		}
		return stored, false, nil
	default:
		return nil, false, apperrors.WrapWithCode(apperrors.CodeStore, "create wallet", err)
	}
}

func (r *MongoWalletRepo) MarkFunded(ctx context.Context, uid, txHash string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"uid": uid},
		bson.M{"$set": bson.M{"initial_funded": true, "funding_tx_hash": txHash}},
	)
	if err != nil {
		return apperrors.WrapWithCode(apperrors.CodeStore, "mark funded", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.WrapWithCode(apperrors.CodeNotFound, "mark funded", errWalletNotFound)
	}
	return nil
}

// ReserveDomain only writes when the wallet has no domain yet. The sparse
// unique index on domain makes the claim exclusive across wallets.
func (r *MongoWalletRepo) ReserveDomain(ctx context.Context, uid, domain string) error {
	const op = "reserve domain"
	res, err := r.col.UpdateOne(ctx,
		bson.M{"uid": uid, "domain": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"domain": domain, "domain_pending": true}},
	)
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.WrapWithCode(apperrors.CodeConflict, op, errDomainTaken)
	}
	if err != nil {
		return apperrors.WrapWithCode(apperrors.CodeStore, op, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	exists, err := r.Exists(ctx, uid)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.WrapWithCode(apperrors.CodeNotFound, op, errWalletNotFound)
	}
	return apperrors.WrapWithCode(apperrors.CodeConflict, op, errDomainSet)
}

func (r *MongoWalletRepo) ConfirmDomain(ctx context.Context, uid, domain string) error {
	const op = "confirm domain"
	res, err := r.col.UpdateOne(ctx,
		bson.M{"uid": uid, "domain": domain},
		bson.M{"$unset": bson.M{"domain_pending": ""}},
	)
	if err != nil {
		return apperrors.WrapWithCode(apperrors.CodeStore, op, err)
	}
	if res.MatchedCount == 0 {
		return apperrors.WrapWithCode(apperrors.CodeConflict, op, errNoReservation)
	}
	return nil
}

func (r *MongoWalletRepo) ReleaseDomain(ctx context.Context, uid, domain string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"uid": uid, "domain": domain, "domain_pending": true},
		bson.M{"$unset": bson.M{"domain": "", "domain_pending": ""}},
	)
	if err != nil {
		return apperrors.WrapWithCode(apperrors.CodeStore, "release domain", err)
	}
	return nil
}

func (r *MongoWalletRepo) SetNFT(ctx context.Context, uid, tokenID string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"uid": uid},
		bson.M{"$set": bson.M{"nft_token_id": tokenID}},
	)
	if err != nil {
		return apperrors.WrapWithCode(apperrors.CodeStore, "set nft", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.WrapWithCode(apperrors.CodeNotFound, "set nft", errWalletNotFound)
	}
	return nil
}

func (r *MongoWalletRepo) DomainTaken(ctx context.Context, domain string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"domain": domain}, options.Count().SetLimit(1))
	if err != nil {
		return false, apperrors.WrapWithCode(apperrors.CodeStore, "domain taken", err)
	}
	return n > 0, nil
}

func (r *MongoWalletRepo) Delete(ctx context.Context, uid string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"uid": uid})
	if err != nil {
		return apperrors.WrapWithCode(apperrors.CodeStore, "delete wallet", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.WrapWithCode(apperrors.CodeNotFound, "delete wallet", errWalletNotFound)
	}
	return nil
}

func (r *MongoWalletRepo) Stats(ctx context.Context) (entity.WalletStats, error) {
	var stats entity.WalletStats
	counts := []struct {
		filter bson.M
		dst    *int64
	}{
		{bson.M{}, &stats.TotalWallets},
		{bson.M{"initial_funded": true}, &stats.FundedWallets},
		{bson.M{"domain": bson.M{"$exists": true}, "domain_pending": bson.M{"$ne": true}}, &stats.WalletsWithDomain},
		{bson.M{"nft_token_id": bson.M{"$exists": true}}, &stats.WalletsWithNFT},
	}
	for _, c := range counts {
		n, err := r.col.CountDocuments(ctx, c.filter)
		if err != nil {
			return entity.WalletStats{}, apperrors.WrapWithCode(apperrors.CodeStore, "wallet stats", err)
		}
		*c.dst = n
	}
	return stats, nil
}
