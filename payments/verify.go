package payments

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"raisefunds/boff"
	"raisefunds/chain"
	"raisefunds/database"
	"raisefunds/logger"
)

// weiDecimals converts native-currency wei values to whole coins.
const weiDecimals = 18

// DefaultVerifyTimeout bounds the node calls of one verification.
const DefaultVerifyTimeout = 10 * time.Second

// ChainReader is the part of chain.Client the verifier needs.
type ChainReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*chain.Receipt, error)
	TransactionByHash(ctx context.Context, txHash common.Hash) (*chain.Transaction, bool, error)
}

// Verifier records donations paid on-chain. It is a separate path from
// Service.CreateDonation/ConfirmDonation: a verified transaction is recorded
// as CONFIRMED directly.
type Verifier struct {
	db      *gorm.DB
	client  ChainReader
	timeout time.Duration
	now     func() time.Time
}

func NewVerifier(db *gorm.DB, client ChainReader) *Verifier {
	return &Verifier{db: db, client: client, timeout: DefaultVerifyTimeout, now: time.Now}
}

// SetTimeout limits the time one verification may spend on the node,
// retries included. Non-positive values keep the current limit.
func (v *Verifier) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		v.timeout = timeout
	}
}

// VerifyDonation checks that txHash is a successful transfer of a non-zero
// value to the fundraiser's beneficiary and records it as a confirmed
// donation. Each transaction hash is recorded at most once.
func (v *Verifier) VerifyDonation(ctx context.Context, fundraiserID uint64, txHash string) (*database.Donation, error) {
	hash, err := parseTxHash(txHash)
	if err != nil {
		return nil, err
	}
	txHash = hash.Hex()

	fundraiser, err := database.FetchFundraiser(ctx, v.db, fundraiserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrNotFound, "fundraiser %d", fundraiserID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "database.FetchFundraiser")
	}

	_, err = database.FetchDonationByTxHash(ctx, v.db, txHash)
	if err == nil {
		return nil, errors.Wrapf(ErrConflict, "transaction %s", txHash)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "database.FetchDonationByTxHash")
	}

	chainCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	receipt, err := v.fetchReceipt(chainCtx, hash)
	if err != nil {
		return nil, err
	}
	if !receipt.Successful() {
		return nil, errors.Wrapf(ErrInvalidTransaction, "transaction %s failed on chain", txHash)
	}

	tx, err := v.fetchTransaction(chainCtx, hash)
	if err != nil {
		return nil, err
	}

	to := tx.To()
	if to == nil || !strings.EqualFold(to.Hex(), fundraiser.BeneficiaryAddress) {
		return nil, errors.Wrapf(ErrInvalidRecipient, "transaction %s is not a transfer to %s", txHash, fundraiser.BeneficiaryAddress)
	}

	value := tx.Value()
	if value == nil || value.Sign() <= 0 {
		return nil, errors.Wrapf(ErrInvalidAmount, "transaction %s transfers no value", txHash)
	}

	from, err := tx.FromAddress()
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidTransaction, "transaction %s sender: %s", txHash, err)
	}

	donation := &database.Donation{
		FundraiserID: fundraiser.ID,
		DonorName:    anonymousDonor,
		DonorAddress: strings.ToLower(from.Hex()),
		Amount:       database.NewAmount(decimal.NewFromBigInt(value, -weiDecimals)),
		AmountWei:    value.String(),
		Currency:     fundraiser.Currency,
		Status:       database.DonationConfirmed,
		TxHash:       &txHash,
		ChainID:      chainIDOf(tx),
	}

	err = v.db.WithContext(ctx).Transaction(func(dbTx *gorm.DB) error {
		confirmedAt := v.now()
		donation.ConfirmedAt = &confirmedAt

		err := database.CreateDonation(ctx, dbTx, donation)
		if database.IsDuplicateKey(err) {
			return errors.Wrapf(ErrConflict, "transaction %s", txHash)
		}
		if err != nil {
			return errors.Wrap(err, "database.CreateDonation")
		}

		return database.IncrementTotalRaised(ctx, dbTx, fundraiser.ID, donation.Amount.Decimal)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Recorded on-chain donation %d (%s) of %s wei to fundraiser %d",
		donation.ID, txHash, donation.AmountWei, fundraiser.ID)

	return donation, nil
}

// parseTxHash accepts a 0x-prefixed 32-byte hex string; the hex digits may
// be in any case.
func parseTxHash(txHash string) (common.Hash, error) {
	if !strings.HasPrefix(txHash, "0x") {
		return common.Hash{}, errors.Wrap(ErrValidation, "txHash must start with 0x")
	}

	b, err := hexutil.Decode(txHash)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, errors.Wrap(ErrValidation, "txHash must be a 0x-prefixed 32-byte hex string")
	}

	return common.BytesToHash(b), nil
}

func (v *Verifier) fetchReceipt(ctx context.Context, hash common.Hash) (*chain.Receipt, error) {
	receipt, err := boff.RetryWithTimeoutWithin(
		ctx,
		func(ctx context.Context) (*chain.Receipt, error) {
			receipt, err := v.client.TransactionReceipt(ctx, hash)
			if chain.IsNotFound(err) {
				return nil, boff.Permanent(err)
			}
			return receipt, err
		},
		"TransactionReceipt",
		v.timeout,
	)
	if chain.IsNotFound(err) {
		return nil, errors.Wrapf(ErrInvalidTransaction, "no receipt for transaction %s", hash.Hex())
	}
	if err != nil {
		return nil, errors.Wrapf(ErrChainUnavailable, "client.TransactionReceipt: %s", err)
	}

	return receipt, nil
}

func (v *Verifier) fetchTransaction(ctx context.Context, hash common.Hash) (*chain.Transaction, error) {
	type fetched struct {
		tx        *chain.Transaction
		isPending bool
	}

	res, err := boff.RetryWithTimeoutWithin(
		ctx,
		func(ctx context.Context) (fetched, error) {
			tx, isPending, err := v.client.TransactionByHash(ctx, hash)
			if chain.IsNotFound(err) {
				return fetched{}, boff.Permanent(err)
			}
			return fetched{tx: tx, isPending: isPending}, err
		},
		"TransactionByHash",
		v.timeout,
	)
	if chain.IsNotFound(err) {
		return nil, errors.Wrapf(ErrInvalidTransaction, "transaction %s not found", hash.Hex())
	}
	if err != nil {
		return nil, errors.Wrapf(ErrChainUnavailable, "client.TransactionByHash: %s", err)
	}
	if res.isPending {
		return nil, errors.Wrapf(ErrInvalidTransaction, "transaction %s is pending", hash.Hex())
	}

	return res.tx, nil
}

func chainIDOf(tx *chain.Transaction) *uint64 {
	id := tx.ChainId()
	if id == nil || id.Sign() == 0 || !id.IsUint64() {
		return nil
	}

	chainID := id.Uint64()
	return &chainID
}
