package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	avxClient "github.com/ava-labs/coreth/ethclient"
	"github.com/ava-labs/coreth/interfaces"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethClient "github.com/ethereum/go-ethereum/ethclient"

	avxTypes "github.com/ava-labs/coreth/core/types"
	ethTypes "github.com/ethereum/go-ethereum/core/types"
)

// ChainType is an internal type used to differentiate between different
// types of EVM-compatible chains.
type ChainType int

const (
	ChainTypeAvax ChainType = iota + 1 // Add 1 to skip 0 - avoids the zero value defaulting to Avax
	ChainTypeEth
)

func (ct ChainType) String() string {
	switch ct {
	case ChainTypeAvax:
		return "avax"
	case ChainTypeEth:
		return "eth"
	default:
		return fmt.Sprintf("ChainType(%d)", int(ct))
	}
}

// UnmarshalText lets the chain type be configured as "avax" or "eth".
func (ct *ChainType) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "avax", "avalanche":
		*ct = ChainTypeAvax
	case "eth", "ethereum":
		*ct = ChainTypeEth
	default:
		return fmt.Errorf("invalid chain type %q", string(text))
	}
	return nil
}

// IsNotFound reports whether err means the node does not know the requested
// item. The avax client has its own sentinel for this.
func IsNotFound(err error) bool {
	return errors.Is(err, ethereum.NotFound) || errors.Is(err, interfaces.NotFound)
}

type Client struct {
	chain ChainType
	eth   *ethClient.Client
	avx   avxClient.Client
}

type Receipt struct {
	chain ChainType
	eth   *ethTypes.Receipt
	avx   *avxTypes.Receipt
}

type Transaction struct {
	chain ChainType
	eth   *ethTypes.Transaction
	avx   *avxTypes.Transaction
}

func DialRPCNode(nodeURL *url.URL, chainType ChainType) (*Client, error) {
	c := &Client{chain: chainType}
	var err error

	switch c.chain {
	case ChainTypeAvax:
		c.avx, err = avxClient.Dial(nodeURL.String())
	case ChainTypeEth:
		c.eth, err = ethClient.Dial(nodeURL.String())
	default:
		return nil, errors.New("invalid chain")
	}

	return c, err
}

// NewEthReceipt wraps a go-ethereum receipt, mainly for tests and tools that
// already hold decoded chain data.
func NewEthReceipt(r *ethTypes.Receipt) *Receipt {
	return &Receipt{chain: ChainTypeEth, eth: r}
}

// NewEthTransaction wraps a go-ethereum transaction.
func NewEthTransaction(tx *ethTypes.Transaction) *Transaction {
	return &Transaction{chain: ChainTypeEth, eth: tx}
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	switch c.chain {
	case ChainTypeAvax:
		return c.avx.ChainID(ctx)
	case ChainTypeEth:
		return c.eth.ChainID(ctx)
	default:
		return nil, errors.New("invalid chain")
	}
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*Receipt, error) {
	receipt := &Receipt{chain: c.chain}
	var err error
	switch c.chain {
	case ChainTypeAvax:
		receipt.avx, err = c.avx.TransactionReceipt(ctx, txHash)
	case ChainTypeEth:
		receipt.eth, err = c.eth.TransactionReceipt(ctx, txHash)
	default:
		return nil, errors.New("invalid chain")
	}

	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// TransactionByHash returns the transaction with the given hash and whether it
// is still pending.
func (c *Client) TransactionByHash(ctx context.Context, txHash common.Hash) (*Transaction, bool, error) {
	tx := &Transaction{chain: c.chain}
	var (
		isPending bool
		err       error
	)
	switch c.chain {
	case ChainTypeAvax:
		tx.avx, isPending, err = c.avx.TransactionByHash(ctx, txHash)
	case ChainTypeEth:
		tx.eth, isPending, err = c.eth.TransactionByHash(ctx, txHash)
	default:
		return nil, false, errors.New("invalid chain")
	}

	if err != nil {
		return nil, false, err
	}

	return tx, isPending, nil
}

func (c *Client) Close() {
	switch c.chain {
	case ChainTypeAvax:
		c.avx.Close()
	case ChainTypeEth:
		c.eth.Close()
	}
}

func (r *Receipt) Status() uint64 {
	switch r.chain {
	case ChainTypeAvax:
		return r.avx.Status
	case ChainTypeEth:
		return r.eth.Status
	default:
		return 0
	}
}

// Successful reports whether the transaction executed without reverting.
func (r *Receipt) Successful() bool {
	return r.Status() == ethTypes.ReceiptStatusSuccessful
}

func (r *Receipt) BlockNumber() *big.Int {
	switch r.chain {
	case ChainTypeAvax:
		return r.avx.BlockNumber
	case ChainTypeEth:
		return r.eth.BlockNumber
	default:
		return nil
	}
}

func (t *Transaction) Hash() common.Hash {
	switch t.chain {
	case ChainTypeAvax:
		return t.avx.Hash()
	case ChainTypeEth:
		return t.eth.Hash()
	default:
		return common.Hash{}
	}
}

func (t *Transaction) To() *common.Address {
	switch t.chain {
	case ChainTypeAvax:
		return t.avx.To()
	case ChainTypeEth:
		return t.eth.To()
	default:
		return nil
	}
}

func (t *Transaction) ChainId() *big.Int {
	switch t.chain {
	case ChainTypeAvax:
		return t.avx.ChainId()
	case ChainTypeEth:
		return t.eth.ChainId()
	default:
		return nil
	}
}

func (t *Transaction) Value() *big.Int {
	switch t.chain {
	case ChainTypeAvax:
		return t.avx.Value()
	case ChainTypeEth:
		return t.eth.Value()
	default:
		return nil
	}
}

func (t *Transaction) FromAddress() (common.Address, error) {
	switch t.chain {
	case ChainTypeAvax:
		return avxTypes.Sender(avxTypes.LatestSignerForChainID(t.avx.ChainId()), t.avx)
	case ChainTypeEth:
		return ethTypes.Sender(ethTypes.LatestSignerForChainID(t.eth.ChainId()), t.eth)
	default:
		return common.Address{}, fmt.Errorf("wrong chain")
	}
}
