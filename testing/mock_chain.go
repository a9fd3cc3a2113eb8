// Package testing provides an in-process EVM JSON-RPC node that serves just
// enough of the eth namespace for donation verification.
package testing

import (
	"crypto/ecdsa"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"raisefunds/logger"
)

var errMissingHash = errors.New("missing transaction hash parameter")

type mockTransaction struct {
	tx      *types.Transaction
	from    common.Address
	status  uint64
	block   uint64
	pending bool
}

// MockChain answers eth_chainId, eth_getTransactionByHash and
// eth_getTransactionReceipt from transactions registered with
// AddTransaction. Unknown hashes get a null result, which clients report as
// not found.
type MockChain struct {
	mu        sync.RWMutex
	chainID   *big.Int
	lastBlock uint64
	txs       map[common.Hash]*mockTransaction
}

func NewMockChain(chainID int64) *MockChain {
	return &MockChain{
		chainID:   big.NewInt(chainID),
		lastBlock: 1000,
		txs:       make(map[common.Hash]*mockTransaction),
	}
}

func (c *MockChain) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// AddTransaction registers a mined transaction with the given receipt status.
func (c *MockChain) AddTransaction(tx *types.Transaction, from common.Address, status uint64) common.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastBlock++
	c.txs[tx.Hash()] = &mockTransaction{tx: tx, from: from, status: status, block: c.lastBlock}

	return tx.Hash()
}

// AddPendingTransaction registers a transaction that is known to the node
// but not yet mined, so it has no receipt.
func (c *MockChain) AddPendingTransaction(tx *types.Transaction, from common.Address) common.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.txs[tx.Hash()] = &mockTransaction{tx: tx, from: from, pending: true}

	return tx.Hash()
}

// SignedTransfer builds a legacy value transfer signed for the mock chain.
func (c *MockChain) SignedTransfer(key *ecdsa.PrivateKey, nonce uint64, to *common.Address, wei *big.Int) (*types.Transaction, error) {
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    wei,
		Gas:      21000,
		GasPrice: big.NewInt(25_000_000_000),
	})

	return types.SignTx(tx, types.NewEIP155Signer(c.chainID), key)
}

func (c *MockChain) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", c.serveRPC).Methods(http.MethodPost)

	return r
}

// Serve runs the mock node on the given port until the server fails.
func (c *MockChain) Serve(port int) error {
	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		Handler:      c.Handler(),
	}

	logger.Info("Mock chain %s listening on port %d", c.chainID, port)

	return server.ListenAndServe()
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
}

func (c *MockChain) serveRPC(writer http.ResponseWriter, request *http.Request) {
	body, err := io.ReadAll(request.Body)
	if err != nil {
		http.Error(writer, "Invalid request body", http.StatusBadRequest)
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logger.Error("Mock chain: error unmarshaling request: %v", err)
		http.Error(writer, "Invalid json", http.StatusBadRequest)
		return
	}

	resp := rpcResponse{Version: "2.0", ID: req.ID}

	switch req.Method {
	case "eth_chainId":
		resp.Result = (*hexutil.Big)(c.chainID)

	case "eth_getTransactionByHash":
		resp.Result, err = c.transactionByHash(req.Params)

	case "eth_getTransactionReceipt":
		resp.Result, err = c.transactionReceipt(req.Params)

	default:
		resp.Error = &rpcError{Code: -32601, Message: "the method " + req.Method + " does not exist/is not available"}
	}

	if err != nil {
		resp.Result = nil
		resp.Error = &rpcError{Code: -32602, Message: err.Error()}
	}

	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(resp); err != nil {
		logger.Error("Mock chain: error writing response: %v", err)
	}
}

func (c *MockChain) lookup(params []json.RawMessage) (*mockTransaction, error) {
	if len(params) == 0 {
		return nil, errMissingHash
	}

	var hash common.Hash
	if err := json.Unmarshal(params[0], &hash); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.txs[hash], nil
}

func (c *MockChain) transactionByHash(params []json.RawMessage) (interface{}, error) {
	mtx, err := c.lookup(params)
	if err != nil || mtx == nil {
		return nil, err
	}

	encoded, err := mtx.tx.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return nil, err
	}

	fields["from"] = mtx.from
	if mtx.pending {
		fields["blockHash"] = nil
		fields["blockNumber"] = nil
		fields["transactionIndex"] = nil
	} else {
		fields["blockHash"] = blockHash(mtx.block)
		fields["blockNumber"] = hexutil.Uint64(mtx.block)
		fields["transactionIndex"] = hexutil.Uint64(0)
	}

	return fields, nil
}

func (c *MockChain) transactionReceipt(params []json.RawMessage) (interface{}, error) {
	mtx, err := c.lookup(params)
	if err != nil || mtx == nil || mtx.pending {
		return nil, err
	}

	return &types.Receipt{
		Type:              mtx.tx.Type(),
		Status:            mtx.status,
		CumulativeGasUsed: mtx.tx.Gas(),
		Logs:              []*types.Log{},
		TxHash:            mtx.tx.Hash(),
		GasUsed:           mtx.tx.Gas(),
		EffectiveGasPrice: mtx.tx.GasPrice(),
		BlockHash:         blockHash(mtx.block),
		BlockNumber:       new(big.Int).SetUint64(mtx.block),
	}, nil
}

func blockHash(number uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(number))
}
