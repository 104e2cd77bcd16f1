package engine

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"shadowTrader/internal/model"
	"shadowTrader/internal/registry"
	"shadowTrader/internal/storage"
)

var (
	testRouter  = common.HexToAddress("0x9999999999999999999999999999999999999999")
	testWrapped = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testToken   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testPair    = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// mockNode implements Node and records the order of network interactions.
type mockNode struct {
	mu            sync.Mutex
	balance       *big.Int
	gasPrice      *big.Int
	gasPriceErr   error
	estimateLimit uint64
	estimateErr   error
	nonce         uint64
	receiptDelay  int
	receiptStatus uint64
	deductOnSend  bool
	events        []string
	sent          []*types.Transaction
	polls         map[common.Hash]int
}

func newMockNode(balance *big.Int) *mockNode {
	return &mockNode{
		balance:       balance,
		gasPrice:      big.NewInt(1_000_000_000),
		estimateLimit: 21000,
		receiptStatus: types.ReceiptStatusSuccessful,
		polls:         make(map[common.Hash]int),
	}
}

func (m *mockNode) BalanceAt(_ context.Context, _ common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.balance), nil
}

func (m *mockNode) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	if m.gasPriceErr != nil {
		return nil, m.gasPriceErr
	}
	return new(big.Int).Set(m.gasPrice), nil
}

func (m *mockNode) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	if m.estimateErr != nil {
		return 0, m.estimateErr
	}
	return m.estimateLimit, nil
}

func (m *mockNode) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nonce, nil
}

func (m *mockNode) SendTransaction(_ context.Context, tx *types.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonce++
	m.sent = append(m.sent, tx)
	m.events = append(m.events, "send:"+strings.ToLower(tx.To().Hex()))
	if m.deductOnSend && tx.Value() != nil {
		m.balance = new(big.Int).Sub(m.balance, tx.Value())
	}
	return nil
}

func (m *mockNode) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls[txHash]++
	if m.polls[txHash] <= m.receiptDelay {
		m.events = append(m.events, "receipt_pending")
		return nil, ethereum.NotFound
	}
	m.events = append(m.events, "receipt_found")
	return &types.Receipt{Status: m.receiptStatus, TxHash: txHash}, nil
}

func (m *mockNode) snapshotEvents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

func (m *mockNode) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type memCreds map[string]model.Credential

func (m memCreds) FindCredential(_ context.Context, ownerID string) (model.Credential, bool, error) {
	cred, ok := m[ownerID]
	return cred, ok, nil
}

type memJournal struct {
	mu   sync.Mutex
	subs []storage.Submission
}

func (j *memJournal) RecordSubmission(_ context.Context, sub storage.Submission) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.subs = append(j.subs, sub)
	return nil
}

type staticPrice float64

func (p staticPrice) PairPrice(_ context.Context, _, _ string) (float64, error) {
	return float64(p), nil
}

type failingPrice struct{}

func (failingPrice) PairPrice(_ context.Context, _, _ string) (float64, error) {
	return 0, model.Errf(model.KindPriceUnavailable, "oracle down")
}

func newTestCredential(t *testing.T) model.Credential {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return model.Credential{
		Address:    crypto.PubkeyToAddress(key.PublicKey),
		PrivateKey: hex.EncodeToString(crypto.FromECDSA(key)),
	}
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.Load([]registry.Entry{{
		Symbol:      "TKN",
		Address:     testToken.Hex(),
		TickSpacing: 100,
		PairAddress: testPair.Hex(),
	}})
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	return r
}

func newTestEngine(t *testing.T, node *mockNode, prices PriceSource, journal storage.TradeJournal) (*Engine, model.Credential) {
	t.Helper()
	cred := newTestCredential(t)
	creds := memCreds{"owner-1": cred}

	cfg := Config{
		Chain: ChainContext{
			ChainID:       big.NewInt(146),
			Router:        testRouter,
			WrappedNative: testWrapped,
			OracleChain:   "sonic",
		},
		ApprovalTimeout:     250 * time.Millisecond,
		ReceiptPollInterval: time.Millisecond,
	}

	e := New(cfg, node, prices, newTestRegistry(t), creds, journal, nil)
	e.now = func() time.Time { return time.Unix(1700000000, 0) }
	return e, cred
}

func eventIndex(events []string, want string) int {
	for i, event := range events {
		if event == want {
			return i
		}
	}
	return -1
}

func oneNative() *big.Int {
	wei, _ := new(big.Int).SetString("1000000000000000000", 10)
	return wei
}

func TestSwapSellApprovalPrecedesExecute(t *testing.T) {
	node := newMockNode(oneNative())
	node.receiptDelay = 2
	e, _ := newTestEngine(t, node, staticPrice(0.5), nil)

	res := e.Swap(context.Background(), model.SwapRequest{
		OwnerID:   "owner-1",
		AmountIn:  big.NewInt(500000),
		TokenIn:   testToken,
		TokenOut:  testWrapped,
		Direction: model.Sell,
	})
	if !res.Success {
		t.Fatalf("sell swap failed: %s", res.Error)
	}

	events := node.snapshotEvents()
	approveAt := eventIndex(events, "send:"+strings.ToLower(testToken.Hex()))
	confirmAt := eventIndex(events, "receipt_found")
	executeAt := eventIndex(events, "send:"+strings.ToLower(testRouter.Hex()))

	if approveAt < 0 || confirmAt < 0 || executeAt < 0 {
		t.Fatalf("missing events: %v", events)
	}
	if !(approveAt < confirmAt && confirmAt < executeAt) {
		t.Fatalf("ordering violated: approve=%d confirm=%d execute=%d (%v)",
			approveAt, confirmAt, executeAt, events)
	}
	if node.sentCount() != 2 {
		t.Fatalf("sent %d transactions, want 2", node.sentCount())
	}
}

func TestSwapBuySkipsApproval(t *testing.T) {
	node := newMockNode(oneNative())
	e, _ := newTestEngine(t, node, staticPrice(0.5), nil)

	res := e.Swap(context.Background(), model.SwapRequest{
		OwnerID:   "owner-1",
		AmountIn:  big.NewInt(500000),
		TokenIn:   testWrapped,
		TokenOut:  testToken,
		Direction: model.Buy,
	})
	if !res.Success {
		t.Fatalf("buy swap failed: %s", res.Error)
	}

	if node.sentCount() != 1 {
		t.Fatalf("sent %d transactions, want 1", node.sentCount())
	}
	tx := node.sent[0]
	if *tx.To() != testRouter {
		t.Fatalf("buy swap sent to %s, want router", tx.To().Hex())
	}
	if tx.Value().Cmp(big.NewInt(500000)) != 0 {
		t.Fatalf("buy swap value = %s, want 500000", tx.Value())
	}
	if eventIndex(node.snapshotEvents(), "receipt_pending") >= 0 {
		t.Fatalf("buy swap must not wait on receipts")
	}
}

func TestSwapApprovalTimeoutAborts(t *testing.T) {
	node := newMockNode(oneNative())
	node.receiptDelay = 1 << 30
	e, _ := newTestEngine(t, node, staticPrice(0.5), nil)

	res := e.Swap(context.Background(), model.SwapRequest{
		OwnerID:   "owner-1",
		AmountIn:  big.NewInt(500000),
		TokenIn:   testToken,
		TokenOut:  testWrapped,
		Direction: model.Sell,
	})
	if res.Success {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(res.Error, string(model.KindApprovalTimeout)) {
		t.Fatalf("error = %q, want %s", res.Error, model.KindApprovalTimeout)
	}
	if node.sentCount() != 1 {
		t.Fatalf("sent %d transactions after timeout, want only the approval", node.sentCount())
	}
}

func TestSwapApprovalRevertAborts(t *testing.T) {
	node := newMockNode(oneNative())
	node.receiptStatus = types.ReceiptStatusFailed
	e, _ := newTestEngine(t, node, staticPrice(0.5), nil)

	res := e.Swap(context.Background(), model.SwapRequest{
		OwnerID:   "owner-1",
		AmountIn:  big.NewInt(500000),
		TokenIn:   testToken,
		TokenOut:  testWrapped,
		Direction: model.Sell,
	})
	if res.Success {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(res.Error, string(model.KindApprovalFailed)) {
		t.Fatalf("error = %q, want %s", res.Error, model.KindApprovalFailed)
	}
	if node.sentCount() != 1 {
		t.Fatalf("sent %d transactions after revert, want only the approval", node.sentCount())
	}
}

func TestSwapValidationBeforeNetwork(t *testing.T) {
	node := newMockNode(oneNative())
	e, _ := newTestEngine(t, node, staticPrice(0.5), nil)

	res := e.Swap(context.Background(), model.SwapRequest{
		OwnerID:   "owner-1",
		AmountIn:  big.NewInt(0),
		TokenIn:   testWrapped,
		TokenOut:  testToken,
		Direction: model.Buy,
	})
	if res.Success || !strings.Contains(res.Error, string(model.KindInvalidAmount)) {
		t.Fatalf("zero amount: got %+v", res)
	}

	unknown := common.HexToAddress("0x4444444444444444444444444444444444444444")
	res = e.Swap(context.Background(), model.SwapRequest{
		OwnerID:   "owner-1",
		AmountIn:  big.NewInt(1),
		TokenIn:   testWrapped,
		TokenOut:  unknown,
		Direction: model.Buy,
	})
	if res.Success || !strings.Contains(res.Error, string(model.KindUnknownToken)) {
		t.Fatalf("unknown token: got %+v", res)
	}

	res = e.Swap(context.Background(), model.SwapRequest{
		OwnerID:   "nobody",
		AmountIn:  big.NewInt(1),
		TokenIn:   testWrapped,
		TokenOut:  testToken,
		Direction: model.Buy,
	})
	if res.Success || !strings.Contains(res.Error, string(model.KindUserNotFound)) {
		t.Fatalf("missing credential: got %+v", res)
	}

	if node.sentCount() != 0 {
		t.Fatalf("validation failures broadcast %d transactions", node.sentCount())
	}
}

func TestAddLiquidity(t *testing.T) {
	node := newMockNode(oneNative())
	journal := &memJournal{}
	e, _ := newTestEngine(t, node, staticPrice(0.5), journal)

	amount0 := big.NewInt(1000000)
	res := e.AddLiquidity(context.Background(), model.LiquidityRequest{
		OwnerID:        "owner-1",
		Amount0Desired: amount0,
		Amount1Desired: big.NewInt(2000000),
		Token0:         testWrapped,
		Token1:         testToken,
		SlippageBps:    2200,
	})
	if !res.Success {
		t.Fatalf("add liquidity failed: %s", res.Error)
	}

	// approval then multicall
	if node.sentCount() != 2 {
		t.Fatalf("sent %d transactions, want 2", node.sentCount())
	}
	mint := node.sent[1]
	if *mint.To() != testRouter {
		t.Fatalf("mint sent to %s, want router", mint.To().Hex())
	}
	if mint.Value().Cmp(amount0) != 0 {
		t.Fatalf("mint value = %s, want %s", mint.Value(), amount0)
	}

	if len(journal.subs) != 1 || journal.subs[0].Operation != "add_liquidity" {
		t.Fatalf("journal = %+v, want one add_liquidity entry", journal.subs)
	}
	if journal.subs[0].TxHash != res.TxHash {
		t.Fatalf("journal hash %s != result hash %s", journal.subs[0].TxHash, res.TxHash)
	}
}

func TestAddLiquidityPriceUnavailable(t *testing.T) {
	node := newMockNode(oneNative())
	e, _ := newTestEngine(t, node, failingPrice{}, nil)

	res := e.AddLiquidity(context.Background(), model.LiquidityRequest{
		OwnerID:        "owner-1",
		Amount0Desired: big.NewInt(1),
		Amount1Desired: big.NewInt(1),
		Token0:         testWrapped,
		Token1:         testToken,
	})
	if res.Success || !strings.Contains(res.Error, string(model.KindPriceUnavailable)) {
		t.Fatalf("got %+v, want price_unavailable", res)
	}
	if node.sentCount() != 0 {
		t.Fatalf("oracle failure broadcast %d transactions", node.sentCount())
	}
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	node := newMockNode(big.NewInt(5))
	e, _ := newTestEngine(t, node, staticPrice(0.5), nil)

	res := e.Withdraw(context.Background(), model.WithdrawRequest{
		OwnerID:   "owner-1",
		Amount:    big.NewInt(10),
		Recipient: common.HexToAddress("0x5555555555555555555555555555555555555555"),
	})
	if res.Success {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(res.Error, string(model.KindInsufficientFunds)) {
		t.Fatalf("error = %q, want %s", res.Error, model.KindInsufficientFunds)
	}
	if node.sentCount() != 0 {
		t.Fatalf("insufficient funds broadcast %d transactions", node.sentCount())
	}
}

func TestWithdrawSucceeds(t *testing.T) {
	node := newMockNode(oneNative())
	e, _ := newTestEngine(t, node, staticPrice(0.5), nil)
	recipient := common.HexToAddress("0x5555555555555555555555555555555555555555")

	res := e.Withdraw(context.Background(), model.WithdrawRequest{
		OwnerID:   "owner-1",
		Amount:    big.NewInt(12345),
		Recipient: recipient,
	})
	if !res.Success {
		t.Fatalf("withdraw failed: %s", res.Error)
	}
	if node.sentCount() != 1 {
		t.Fatalf("sent %d transactions, want 1", node.sentCount())
	}
	tx := node.sent[0]
	if *tx.To() != recipient {
		t.Fatalf("sent to %s, want %s", tx.To().Hex(), recipient.Hex())
	}
	if tx.Value().Cmp(big.NewInt(12345)) != 0 {
		t.Fatalf("value = %s, want 12345", tx.Value())
	}
	if len(tx.Data()) != 0 {
		t.Fatalf("plain transfer must carry no calldata")
	}
}

func TestWithdrawConcurrentSerialized(t *testing.T) {
	node := newMockNode(big.NewInt(10))
	node.deductOnSend = true
	e, _ := newTestEngine(t, node, staticPrice(0.5), nil)
	recipient := common.HexToAddress("0x5555555555555555555555555555555555555555")

	results := make(chan model.Result, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- e.Withdraw(context.Background(), model.WithdrawRequest{
				OwnerID:   "owner-1",
				Amount:    big.NewInt(7),
				Recipient: recipient,
			})
		}()
	}
	wg.Wait()
	close(results)

	var ok, insufficient int
	for res := range results {
		if res.Success {
			ok++
		} else if strings.Contains(res.Error, string(model.KindInsufficientFunds)) {
			insufficient++
		} else {
			t.Fatalf("unexpected failure: %s", res.Error)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Fatalf("got %d successes and %d insufficient, want 1 and 1", ok, insufficient)
	}
	if node.sentCount() != 1 {
		t.Fatalf("sent %d transactions, want 1", node.sentCount())
	}
}

func TestEstimateWithdrawal(t *testing.T) {
	node := newMockNode(oneNative())
	node.gasPrice = big.NewInt(2_000_000_000)
	node.estimateLimit = 21000
	e, cred := newTestEngine(t, node, staticPrice(0.5), nil)

	estimate := e.EstimateWithdrawal(context.Background(), cred.Address, big.NewInt(1))
	if !estimate.Available {
		t.Fatalf("estimate unavailable")
	}
	if estimate.GasPriceGwei.String() != "2" {
		t.Fatalf("gas price = %s gwei, want 2", estimate.GasPriceGwei)
	}
	if estimate.FeeNative.String() != "0.000042" {
		t.Fatalf("fee = %s, want 0.000042", estimate.FeeNative)
	}
}

func TestEstimateWithdrawalUnavailable(t *testing.T) {
	node := newMockNode(oneNative())
	node.gasPriceErr = fmt.Errorf("rpc down")
	e, cred := newTestEngine(t, node, staticPrice(0.5), nil)

	if estimate := e.EstimateWithdrawal(context.Background(), cred.Address, big.NewInt(1)); estimate.Available {
		t.Fatalf("estimate should be unavailable on RPC failure")
	}

	// advisory only: once gas estimation alone fails, the withdrawal still
	// goes through on the fallback transfer gas limit
	node.gasPriceErr = nil
	node.estimateErr = fmt.Errorf("rpc down")
	res := e.Withdraw(context.Background(), model.WithdrawRequest{
		OwnerID:   "owner-1",
		Amount:    big.NewInt(1),
		Recipient: common.HexToAddress("0x5555555555555555555555555555555555555555"),
	})
	if !res.Success {
		t.Fatalf("withdraw failed: %s", res.Error)
	}
}
