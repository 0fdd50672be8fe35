package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/layer-3/agora-gate/core"
)

var errNotPaired = errors.New("please call connect() before request()")

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// WalletConnectProvider relays EIP-1193 requests to a remote wallet over a
// websocket bridge. Requests before Connect fail the same way the browser
// provider does.
type WalletConnectProvider struct {
	bridgeURL string
	projectID string
	chainID   uint64
	dialer    *websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[uint64]chan rpcResponse
	writeMu sync.Mutex
	nextID  atomic.Uint64
}

// WalletConnectFactory builds an unpaired provider. A missing project id or
// bridge URL means WalletConnect is not configured.
func WalletConnectFactory(projectID, bridgeURL string, chainID uint64) Factory {
	return func(ctx context.Context) (Provider, error) {
		if projectID == "" || bridgeURL == "" {
			return nil, core.ErrNotConfigured
		}
		return NewWalletConnectProvider(projectID, bridgeURL, chainID), nil
	}
}

// NewWalletConnectProvider creates an unpaired provider
func NewWalletConnectProvider(projectID, bridgeURL string, chainID uint64) *WalletConnectProvider {
	return &WalletConnectProvider{
		bridgeURL: bridgeURL,
		projectID: projectID,
		chainID:   chainID,
		dialer:    websocket.DefaultDialer,
		pending:   make(map[uint64]chan rpcResponse),
	}
}

// Connect pairs with the bridge. Calling it on a paired provider is a no-op.
func (w *WalletConnectProvider) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return nil
	}

	u, err := url.Parse(w.bridgeURL)
	if err != nil {
		return fmt.Errorf("invalid bridge url: %w", err)
	}
	q := u.Query()
	q.Set("projectId", w.projectID)
	q.Set("chainId", strconv.FormatUint(w.chainID, 10))
	u.RawQuery = q.Encode()

	conn, _, err := w.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to reach walletconnect bridge: %w", err)
	}

	w.conn = conn
	go w.readLoop(conn)
	return nil
}

// Request sends one JSON-RPC call and waits for its answer or ctx
func (w *WalletConnectProvider) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	id := w.nextID.Add(1)
	ch := make(chan rpcResponse, 1)

	w.mu.Lock()
	conn := w.conn
	if conn == nil {
		w.mu.Unlock()
		return nil, errNotPaired
	}
	w.pending[id] = ch
	w.mu.Unlock()

	w.writeMu.Lock()
	err := conn.WriteJSON(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	w.writeMu.Unlock()
	if err != nil {
		w.forget(id)
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, core.ErrNotConnected
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		w.forget(id)
		return nil, ctx.Err()
	}
}

// Disconnect closes the pairing
func (w *WalletConnectProvider) Disconnect(ctx context.Context) error {
	w.mu.Lock()
	conn := w.conn
	w.conn = nil
	w.mu.Unlock()

	if conn == nil {
		return nil
	}

	w.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	w.writeMu.Unlock()
	return conn.Close()
}

func (w *WalletConnectProvider) readLoop(conn *websocket.Conn) {
	for {
		var resp rpcResponse
		if err := conn.ReadJSON(&resp); err != nil {
			w.failPending(conn)
			return
		}

		w.mu.Lock()
		ch, ok := w.pending[resp.ID]
		delete(w.pending, resp.ID)
		w.mu.Unlock()

		if ok {
			ch <- resp
		}
	}
}

// failPending releases every waiter once the connection is gone
func (w *WalletConnectProvider) failPending(conn *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == conn {
		w.conn = nil
	}
	for id, ch := range w.pending {
		close(ch)
		delete(w.pending, id)
	}
}

func (w *WalletConnectProvider) forget(id uint64) {
	w.mu.Lock()
	delete(w.pending, id)
	w.mu.Unlock()
}
