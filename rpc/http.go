package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gringotts/core"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	authTokenEnv    = "GRINGOTTS_RPC_TOKEN"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
)

// Server exposes the bank's query, owner and administrative operations over a
// JSON-RPC 2.0 envelope. Mutating methods require the bearer token configured
// through GRINGOTTS_RPC_TOKEN; request signing and identity proofs are the
// fronting gateway's responsibility.
type Server struct {
	node      *core.Node
	authToken string
}

func NewServer(node *core.Node) *Server {
	return &Server{
		node:      node,
		authToken: strings.TrimSpace(os.Getenv(authTokenEnv)),
	}
}

// Router mounts the RPC endpoint together with health and metrics probes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/rpc", s.handle)
	return r
}

// Start serves the router on addr, blocking until the listener fails.
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.Router())
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "rpc auth token not configured"}
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) || strings.TrimSpace(header[len(prefix):]) != s.authToken {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "invalid bearer token"}
	}
	return nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	body := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer body.Close()

	var req RPCRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "parse_error", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "invalid_request", "unsupported jsonrpc version")
		return
	}

	switch req.Method {
	// Queries, open to anyone.
	case "bank_getDeposit":
		s.handleGetDeposit(w, &req)
	case "bank_depositsOf":
		s.handleDepositsOf(w, &req)
	case "bank_userTotalDeposit":
		s.handleUserTotalDeposit(w, &req)
	case "bank_computeInterest":
		s.handleComputeInterest(w, &req)
	case "bank_computePenalty":
		s.handleComputePenalty(w, &req)
	case "bank_account":
		s.handleAccount(w, &req)
	case "registry_uintOf":
		s.handleRegistryUintOf(w, &req)
	case "registry_addressOf":
		s.handleRegistryAddressOf(w, &req)
	case "registry_boolOf":
		s.handleRegistryBoolOf(w, &req)

	// Owner and bridge operations, token gated.
	case "bank_claim":
		s.handleClaim(w, r, &req)
	case "bank_transfer":
		s.handleTransfer(w, r, &req)
	case "bank_notifyTransfer":
		s.handleNotifyTransfer(w, r, &req)

	// Administrative operations, token gated.
	case "bank_carryOver":
		s.handleCarryOver(w, r, &req)
	case "token_mint":
		s.handleTokenMint(w, r, &req)
	case "registry_setUint":
		s.handleRegistrySetUint(w, r, &req)
	case "registry_setAddress":
		s.handleRegistrySetAddress(w, r, &req)
	case "registry_setBool":
		s.handleRegistrySetBool(w, r, &req)

	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method_not_found", req.Method)
	}
}

func decodeSingleParam[T any](req *RPCRequest) (*T, error) {
	if len(req.Params) != 1 {
		return nil, fmt.Errorf("exactly one parameter object expected")
	}
	params := new(T)
	if err := json.Unmarshal(req.Params[0], params); err != nil {
		return nil, err
	}
	return params, nil
}

func parseAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = trimmed[2:]
	}
	if len(trimmed) != 2*len(addr) {
		return addr, fmt.Errorf("address must be 20 bytes")
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("decode address: %w", err)
	}
	copy(addr[:], decoded)
	return addr, nil
}

func formatAddress(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func parsePositiveBigInt(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer amount %q", value)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}

func parseNonNegativeBigInt(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}
