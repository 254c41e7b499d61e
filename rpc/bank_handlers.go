package rpc

import (
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"gringotts/native/bank"
	"gringotts/native/deposit"
	"gringotts/native/registry"
)

const (
	codeBankInvalidParams = -32021
	codeBankNotFound      = -32022
	codeBankForbidden     = -32023
	codeBankConflict      = -32024
	codeBankInsufficient  = -32026
	codeBankInternal      = -32025
)

type depositJSON struct {
	ID           uint64 `json:"id"`
	Owner        string `json:"owner"`
	Principal    string `json:"principal"`
	Months       uint64 `json:"months"`
	StartAt      int64  `json:"startAt"`
	MaturesAt    int64  `json:"maturesAt"`
	UnitInterest string `json:"unitInterest"`
	Claimed      bool   `json:"claimed"`
}

func newDepositJSON(d *deposit.Deposit) *depositJSON {
	if d == nil {
		return nil
	}
	return &depositJSON{
		ID:           d.ID,
		Owner:        formatAddress(d.Owner),
		Principal:    d.Principal.String(),
		Months:       d.Months,
		StartAt:      d.StartAt,
		MaturesAt:    d.MaturesAt(),
		UnitInterest: d.UnitInterest.String(),
		Claimed:      d.Claimed,
	}
}

// writeBankError maps engine failures onto the bank's JSON-RPC error codes so
// clients can distinguish bad requests from ledger-state conflicts.
func writeBankError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, deposit.ErrNotFound):
		writeError(w, http.StatusNotFound, id, codeBankNotFound, "not_found", err.Error())
	case errors.Is(err, deposit.ErrNotOwner),
		errors.Is(err, deposit.ErrUnauthorized),
		errors.Is(err, registry.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeBankForbidden, "forbidden", err.Error())
	case errors.Is(err, deposit.ErrAlreadyClaimed),
		errors.Is(err, deposit.ErrNotYetMatured),
		errors.Is(err, deposit.ErrDuplicateDeposit),
		errors.Is(err, deposit.ErrDepositsPaused):
		writeError(w, http.StatusConflict, id, codeBankConflict, "conflict", err.Error())
	case errors.Is(err, deposit.ErrInsufficientPenalty):
		writeError(w, http.StatusConflict, id, codeBankInsufficient, "insufficient_penalty", err.Error())
	case errors.Is(err, deposit.ErrInvalidPrincipal),
		errors.Is(err, deposit.ErrUnsupportedDuration),
		errors.Is(err, deposit.ErrInvalidRecipient),
		errors.Is(err, bank.ErrMalformedPayload),
		errors.Is(err, bank.ErrUnknownToken):
		writeError(w, http.StatusBadRequest, id, codeBankInvalidParams, "invalid_params", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeBankInternal, "internal_error", err.Error())
	}
}

type depositIDParams struct {
	ID uint64 `json:"id"`
}

type ownerParams struct {
	Owner string `json:"owner"`
}

func (s *Server) handleGetDeposit(w http.ResponseWriter, req *RPCRequest) {
	params, err := decodeSingleParam[depositIDParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.node.GetDeposit(params.ID)
	if err != nil {
		writeBankError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newDepositJSON(record))
}

func (s *Server) handleDepositsOf(w http.ResponseWriter, req *RPCRequest) {
	params, err := decodeSingleParam[ownerParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	records, err := s.node.DepositsOf(owner)
	if err != nil {
		writeBankError(w, req.ID, err)
		return
	}
	out := make([]*depositJSON, 0, len(records))
	for _, record := range records {
		out = append(out, newDepositJSON(record))
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleUserTotalDeposit(w http.ResponseWriter, req *RPCRequest) {
	params, err := decodeSingleParam[ownerParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	total, err := s.node.UserTotalDeposit(owner)
	if err != nil {
		writeBankError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"total": total.String()})
}

type computeInterestParams struct {
	Principal string `json:"principal"`
	Months    uint64 `json:"months"`
	UnitRate  string `json:"unitRate"`
}

func (s *Server) handleComputeInterest(w http.ResponseWriter, req *RPCRequest) {
	params, err := decodeSingleParam[computeInterestParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	principal, err := parsePositiveBigInt(params.Principal)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	unitRate, err := parsePositiveBigInt(params.UnitRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	interest, err := deposit.ComputeInterest(principal, params.Months, unitRate)
	if err != nil {
		writeBankError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"interest": interest.String()})
}

func (s *Server) handleComputePenalty(w http.ResponseWriter, req *RPCRequest) {
	params, err := decodeSingleParam[depositIDParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	penalty, err := s.node.ComputePenalty(params.ID)
	if err != nil {
		writeBankError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"penalty": penalty.String()})
}

type accountParams struct {
	Address string `json:"address"`
}

func (s *Server) handleAccount(w http.ResponseWriter, req *RPCRequest) {
	params, err := decodeSingleParam[accountParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	account, err := s.node.GetAccount(addr)
	if err != nil {
		writeBankError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"address":     formatAddress(addr),
		"nonce":       account.Nonce,
		"balanceRING": account.BalanceRING.String(),
		"balanceKTON": account.BalanceKTON.String(),
	})
}

type claimParams struct {
	Caller string `json:"caller"`
	ID     uint64 `json:"id"`
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	params, err := decodeSingleParam[claimParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.node.ClaimDeposit(caller, params.ID)
	if err != nil {
		writeBankError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newDepositJSON(record))
}

type transferParams struct {
	Caller   string `json:"caller"`
	NewOwner string `json:"newOwner"`
	ID       uint64 `json:"id"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	params, err := decodeSingleParam[transferParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	newOwner, err := parseAddress(params.NewOwner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.node.TransferDeposit(caller, newOwner, params.ID)
	if err != nil {
		writeBankError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newDepositJSON(record))
}

type notifyTransferParams struct {
	Token   string `json:"token"`
	From    string `json:"from"`
	Amount  string `json:"amount"`
	Payload string `json:"payload"`
}

type notifyTransferResult struct {
	ReceiptID string       `json:"receiptId"`
	Deposit   *depositJSON `json:"deposit"`
}

func (s *Server) handleNotifyTransfer(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	params, err := decodeSingleParam[notifyTransferParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	token, err := parseAddress(params.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	from, err := parseAddress(params.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	payload, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(params.Payload), "0x"))
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", "payload must be hex encoded")
		return
	}
	record, err := s.node.NotifyTransfer(token, from, amount, payload)
	if err != nil {
		writeBankError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, notifyTransferResult{
		ReceiptID: uuid.NewString(),
		Deposit:   newDepositJSON(record),
	})
}

type carryOverParams struct {
	Caller    string `json:"caller"`
	ID        uint64 `json:"id"`
	Owner     string `json:"owner"`
	Months    uint64 `json:"months"`
	StartAt   int64  `json:"startAt"`
	UnitRate  string `json:"unitRate"`
	Principal string `json:"principal"`
}

func (s *Server) handleCarryOver(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	params, err := decodeSingleParam[carryOverParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	unitRate, err := parseNonNegativeBigInt(params.UnitRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	principal, err := parsePositiveBigInt(params.Principal)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.node.CarryOverDeposit(caller, params.ID, owner, params.Months, params.StartAt, unitRate, principal)
	if err != nil {
		writeBankError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newDepositJSON(record))
}

type tokenMintParams struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleTokenMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	params, err := decodeSingleParam[tokenMintParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	to, err := parseAddress(params.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.MintRING(caller, to, amount); err != nil {
		writeBankError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}
