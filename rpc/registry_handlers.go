package rpc

import (
	"net/http"

	"gringotts/native/registry"
)

type registryIDParams struct {
	ID uint32 `json:"id"`
}

func (s *Server) handleRegistryUintOf(w http.ResponseWriter, req *RPCRequest) {
	params, err := decodeSingleParam[registryIDParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	value, err := s.node.RegistryUintOf(registry.PropertyID(params.ID))
	if err != nil {
		writeBankError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"value": value.String()})
}

func (s *Server) handleRegistryAddressOf(w http.ResponseWriter, req *RPCRequest) {
	params, err := decodeSingleParam[registryIDParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	value, err := s.node.RegistryAddressOf(registry.PropertyID(params.ID))
	if err != nil {
		writeBankError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"value": formatAddress(value)})
}

func (s *Server) handleRegistryBoolOf(w http.ResponseWriter, req *RPCRequest) {
	params, err := decodeSingleParam[registryIDParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	value, err := s.node.RegistryBoolOf(registry.PropertyID(params.ID))
	if err != nil {
		writeBankError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"value": value})
}

type registrySetUintParams struct {
	Caller string `json:"caller"`
	ID     uint32 `json:"id"`
	Value  string `json:"value"`
}

func (s *Server) handleRegistrySetUint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	params, err := decodeSingleParam[registrySetUintParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	value, err := parseNonNegativeBigInt(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.RegistrySetUint(caller, registry.PropertyID(params.ID), value); err != nil {
		writeBankError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

type registrySetAddressParams struct {
	Caller string `json:"caller"`
	ID     uint32 `json:"id"`
	Value  string `json:"value"`
}

func (s *Server) handleRegistrySetAddress(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	params, err := decodeSingleParam[registrySetAddressParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	value, err := parseAddress(params.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.RegistrySetAddress(caller, registry.PropertyID(params.ID), value); err != nil {
		writeBankError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}

type registrySetBoolParams struct {
	Caller string `json:"caller"`
	ID     uint32 `json:"id"`
	Value  bool   `json:"value"`
}

func (s *Server) handleRegistrySetBool(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	params, err := decodeSingleParam[registrySetBoolParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeBankInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.RegistrySetBool(caller, registry.PropertyID(params.ID), params.Value); err != nil {
		writeBankError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"ok": true})
}
