package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter configures the HTTP routes for the xchain bridge server.
func NewRouter() *mux.Router {
	r := mux.NewRouter()

	// middleware
	r.Use(RequestLogger)
	r.Use(JSONHeaders)

	// VAA inspection
	r.HandleFunc("/api/vaa/parse", ParseVAA).Methods(http.MethodGet)
	r.HandleFunc("/api/vaa/submit", SubmitVAAQuorumCheck).Methods(http.MethodPost)

	// transfers
	r.HandleFunc("/api/transfer/initiate", InitiateTransfer).Methods(http.MethodPost)
	r.HandleFunc("/api/transfer/complete", CompleteTransfer).Methods(http.MethodPost)
	r.HandleFunc("/api/wrapped/{chain}/{addr}", GetWrappedAsset).Methods(http.MethodGet)

	// accountant
	r.HandleFunc("/api/accountant/observations", SubmitObservation).Methods(http.MethodPost)
	r.HandleFunc("/api/accountant/vaas", SubmitAccountantVAA).Methods(http.MethodPost)
	r.HandleFunc("/api/accountant/balance/{chain}/{tokenChain}/{tokenAddr}", GetAccountBalance).Methods(http.MethodGet)
	r.HandleFunc("/api/accountant/modify-balance", ModifyBalance).Methods(http.MethodPost)
	r.HandleFunc("/api/accountant/pending/{emitterChain}/{emitterAddr}/{sequence}", GetPendingTransfer).Methods(http.MethodGet)
	r.HandleFunc("/api/accountant/committed/{emitterChain}/{emitterAddr}/{sequence}", GetCommittedTransfer).Methods(http.MethodGet)

	// governance: chain registration is a TokenBridge governance action and
	// runs through ExecuteGovernance like any other governance VAA, not as a
	// standalone shortcut.
	r.HandleFunc("/api/governance/execute", ExecuteGovernance).Methods(http.MethodPost)
	r.HandleFunc("/api/governance/guardian-set", SetGuardianSet).Methods(http.MethodPost)

	return r
}
