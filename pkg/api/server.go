// Package api is the local gateway the browser UI consumes: REST reads of
// the session's order/trade view and exchange balances, REST writes for the
// mutating contract operations, and a WebSocket push of live view updates.
package api

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/todex/todex-client/pkg/exchange"
	"github.com/todex/todex-client/pkg/session"
)

type Server struct {
	log     *zap.SugaredLogger
	handler *exchange.Handler
	session *session.Session
	router  *mux.Router
	hub     *Hub
	http    *http.Server
}

func NewServer(handler *exchange.Handler, sess *session.Session, origins []string, log *zap.SugaredLogger) *Server {
	s := &Server{
		log:     log,
		handler: handler,
		session: sess,
		router:  mux.NewRouter(),
		hub:     NewHub(log),
	}
	s.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	s.http = &http.Server{
		Handler:      c.Handler(s.router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/orders", s.handleGetOrders).Methods("GET")
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/balances/{address}", s.handleGetBalances).Methods("GET")
	api.HandleFunc("/allowance/{address}", s.handleGetAllowance).Methods("GET")

	api.HandleFunc("/approve", s.amountHandler(s.handler.ApproveToken)).Methods("POST")
	api.HandleFunc("/deposit/eth", s.amountHandler(s.handler.DepositEther)).Methods("POST")
	api.HandleFunc("/deposit/token", s.amountHandler(s.handler.DepositToken)).Methods("POST")
	api.HandleFunc("/withdraw/eth", s.amountHandler(s.handler.WithdrawEther)).Methods("POST")
	api.HandleFunc("/withdraw/token", s.amountHandler(s.handler.WithdrawToken)).Methods("POST")

	api.HandleFunc("/orders", s.handleCreateOrder).Methods("POST")
	api.HandleFunc("/orders/{id}/cancel", s.orderIDHandler(s.handler.CancelOrder)).Methods("POST")
	api.HandleFunc("/orders/{id}/fill", s.orderIDHandler(s.handler.FillOrder)).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the hub and serves until the listener fails or Stop is called.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	s.http.Addr = addr
	s.log.Infow("api_server_starting", "addr", addr)
	return s.http.ListenAndServe()
}

// Stop drains in-flight requests and terminates the hub.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Stop()
	return s.http.Shutdown(ctx)
}

// PushUpdate broadcasts the current view. Wired as the session's on-change
// hook.
func (s *Server) PushUpdate() {
	s.hub.BroadcastToChannel("orders", s.session.Orders())
	s.hub.BroadcastToChannel("trades", s.session.Trades())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Orders())
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Trades())
}

func (s *Server) handleGetBalances(w http.ResponseWriter, r *http.Request) {
	account, ok := addressVar(w, r)
	if !ok {
		return
	}

	eth, err := s.handler.EthBalance(r.Context(), account)
	if err != nil {
		s.upstreamError(w, "eth_balance_failed", err)
		return
	}
	token, err := s.handler.TokenBalance(r.Context(), account)
	if err != nil {
		s.upstreamError(w, "token_balance_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, BalancesResponse{
		Address:      account.Hex(),
		EthBalance:   eth.String(),
		TokenBalance: token.String(),
	})
}

func (s *Server) handleGetAllowance(w http.ResponseWriter, r *http.Request) {
	account, ok := addressVar(w, r)
	if !ok {
		return
	}

	allowance, err := s.handler.TokenAllowance(r.Context(), account)
	if err != nil {
		s.upstreamError(w, "allowance_failed", err)
		return
	}

	writeJSON(w, http.StatusOK, AllowanceResponse{
		Address:   account.Hex(),
		Allowance: allowance.String(),
	})
}

// amountHandler adapts the deposit/withdraw/approve operations, which all
// take a single verbatim integer amount.
func (s *Server) amountHandler(op func(ctx context.Context, amount *big.Int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AmountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
		amount, ok := new(big.Int).SetString(req.Amount, 10)
		if !ok {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid amount"})
			return
		}
		if err := op(r.Context(), amount); err != nil {
			s.upstreamError(w, "operation_failed", err)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Status: "submitted"})
	}
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var t exchange.TradeType
	switch req.Type {
	case "buy":
		t = exchange.Buy
	case "sell":
		t = exchange.Sell
	default:
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "type must be buy or sell"})
		return
	}

	if _, ok := new(big.Int).SetString(req.Amount, 10); !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid amount"})
		return
	}
	if _, ok := new(big.Int).SetString(req.TotalPrice, 10); !ok {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid totalPrice"})
		return
	}

	order := exchange.Order{
		Type:       t,
		Amount:     req.Amount,
		TotalPrice: req.TotalPrice,
	}
	if err := s.handler.CreateOrder(r.Context(), order); err != nil {
		s.upstreamError(w, "create_order_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "submitted"})
}

func (s *Server) orderIDHandler(op func(ctx context.Context, id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if err := op(r.Context(), id); err != nil {
			s.upstreamError(w, "order_operation_failed", err)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse{Status: "submitted"})
	}
}

func (s *Server) upstreamError(w http.ResponseWriter, event string, err error) {
	s.log.Warnw(event, "err", err)
	writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
}

func addressVar(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	raw := mux.Vars(r)["address"]
	if !common.IsHexAddress(raw) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid address"})
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
