package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-engine/internal/settlement/engine"
)

// Server expõe a superfície de trigger da liquidação: disparo manual e
// consulta de estatísticas. Só embrulha o motor; nenhuma outra API.
type Server struct {
	log     *zap.Logger
	eng     *engine.Engine
	running atomic.Bool

	mu          sync.RWMutex
	lastSummary *engine.Summary
	cyclesRun   int64
	totalSettld int64
}

func NewServer(log *zap.Logger, eng *engine.Engine) *Server {
	return &Server{log: log, eng: eng}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/settlement/run", s.runNow)  // POST
	mux.HandleFunc("/settlement/stats", s.stats) // GET
	return mux
}

// RecordCycle registra um ciclo disparado fora do servidor (ticker do main).
func (s *Server) RecordCycle(sum engine.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSummary = &sum
	s.cyclesRun++
	s.totalSettld += int64(sum.Settled)
}

// runNow dispara um ciclo imediatamente. O guard de linha no store já
// torna ciclos sobrepostos seguros; o 409 só evita trabalho redundante
// de um operador apressado.
func (s *Server) runNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.running.CompareAndSwap(false, true) {
		http.Error(w, "settlement cycle already running", http.StatusConflict)
		return
	}
	defer s.running.Store(false)

	s.log.Info("manual settlement cycle triggered", zap.String("remote", r.RemoteAddr))
	sum := s.eng.RunSettlementCycle(r.Context())
	s.RecordCycle(sum)

	writeJSON(w, sum)
}

type statsResponse struct {
	CyclesRun    int64           `json:"cycles_run"`
	TotalSettled int64           `json:"total_settled"`
	LastCycle    *engine.Summary `json:"last_cycle,omitempty"`
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	resp := statsResponse{
		CyclesRun:    s.cyclesRun,
		TotalSettled: s.totalSettld,
		LastCycle:    s.lastSummary,
	}
	s.mu.RUnlock()

	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
