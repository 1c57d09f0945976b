package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"RolePay-Agent/internal/observability/metrics"
	"RolePay-Agent/internal/settle"
	"RolePay-Agent/internal/status"
)

// Server 暴露只读的状态接口：角色快照、结算记录与指标。
type Server struct {
	addr     string
	registry *status.Registry
	store    settle.Store
}

// NewServer 构造状态服务实例。
func NewServer(addr string, registry *status.Registry, store settle.Store) *Server {
	return &Server{addr: addr, registry: registry, store: store}
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/roles", s.instrument("roles", s.handleRoles))
	mux.HandleFunc("/api/v1/roles/", s.instrument("role", s.handleRole))
	mux.HandleFunc("/api/v1/settlements", s.instrument("settlements", s.handleSettlements))
	mux.HandleFunc("/healthz", s.instrument("healthz", s.handleHealth))
	mux.Handle("/metrics", metrics.Handler())

	// 配置 HTTP 服务器。
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 启动服务器并监听关闭信号。
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// handleRoles 返回所有角色的最新快照。
func (s *Server) handleRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	if s.registry == nil {
		http.Error(w, "状态注册表未初始化", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.registry.All())
}

// handleRole 返回单个角色的快照。
func (s *Server) handleRole(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	if s.registry == nil {
		http.Error(w, "状态注册表未初始化", http.StatusServiceUnavailable)
		return
	}
	roleID := r.URL.Path[len("/api/v1/roles/"):]
	snapshot, ok := s.registry.Get(roleID)
	if !ok {
		http.Error(w, "角色不存在", http.StatusNotFound)
		return
	}
	writeJSON(w, snapshot)
}

// handleSettlements 返回最近的结算记录。
func (s *Server) handleSettlements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "结算存储未初始化", http.StatusServiceUnavailable)
		return
	}

	opts := settle.ListOptions{}
	query := r.URL.Query()
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			opts.Limit = parsed
		}
	}
	if raw := query.Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			opts.Offset = parsed
		}
	}
	if raw := query.Get("role_id"); raw != "" {
		opts.RoleID = raw
	}
	if raw := query.Get("status"); raw != "" {
		opts.Statuses = []settle.Status{settle.Status(raw)}
	}

	records, err := s.store.List(r.Context(), opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, records)
}

// handleHealth 返回存活状态与结算统计。
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	body := map[string]any{"status": "ok"}
	if s.registry != nil {
		body["roles"] = s.registry.Len()
	}
	if s.store != nil {
		if stats, err := s.store.Stats(r.Context(), settle.ListOptions{}); err == nil {
			body["settlements"] = stats
		}
	}
	writeJSON(w, body)
}

// instrument 为处理器记录请求指标。
func (s *Server) instrument(name string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		handler(recorder, r)
		metrics.ObserveHTTPRequest(name, r.Method, recorder.status, time.Since(started))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
