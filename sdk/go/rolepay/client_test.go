package rolepay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRolesDecodesSnapshots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/roles" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		_ = json.NewEncoder(w).Encode([]RoleSnapshot{
			{RoleID: "0xabc", RoleName: "payroll", ReadyCount: 2, Action: "execute_payments"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())

	snapshots, err := client.Roles(context.Background())
	if err != nil {
		t.Fatalf("roles: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
	if snapshots[0].RoleID != "0xabc" || snapshots[0].ReadyCount != 2 {
		t.Fatalf("unexpected snapshot: %+v", snapshots[0])
	}
}

func TestSettlementsBuildsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/settlements" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		query := r.URL.Query()
		if query.Get("role_id") != "0xabc" {
			t.Fatalf("expected role_id filter, got %q", query.Get("role_id"))
		}
		if query.Get("status") != "confirmed" {
			t.Fatalf("expected status filter, got %q", query.Get("status"))
		}
		if query.Get("limit") != "5" {
			t.Fatalf("expected limit 5, got %q", query.Get("limit"))
		}
		_ = json.NewEncoder(w).Encode([]Settlement{
			{ID: "rec-1", RoleID: "0xabc", Status: "confirmed", Affected: 1},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())

	settlements, err := client.Settlements(context.Background(), SettlementFilter{
		RoleID: "0xabc",
		Status: "confirmed",
		Limit:  5,
	})
	if err != nil {
		t.Fatalf("settlements: %v", err)
	}
	if len(settlements) != 1 || settlements[0].ID != "rec-1" {
		t.Fatalf("unexpected settlements: %+v", settlements)
	}
}

func TestRoleNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "角色不存在", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())

	_, err := client.Role(context.Background(), "0xmissing")
	if err == nil {
		t.Fatal("expected error for missing role")
	}
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", apiErr.StatusCode)
	}
}
