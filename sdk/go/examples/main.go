package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"RolePay-Agent/sdk/go/rolepay"
)

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/roles", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]rolepay.RoleSnapshot{
			{
				RoleID:        "0x1a2b",
				RoleName:      "payroll-march",
				ReadyCount:    1,
				Balance:       5_000_000_000,
				Action:        "execute_payments",
				LastCheckedAt: time.Now().UnixMilli(),
			},
		})
	})
	mux.HandleFunc("/api/v1/settlements", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]rolepay.Settlement{
			{
				ID:        "rec-demo",
				RoleID:    "0x1a2b",
				Action:    "execute_payments",
				Digest:    "9kQa...",
				Affected:  1,
				Status:    "confirmed",
				CreatedAt: time.Now().Unix(),
			},
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := rolepay.NewClient(srv.URL, srv.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snapshots, err := client.Roles(ctx)
	if err != nil {
		panic(err)
	}
	for _, snapshot := range snapshots {
		fmt.Printf("role %s: %d payments ready, next action %s\n",
			snapshot.RoleID, snapshot.ReadyCount, snapshot.Action)
	}

	settlements, err := client.Settlements(ctx, rolepay.SettlementFilter{Limit: 10})
	if err != nil {
		panic(err)
	}
	for _, settlement := range settlements {
		fmt.Printf("settlement %s: %s (%d payments moved)\n",
			settlement.ID, settlement.Status, settlement.Affected)
	}
}
