package sui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	xerrors "RolePay-Agent/internal/errors"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []any           `json:"params"`
}

// newRPCServer 启动一个按方法名返回固定结果的 JSON-RPC 假节点。
func newRPCServer(t *testing.T, results map[string]any) (*httptest.Server, *[]rpcRequest) {
	t.Helper()
	var seen []rpcRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("解码请求失败: %v", err)
		}
		seen = append(seen, req)

		result, ok := results[req.Method]
		if !ok {
			t.Fatalf("收到未预期的方法: %s", req.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
	return srv, &seen
}

func dialTest(t *testing.T, url string) *Client {
	t.Helper()
	client, err := Dial(context.Background(), Config{Name: "test", RPCURL: url})
	if err != nil {
		t.Fatalf("连接假节点失败: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

func TestQueryEvents(t *testing.T) {
	srv, seen := newRPCServer(t, map[string]any{
		"suix_queryEvents": map[string]any{
			"data": []map[string]any{
				{
					"id":         map[string]string{"txDigest": "abc", "eventSeq": "0"},
					"type":       "0xpkg::role::RoleCreated",
					"parsedJson": map[string]any{"role_id": "0xrole"},
				},
			},
			"hasNextPage": false,
		},
	})
	defer srv.Close()

	client := dialTest(t, srv.URL)
	events, err := client.QueryEvents(context.Background(), "0xpkg::role::RoleCreated", 50)
	if err != nil {
		t.Fatalf("查询事件失败: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("期望 1 个事件，实际为 %d", len(events))
	}
	if events[0].ParsedJSON["role_id"] != "0xrole" {
		t.Fatalf("事件负载解析不正确: %+v", events[0])
	}

	if len(*seen) != 1 || (*seen)[0].Method != "suix_queryEvents" {
		t.Fatalf("请求方法不正确: %+v", *seen)
	}
	query, ok := (*seen)[0].Params[0].(map[string]any)
	if !ok || query["MoveEventType"] != "0xpkg::role::RoleCreated" {
		t.Fatalf("事件过滤参数不正确: %+v", (*seen)[0].Params)
	}
}

func TestGetObjectNotFound(t *testing.T) {
	srv, _ := newRPCServer(t, map[string]any{
		"sui_getObject": map[string]any{
			"error": map[string]any{"code": "notExists", "object_id": "0xmissing"},
		},
	})
	defer srv.Close()

	client := dialTest(t, srv.URL)
	object, err := client.GetObject(context.Background(), "0xmissing")
	if err != nil {
		t.Fatalf("不存在的对象不应是错误: %v", err)
	}
	if object != nil {
		t.Fatalf("不存在的对象应返回 nil，实际为 %+v", object)
	}
}

func TestGetObjectContent(t *testing.T) {
	srv, _ := newRPCServer(t, map[string]any{
		"sui_getObject": map[string]any{
			"data": map[string]any{
				"objectId": "0xrole",
				"version":  "12",
				"content": map[string]any{
					"dataType": "moveObject",
					"type":     "0xpkg::role::Role",
					"fields":   map[string]any{"balance": "5000"},
				},
			},
		},
	})
	defer srv.Close()

	client := dialTest(t, srv.URL)
	object, err := client.GetObject(context.Background(), "0xrole")
	if err != nil {
		t.Fatalf("获取对象失败: %v", err)
	}
	if object == nil || object.Content == nil {
		t.Fatal("对象内容缺失")
	}
	if object.Content.Fields["balance"] != "5000" {
		t.Fatalf("对象字段解析不正确: %+v", object.Content.Fields)
	}
}

func TestMoveCallBuildsTxBytes(t *testing.T) {
	srv, seen := newRPCServer(t, map[string]any{
		"unsafe_moveCall": map[string]any{"txBytes": "dHggYnl0ZXM="},
	})
	defer srv.Close()

	client := dialTest(t, srv.URL)
	txBytes, err := client.MoveCall(context.Background(), "0xsender", MoveCall{
		PackageID: "0xpkg",
		Module:    "role",
		Function:  "execute_payments",
		Args:      []any{"0xrole", "0x6"},
		GasBudget: 10_000_000,
	})
	if err != nil {
		t.Fatalf("构建交易失败: %v", err)
	}
	if txBytes != "dHggYnl0ZXM=" {
		t.Fatalf("交易字节不正确: %s", txBytes)
	}

	params := (*seen)[0].Params
	if params[0] != "0xsender" || params[1] != "0xpkg" || params[2] != "role" || params[3] != "execute_payments" {
		t.Fatalf("入口参数不正确: %+v", params)
	}
	if params[7] != "10000000" {
		t.Fatalf("gas 预算应为十进制字符串: %v", params[7])
	}
}

func TestExecuteTransactionBlockStatus(t *testing.T) {
	srv, _ := newRPCServer(t, map[string]any{
		"sui_executeTransactionBlock": map[string]any{
			"digest": "9kQa",
			"effects": map[string]any{
				"status": map[string]any{"status": "failure", "error": "MoveAbort(..., 4)"},
			},
		},
	})
	defer srv.Close()

	client := dialTest(t, srv.URL)
	resp, err := client.ExecuteTransactionBlock(context.Background(), "dHg=", []string{"c2ln"})
	if err != nil {
		t.Fatalf("提交交易失败: %v", err)
	}
	if resp.Succeeded() {
		t.Fatal("失败的交易不应报告成功")
	}
	if resp.StatusError() == "" {
		t.Fatal("合约错误信息丢失")
	}
	if resp.Digest != "9kQa" {
		t.Fatalf("交易摘要不正确: %s", resp.Digest)
	}
}

func TestBalance(t *testing.T) {
	srv, _ := newRPCServer(t, map[string]any{
		"suix_getBalance": map[string]any{
			"coinType":     "0x2::sui::SUI",
			"totalBalance": "123456789",
		},
	})
	defer srv.Close()

	client := dialTest(t, srv.URL)
	balance, err := client.Balance(context.Background(), "0xsender")
	if err != nil {
		t.Fatalf("查询余额失败: %v", err)
	}
	if balance != 123_456_789 {
		t.Fatalf("余额不正确: %d", balance)
	}
}

func TestTransportErrorIsRetryable(t *testing.T) {
	srv, _ := newRPCServer(t, map[string]any{})
	srv.Close() // 直接关闭，模拟节点不可达

	client, err := Dial(context.Background(), Config{Name: "test", RPCURL: srv.URL})
	if err != nil {
		t.Fatalf("HTTP 连接是惰性的，Dial 不应失败: %v", err)
	}
	defer client.Close()

	_, err = client.QueryEvents(context.Background(), "0xpkg::role::RoleCreated", 10)
	if err == nil {
		t.Fatal("节点不可达时应返回错误")
	}
	if xerrors.CodeOf(err) != xerrors.CodeTransientTransport {
		t.Fatalf("期望 TRANSIENT_TRANSPORT，实际为 %s", xerrors.CodeOf(err))
	}
	if !xerrors.RetryableError(err) {
		t.Fatal("传输错误应标记为可重试")
	}
}
