package sui

import (
	"context"
	"errors"
	"strconv"
	"strings"

	xerrors "RolePay-Agent/internal/errors"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Config describes how to construct a Sui fullnode client.
type Config struct {
	Name   string
	RPCURL string
	Notes  string
}

// Client talks JSON-RPC 2.0 to a Sui fullnode. The go-ethereum rpc package
// is chain agnostic and provides the transport.
type Client struct {
	name      string
	notes     string
	rpcClient *gethrpc.Client
}

// Dial connects to the configured fullnode and returns a ready-to-use client.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("未配置 Sui 节点 RPC 地址")
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeTransientTransport, err, "连接 Sui 节点失败")
	}

	return &Client{
		name:      cfg.Name,
		notes:     cfg.Notes,
		rpcClient: rpcClient,
	}, nil
}

// Close releases the network connection held by the client.
func (c *Client) Close() {
	if c == nil || c.rpcClient == nil {
		return
	}
	c.rpcClient.Close()
	c.rpcClient = nil
}

// QueryEvents lists events of the given Move event type, newest first. The
// fullnode does not guarantee creation order.
func (c *Client) QueryEvents(ctx context.Context, eventType string, limit int) ([]Event, error) {
	if c == nil || c.rpcClient == nil {
		return nil, errors.New("未初始化的 Sui 客户端")
	}
	if strings.TrimSpace(eventType) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "事件类型不能为空")
	}
	if limit <= 0 {
		limit = 100
	}

	query := map[string]any{"MoveEventType": eventType}
	var page eventPage
	if err := c.rpcClient.CallContext(ctx, &page, "suix_queryEvents", query, nil, limit, true); err != nil {
		return nil, wrapTransportError(err, "查询事件失败")
	}
	return page.Data, nil
}

// GetObject fetches one object with its content. A nil ObjectData without an
// error means the object does not exist or has been deleted.
func (c *Client) GetObject(ctx context.Context, id string) (*ObjectData, error) {
	if c == nil || c.rpcClient == nil {
		return nil, errors.New("未初始化的 Sui 客户端")
	}

	options := map[string]any{"showContent": true}
	var resp objectResponse
	if err := c.rpcClient.CallContext(ctx, &resp, "sui_getObject", id, options); err != nil {
		return nil, wrapTransportError(err, "获取对象失败")
	}
	if resp.Error != nil {
		// notExist/deleted 属于正常跳过条件，而非传输错误。
		return nil, nil
	}
	return resp.Data, nil
}

// MoveCall asks the fullnode to build an unsigned transaction invoking the
// named entry point and returns the base64 transaction bytes.
func (c *Client) MoveCall(ctx context.Context, sender string, call MoveCall) (string, error) {
	if c == nil || c.rpcClient == nil {
		return "", errors.New("未初始化的 Sui 客户端")
	}
	if call.PackageID == "" || call.Module == "" || call.Function == "" {
		return "", xerrors.New(xerrors.CodeInvalidArgument, "MoveCall 缺少目标入口")
	}

	typeArgs := call.TypeArgs
	if typeArgs == nil {
		typeArgs = []string{}
	}
	args := call.Args
	if args == nil {
		args = []any{}
	}
	gasBudget := call.GasBudget
	if gasBudget == 0 {
		gasBudget = 10_000_000
	}

	var result txBytesResult
	err := c.rpcClient.CallContext(ctx, &result, "unsafe_moveCall",
		sender,
		call.PackageID,
		call.Module,
		call.Function,
		typeArgs,
		args,
		nil, // gas 对象由节点自动挑选
		strconv.FormatUint(gasBudget, 10),
	)
	if err != nil {
		return "", wrapTransportError(err, "构建交易失败")
	}
	if result.TxBytes == "" {
		return "", xerrors.New(xerrors.CodeTransientTransport, "节点返回了空的交易字节")
	}
	return result.TxBytes, nil
}

// ExecuteTransactionBlock submits the signed transaction and waits for the
// node to report execution effects.
func (c *Client) ExecuteTransactionBlock(ctx context.Context, txBytes string, signatures []string) (*TxResponse, error) {
	if c == nil || c.rpcClient == nil {
		return nil, errors.New("未初始化的 Sui 客户端")
	}

	options := map[string]any{"showEffects": true, "showEvents": true}
	var resp TxResponse
	err := c.rpcClient.CallContext(ctx, &resp, "sui_executeTransactionBlock",
		txBytes,
		signatures,
		options,
		"WaitForLocalExecution",
	)
	if err != nil {
		return nil, wrapTransportError(err, "提交交易失败")
	}
	return &resp, nil
}

// Balance returns the SUI coin balance of the owner address.
func (c *Client) Balance(ctx context.Context, owner string) (uint64, error) {
	if c == nil || c.rpcClient == nil {
		return 0, errors.New("未初始化的 Sui 客户端")
	}

	var result balanceResult
	if err := c.rpcClient.CallContext(ctx, &result, "suix_getBalance", owner, "0x2::sui::SUI"); err != nil {
		return 0, wrapTransportError(err, "查询余额失败")
	}
	if result.TotalBalance == "" {
		return 0, nil
	}
	balance, err := strconv.ParseUint(result.TotalBalance, 10, 64)
	if err != nil {
		return 0, xerrors.Wrap(xerrors.CodeMalformedState, err, "解析余额失败")
	}
	return balance, nil
}

// Name returns the configured network name.
func (c *Client) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// wrapTransportError 将传输层错误统一标记为可重试的瞬时错误。
func wrapTransportError(err error, message string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return xerrors.Wrap(xerrors.CodeTimeout, err, message)
	}
	return xerrors.Wrap(xerrors.CodeTransientTransport, err, message)
}
