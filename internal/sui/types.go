package sui

// EventID identifies an event by its transaction digest and sequence.
type EventID struct {
	TxDigest string `json:"txDigest"`
	EventSeq string `json:"eventSeq"`
}

// Event mirrors the subset of a Sui event the agent consumes.
type Event struct {
	ID          EventID        `json:"id"`
	PackageID   string         `json:"packageId"`
	Module      string         `json:"transactionModule"`
	Sender      string         `json:"sender"`
	Type        string         `json:"type"`
	ParsedJSON  map[string]any `json:"parsedJson"`
	TimestampMs string         `json:"timestampMs"`
}

// eventPage is the paginated result of suix_queryEvents.
type eventPage struct {
	Data        []Event `json:"data"`
	HasNextPage bool    `json:"hasNextPage"`
}

// ObjectContent carries the deserialized Move object payload.
type ObjectContent struct {
	DataType string         `json:"dataType"`
	Type     string         `json:"type"`
	Fields   map[string]any `json:"fields"`
}

// ObjectData is the result of sui_getObject for an existing object.
type ObjectData struct {
	ObjectID string         `json:"objectId"`
	Version  string         `json:"version"`
	Digest   string         `json:"digest"`
	Content  *ObjectContent `json:"content"`
}

// objectError reports why an object could not be fetched.
type objectError struct {
	Code     string `json:"code"`
	ObjectID string `json:"object_id"`
}

// objectResponse wraps either object data or a not-found style error.
type objectResponse struct {
	Data  *ObjectData  `json:"data"`
	Error *objectError `json:"error"`
}

// MoveCall names a contract entry point invocation.
type MoveCall struct {
	PackageID string
	Module    string
	Function  string
	TypeArgs  []string
	Args      []any
	GasBudget uint64
}

// txBytesResult is the unsigned transaction returned by unsafe_moveCall.
type txBytesResult struct {
	TxBytes string `json:"txBytes"`
}

// TxStatus is the execution status reported in transaction effects.
type TxStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// TxEffects carries the subset of transaction effects the agent inspects.
type TxEffects struct {
	Status TxStatus `json:"status"`
}

// TxResponse is the result of sui_executeTransactionBlock.
type TxResponse struct {
	Digest  string     `json:"digest"`
	Effects *TxEffects `json:"effects"`
	Events  []Event    `json:"events"`
}

// Succeeded reports whether the transaction executed successfully on chain.
func (r *TxResponse) Succeeded() bool {
	return r != nil && r.Effects != nil && r.Effects.Status.Status == "success"
}

// StatusError returns the contract-level failure reason, if any.
func (r *TxResponse) StatusError() string {
	if r == nil || r.Effects == nil {
		return ""
	}
	return r.Effects.Status.Error
}

// EventCount counts executed events whose type carries the given suffix,
// e.g. "::role::PaymentExecuted".
func (r *TxResponse) EventCount(typeSuffix string) int {
	if r == nil {
		return 0
	}
	count := 0
	for _, event := range r.Events {
		if hasSuffix(event.Type, typeSuffix) {
			count++
		}
	}
	return count
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// balanceResult is the result of suix_getBalance.
type balanceResult struct {
	CoinType        string `json:"coinType"`
	CoinObjectCount int    `json:"coinObjectCount"`
	TotalBalance    string `json:"totalBalance"`
}
