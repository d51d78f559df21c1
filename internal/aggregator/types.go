package aggregator

// StepType classifies an executable route step.
type StepType string

const (
	StepApprove StepType = "approve"
	StepSwap    StepType = "swap"
	StepBridge  StepType = "bridge"
)

// TxRequest is the raw transaction a step wants submitted: destination
// contract, call data, and gas parameters. The engine signs it with the
// caller's signer.
type TxRequest struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value,omitempty"`
	GasLimit uint64 `json:"gasLimit,omitempty"`
}

// Step is one executable leg of a route. All steps of a route run on the
// source chain; for bridge routes the destination-chain settlement happens
// asynchronously on the provider side.
type Step struct {
	Type        StepType  `json:"type"`
	Description string    `json:"description,omitempty"`
	ChainID     uint64    `json:"chainId"`
	Tx          TxRequest `json:"tx"`
}

// Route is one executable path returned by the route-finding service. Amounts
// are base units of the destination token, as decimal strings.
type Route struct {
	ID             string `json:"id"`
	ExpectedOutput string `json:"expectedOutput"`
	GasCostInQuote string `json:"gasCostInQuote"`
	Steps          []Step `json:"steps"`
}

// RouteRequest asks the service for executable routes.
type RouteRequest struct {
	FromChainID uint64 `json:"fromChainId"`
	FromToken   string `json:"fromToken"`
	FromAmount  string `json:"fromAmount"`
	ToChainID   uint64 `json:"toChainId"`
	ToToken     string `json:"toToken"`
	FromAddress string `json:"fromAddress"`
	SlippageBps uint32 `json:"slippageBps"`
}

type routesResponse struct {
	Routes []Route `json:"routes"`
}

type errorResponse struct {
	Message string `json:"message"`
}
