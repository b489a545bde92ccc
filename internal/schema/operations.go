package schema

// Operation names as the agent invokes them.
const (
	OpCreateSegugio   = "create_segugio"
	OpSellFromSegugio = "sell_from_segugio"
	OpWithdraw        = "withdraw_from_segugio"
	OpCheckStats      = "check_stats"
	OpAddFunds        = "add_funds"
	OpEthereumPrice   = "ethereum_price"
)

// Argument names shared across operations.
const (
	FieldENSDomain       = "ensDomain"
	FieldAddress         = "address"
	FieldLabel           = "label"
	FieldTimeRange       = "timeRange"
	FieldOnlyBuyTrades   = "onlyBuyTrades"
	FieldDefaultAmountIn = "defaultAmountIn"
	FieldDefaultTokenIn  = "defaultTokenIn"
	FieldAmount          = "amount"
	FieldTokenOut        = "tokenOut"
	FieldTokenIn         = "tokenIn"
	FieldToken           = "token"
)

var timeRanges = []string{"1h", "1d", "1w", "1m", "1y"}

// CreateSegugio is the contract for starting a copy-trade follow.
func CreateSegugio() Schema {
	return Schema{
		Op: OpCreateSegugio,
		Fields: []Field{
			{Name: FieldENSDomain, Type: TypeString},
			{Name: FieldAddress, Type: TypeString},
			{Name: FieldLabel, Type: TypeString},
			{Name: FieldTimeRange, Type: TypeEnum, Enum: timeRanges, Default: "1w"},
			{Name: FieldOnlyBuyTrades, Type: TypeBoolean, Default: true},
			{Name: FieldDefaultAmountIn, Type: TypeNumber, Default: float64(1)},
			{Name: FieldDefaultTokenIn, Type: TypeString, Default: "ETH"},
		},
	}
}

// SellFromSegugio is the contract for swapping out of a copied position.
func SellFromSegugio() Schema {
	return Schema{
		Op: OpSellFromSegugio,
		Fields: []Field{
			{Name: FieldENSDomain, Type: TypeString},
			{Name: FieldAddress, Type: TypeString},
			{Name: FieldAmount, Type: TypeNumber, Default: float64(1)},
			{Name: FieldTokenOut, Type: TypeString, Default: "ETH"},
			{Name: FieldTokenIn, Type: TypeString, Default: "USDC"},
		},
	}
}

// WithdrawFromSegugio is the contract for withdrawing funds from a segugio.
func WithdrawFromSegugio() Schema {
	return Schema{
		Op: OpWithdraw,
		Fields: []Field{
			{Name: FieldENSDomain, Type: TypeString},
			{Name: FieldAddress, Type: TypeString},
			{Name: FieldAmount, Type: TypeNumber, Default: float64(1)},
			{Name: FieldTokenOut, Type: TypeString, Default: "USDC"},
		},
	}
}

// CheckStats is the contract for reading segugio statistics.
func CheckStats() Schema {
	return Schema{
		Op: OpCheckStats,
		Fields: []Field{
			{Name: FieldENSDomain, Type: TypeString},
			{Name: FieldAddress, Type: TypeString},
		},
	}
}

// AddFunds is the contract for topping up the bot wallet.
func AddFunds() Schema {
	return Schema{
		Op: OpAddFunds,
		Fields: []Field{
			{Name: FieldAddress, Type: TypeString, Required: true},
			{Name: FieldAmount, Type: TypeNumber, Default: float64(0.05)},
			{Name: FieldToken, Type: TypeString, Default: "ETH"},
		},
	}
}

// EthereumPrice is the contract for the ETH price quote. It takes no
// arguments.
func EthereumPrice() Schema {
	return Schema{Op: OpEthereumPrice}
}
