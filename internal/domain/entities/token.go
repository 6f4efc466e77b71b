package entities

// NativeToken is the symbol the front-end uses for the chain's native coin.
// It is routed as WETH.
const NativeToken = "ETH"

// DefaultDecimals is used for amounts when the token's decimals are unknown
const DefaultDecimals = 18

// Token is a tradable asset as listed by the pools that hold it
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// IsNative reports whether id names the native coin rather than a token contract
func IsNative(id string) bool {
	return NormalizeToken(id) == NormalizeToken(NativeToken)
}
