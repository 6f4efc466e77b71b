package dex

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ErrShortResponse is returned when a contract call returns fewer bytes than its outputs need
var ErrShortResponse = errors.New("contract response too short")

// Reserve getters understood by PairClient. Uniswap V2 pairs expose
// getReserves; the router deployment this service was built for exposes getReserve.
const (
	MethodGetReserves = "getReserves"
	MethodGetReserve  = "getReserve"
)

const pairABIJSON = `[
	{"type":"function","name":"getReserves","stateMutability":"view","inputs":[],"outputs":[
		{"name":"_reserve0","type":"uint112"},{"name":"_reserve1","type":"uint112"},{"name":"_blockTimestampLast","type":"uint32"}]},
	{"type":"function","name":"getReserve","stateMutability":"view","inputs":[],"outputs":[
		{"name":"reserveA","type":"uint256"},{"name":"reserveB","type":"uint256"}]},
	{"type":"function","name":"token0","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"token1","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

const factoryABIJSON = `[
	{"type":"function","name":"allPairsLength","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allPairs","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[{"name":"","type":"address"}]}
]`

const routerABIJSON = `[
	{"type":"function","name":"getFactoryAddress","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"factory","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getAmountsOut","stateMutability":"view","inputs":[
		{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"outputs":[{"name":"amounts","type":"uint256[]"}]}
]`

const erc20ABIJSON = `[
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]}
]`

var (
	pairABI    = mustParseABI(pairABIJSON)
	factoryABI = mustParseABI(factoryABIJSON)
	routerABI  = mustParseABI(routerABIJSON)
	erc20ABI   = mustParseABI(erc20ABIJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
