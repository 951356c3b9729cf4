// Package chain provides read-only access to the marketplace, auction and
// rewards contracts over JSON-RPC. This service never submits transactions;
// the chain is consulted as an oracle and trusted for final settlement.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/nippysky/Panthart-Marketplace-sub002/internal/domain"
)

// Minimal read ABIs for the contracts this service consults.
const (
	marketplaceABIJSON = `[
		{"name":"nextListingId","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
		{"name":"listings","type":"function","stateMutability":"view","inputs":[{"name":"id","type":"uint256"}],"outputs":[
			{"name":"seller","type":"address"},
			{"name":"tokenContract","type":"address"},
			{"name":"tokenId","type":"uint256"},
			{"name":"standard","type":"uint8"},
			{"name":"quantity","type":"uint256"},
			{"name":"currency","type":"address"},
			{"name":"unitPrice","type":"uint256"},
			{"name":"startTime","type":"uint256"},
			{"name":"endTime","type":"uint256"},
			{"name":"active","type":"bool"}]}
	]`

	auctionABIJSON = `[
		{"name":"getBid","type":"function","stateMutability":"view","inputs":[{"name":"auctionId","type":"uint256"}],"outputs":[
			{"name":"bidder","type":"address"},
			{"name":"amount","type":"uint256"}]}
	]`

	rewardsABIJSON = `[
		{"name":"getCycle","type":"function","stateMutability":"view","inputs":[{"name":"token","type":"address"}],"outputs":[
			{"name":"index","type":"uint256"},
			{"name":"accPerToken","type":"uint256"},
			{"name":"updatedAt","type":"uint256"}]}
	]`

	erc20ABIJSON = `[
		{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
		{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
	]`
)

// ContractCaller is the read-only subset of ethclient this package needs;
// tests substitute a fixture implementation.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Config holds contract addresses for the read client.
type Config struct {
	MarketplaceAddress string
	AuctionAddress     string
	RewardsAddress     string
}

// Client performs read calls against the configured contracts.
type Client struct {
	caller      ContractCaller
	eth         *ethclient.Client // nil when constructed around a bare caller
	marketplace common.Address
	auction     common.Address
	rewards     common.Address

	marketplaceABI abi.ABI
	auctionABI     abi.ABI
	rewardsABI     abi.ABI
	erc20ABI       abi.ABI
}

// Dial connects to the JSON-RPC endpoint and returns a read client.
func Dial(ctx context.Context, rpcURL string, cfg Config) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}
	c, err := NewClient(eth, cfg)
	if err != nil {
		eth.Close()
		return nil, err
	}
	c.eth = eth
	return c, nil
}

// NewClient builds a read client around an existing caller.
func NewClient(caller ContractCaller, cfg Config) (*Client, error) {
	c := &Client{
		caller:      caller,
		marketplace: common.HexToAddress(cfg.MarketplaceAddress),
		auction:     common.HexToAddress(cfg.AuctionAddress),
		rewards:     common.HexToAddress(cfg.RewardsAddress),
	}

	var err error
	if c.marketplaceABI, err = abi.JSON(strings.NewReader(marketplaceABIJSON)); err != nil {
		return nil, fmt.Errorf("chain: parse marketplace abi: %w", err)
	}
	if c.auctionABI, err = abi.JSON(strings.NewReader(auctionABIJSON)); err != nil {
		return nil, fmt.Errorf("chain: parse auction abi: %w", err)
	}
	if c.rewardsABI, err = abi.JSON(strings.NewReader(rewardsABIJSON)); err != nil {
		return nil, fmt.Errorf("chain: parse rewards abi: %w", err)
	}
	if c.erc20ABI, err = abi.JSON(strings.NewReader(erc20ABIJSON)); err != nil {
		return nil, fmt.Errorf("chain: parse erc20 abi: %w", err)
	}
	return c, nil
}

// Close releases the underlying RPC connection, if any.
func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}

func (c *Client) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, args ...any) ([]any, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", method, err)
	}
	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s: %w: %v", method, domain.ErrChainUnavailable, err)
	}
	vals, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s: %w", method, err)
	}
	return vals, nil
}

// NextListingID reads the marketplace listing counter.
func (c *Client) NextListingID(ctx context.Context) (uint64, error) {
	vals, err := c.call(ctx, c.marketplace, c.marketplaceABI, "nextListingId")
	if err != nil {
		return 0, err
	}
	next, ok := vals[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("chain: nextListingId: unexpected type %T", vals[0])
	}
	return next.Uint64(), nil
}

// Listing reads one marketplace listing row.
func (c *Client) Listing(ctx context.Context, id uint64) (domain.OnChainListing, error) {
	vals, err := c.call(ctx, c.marketplace, c.marketplaceABI, "listings", new(big.Int).SetUint64(id))
	if err != nil {
		return domain.OnChainListing{}, err
	}
	if len(vals) != 10 {
		return domain.OnChainListing{}, fmt.Errorf("chain: listings(%d): %d outputs", id, len(vals))
	}

	standard := domain.StandardERC721
	if vals[3].(uint8) == 1 {
		standard = domain.StandardERC1155
	}

	currency := vals[5].(common.Address)
	currencyHex := ""
	if currency != (common.Address{}) {
		currencyHex = strings.ToLower(currency.Hex())
	}

	return domain.OnChainListing{
		ID:            id,
		Seller:        strings.ToLower(vals[0].(common.Address).Hex()),
		TokenContract: strings.ToLower(vals[1].(common.Address).Hex()),
		TokenID:       vals[2].(*big.Int),
		Standard:      standard,
		Quantity:      vals[4].(*big.Int).Int64(),
		Currency:      currencyHex,
		UnitPrice:     vals[6].(*big.Int),
		StartTime:     vals[7].(*big.Int).Int64(),
		EndTime:       vals[8].(*big.Int).Int64(),
		Active:        vals[9].(bool),
	}, nil
}

// GetBid reads the current highest bid for an on-chain auction.
func (c *Client) GetBid(ctx context.Context, auctionID *big.Int) (bidder string, amount *big.Int, err error) {
	vals, err := c.call(ctx, c.auction, c.auctionABI, "getBid", auctionID)
	if err != nil {
		return "", nil, err
	}
	return strings.ToLower(vals[0].(common.Address).Hex()), vals[1].(*big.Int), nil
}

// GetCycle reads the on-chain reward cycle for a token (zero address for the
// native asset).
func (c *Client) GetCycle(ctx context.Context, token string) (domain.RewardCycle, error) {
	vals, err := c.call(ctx, c.rewards, c.rewardsABI, "getCycle", common.HexToAddress(token))
	if err != nil {
		return domain.RewardCycle{}, err
	}
	return domain.RewardCycle{
		Index:       vals[0].(*big.Int).Uint64(),
		AccPerToken: vals[1].(*big.Int).String(),
		UpdatedAt:   vals[2].(*big.Int).Int64(),
	}, nil
}

// TokenSymbol reads an ERC-20 symbol.
func (c *Client) TokenSymbol(ctx context.Context, token string) (string, error) {
	vals, err := c.call(ctx, common.HexToAddress(token), c.erc20ABI, "symbol")
	if err != nil {
		return "", err
	}
	return vals[0].(string), nil
}

// TokenDecimals reads an ERC-20 decimals value.
func (c *Client) TokenDecimals(ctx context.Context, token string) (int, error) {
	vals, err := c.call(ctx, common.HexToAddress(token), c.erc20ABI, "decimals")
	if err != nil {
		return 0, err
	}
	return int(vals[0].(uint8)), nil
}
