package gateway

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kgsahil/OrderBook/core"
)

// addInstrumentRequest is the parsed form of
// "ADD_INSTRUMENT <ticker>|<description>|<industry>|<initial_price>".
type addInstrumentRequest struct {
	ticker       string
	description  string
	industry     string
	initialPrice decimal.Decimal
}

func parseAddInstrument(args string) (addInstrumentRequest, error) {
	fields := strings.Split(args, "|")
	if len(fields) != 4 {
		return addInstrumentRequest{}, fmt.Errorf("expected ticker|description|industry|initial_price, got %q", args)
	}
	ticker := strings.TrimSpace(fields[0])
	if ticker == "" {
		return addInstrumentRequest{}, fmt.Errorf("ticker must not be empty")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(fields[3]))
	if err != nil {
		return addInstrumentRequest{}, fmt.Errorf("invalid initial_price: %w", err)
	}
	if price.Sign() <= 0 {
		return addInstrumentRequest{}, fmt.Errorf("initial_price must be > 0")
	}
	return addInstrumentRequest{
		ticker:       ticker,
		description:  strings.TrimSpace(fields[1]),
		industry:     strings.TrimSpace(fields[2]),
		initialPrice: price,
	}, nil
}

// addOrderRequest is the parsed form of
// "ADD <symbol_id> <B|S> <L|M> <price> <qty>".
type addOrderRequest struct {
	symbolID core.SymbolID
	order    core.Order
}

func parseAddOrder(args string) (addOrderRequest, error) {
	fields := strings.Fields(args)
	if len(fields) != 5 {
		return addOrderRequest{}, fmt.Errorf("expected symbol_id side type price qty, got %q", args)
	}

	symbolID, err := parseSymbolID(fields[0])
	if err != nil {
		return addOrderRequest{}, err
	}

	side, err := parseSide(fields[1])
	if err != nil {
		return addOrderRequest{}, err
	}

	orderType, err := parseOrderType(fields[2])
	if err != nil {
		return addOrderRequest{}, err
	}

	price, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return addOrderRequest{}, fmt.Errorf("invalid price: %w", err)
	}

	qty, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return addOrderRequest{}, fmt.Errorf("invalid qty: %w", err)
	}
	if qty <= 0 {
		return addOrderRequest{}, fmt.Errorf("qty must be > 0")
	}
	if orderType == core.Limit && price <= 0 {
		return addOrderRequest{}, fmt.Errorf("limit price must be > 0")
	}

	return addOrderRequest{
		symbolID: symbolID,
		order: core.Order{
			SymbolID: symbolID,
			Side:     side,
			Type:     orderType,
			Price:    core.Price(price),
			Quantity: core.Quantity(qty),
		},
	}, nil
}

func parseSide(s string) (core.Side, error) {
	switch s {
	case "B":
		return core.Buy, nil
	case "S":
		return core.Sell, nil
	default:
		return 0, fmt.Errorf("unknown side %q, want B or S", s)
	}
}

func parseOrderType(s string) (core.OrderType, error) {
	switch s {
	case "L":
		return core.Limit, nil
	case "M":
		return core.Market, nil
	default:
		return 0, fmt.Errorf("unknown order type %q, want L or M", s)
	}
}

func parseSymbolID(s string) (core.SymbolID, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid symbol_id: %w", err)
	}
	return core.SymbolID(v), nil
}

func parseOrderID(s string) (core.OrderID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid order_id: %w", err)
	}
	return core.OrderID(v), nil
}
