package commandv1

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	orderbookv1 "github.com/aartoni/orderbook/internal/domain/orderbook/v1"
)

// Record tags and side codes used on the wire.
const (
	TagNew    = "N"
	TagCancel = "C"
	TagFlush  = "F"

	sideCodeBuy  = "B"
	sideCodeSell = "S"

	fieldSeparator = ", "
)

// ErrMalformedRecord is returned for any input record that does not follow
// the wire format: wrong field count, non-numeric fields, unknown tag or
// side code. The stream is assumed well formed, so this is fatal for the run.
var ErrMalformedRecord = errors.New("malformed record")

// ParseLine decodes one comma-separated input line into a command.
func ParseLine(line string) (*Command, error) {
	return Parse(strings.Split(line, ","))
}

// Parse decodes the fields of one input record into a command. Fields are
// trimmed before interpretation, matching the tolerant readers used to feed
// the engine.
//
// Record layouts:
//
//	N, user, symbol, price, qty, side, orderId
//	C, user, orderId
//	F
func Parse(fields []string) (*Command, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrMalformedRecord)
	}

	trimmed := make([]string, len(fields))
	for i, f := range fields {
		trimmed[i] = strings.TrimSpace(f)
	}

	switch trimmed[0] {
	case TagNew:
		return parseNew(trimmed)
	case TagCancel:
		return parseCancel(trimmed)
	case TagFlush:
		if len(trimmed) != 1 {
			return nil, fmt.Errorf("%w: flush record takes no fields, got %d extra", ErrMalformedRecord, len(trimmed)-1)
		}
		return NewFlushCommand(), nil
	default:
		return nil, fmt.Errorf("%w: unknown tag %q", ErrMalformedRecord, trimmed[0])
	}
}

func parseNew(fields []string) (*Command, error) {
	if len(fields) != 7 {
		return nil, fmt.Errorf("%w: new record needs 7 fields, got %d", ErrMalformedRecord, len(fields))
	}

	user, err := parseUint(fields[1], "user")
	if err != nil {
		return nil, err
	}

	symbol := fields[2]
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrMalformedRecord)
	}

	price, err := parsePositive(fields[3], "price")
	if err != nil {
		return nil, err
	}

	qty, err := parsePositive(fields[4], "qty")
	if err != nil {
		return nil, err
	}

	side, err := ParseSide(fields[5])
	if err != nil {
		return nil, err
	}

	orderID, err := parseUint(fields[6], "orderId")
	if err != nil {
		return nil, err
	}

	return NewOrderCommand(user, symbol, price, qty, side, orderID), nil
}

func parseCancel(fields []string) (*Command, error) {
	if len(fields) != 3 {
		return nil, fmt.Errorf("%w: cancel record needs 3 fields, got %d", ErrMalformedRecord, len(fields))
	}

	user, err := parseUint(fields[1], "user")
	if err != nil {
		return nil, err
	}

	orderID, err := parseUint(fields[2], "orderId")
	if err != nil {
		return nil, err
	}

	return NewCancelCommand(user, orderID), nil
}

func parseUint(field, name string) (uint64, error) {
	v, err := strconv.ParseUint(field, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric %s %q", ErrMalformedRecord, name, field)
	}
	return v, nil
}

func parsePositive(field, name string) (uint64, error) {
	v, err := parseUint(field, name)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrMalformedRecord, name)
	}
	return v, nil
}

// ParseSide decodes a wire side code into a book side.
func ParseSide(code string) (orderbookv1.Side, error) {
	switch code {
	case sideCodeBuy:
		return orderbookv1.SideBuy, nil
	case sideCodeSell:
		return orderbookv1.SideSell, nil
	default:
		return "", fmt.Errorf("%w: unknown side %q", ErrMalformedRecord, code)
	}
}

// SideCode encodes a book side as its wire code.
func SideCode(side orderbookv1.Side) string {
	if side == orderbookv1.SideBuy {
		return sideCodeBuy
	}
	return sideCodeSell
}

// Record encodes the command back into its wire form.
func (c *Command) Record() string {
	switch c.Kind {
	case KindNew:
		return strings.Join([]string{
			TagNew,
			strconv.FormatUint(c.User, 10),
			c.Symbol,
			strconv.FormatUint(c.Price, 10),
			strconv.FormatUint(c.Qty, 10),
			SideCode(c.Side),
			strconv.FormatUint(c.OrderID, 10),
		}, fieldSeparator)
	case KindCancel:
		return strings.Join([]string{
			TagCancel,
			strconv.FormatUint(c.User, 10),
			strconv.FormatUint(c.OrderID, 10),
		}, fieldSeparator)
	default:
		return TagFlush
	}
}
