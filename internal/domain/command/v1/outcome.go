package commandv1

import (
	"strconv"
	"strings"

	orderbookv1 "github.com/aartoni/orderbook/internal/domain/orderbook/v1"
)

// Status represents how the engine resolved a command.
type Status string

const (
	// StatusAccepted means the command was honored: the order rests, traded,
	// or the cancel removed its target.
	StatusAccepted Status = "accepted"
	// StatusRejected means the command was refused and left the book
	// untouched.
	StatusRejected Status = "rejected"
	// StatusFlushed means the books were dropped. Flushes produce no output
	// records but still flow to the sink to keep the pipeline in lockstep.
	StatusFlushed Status = "flushed"
)

// Outcome represents the engine's response to one command: its status, the
// trades it produced and the top-of-book changes it caused.
type Outcome struct {
	Command *Command                `json:"command"`
	Status  Status                  `json:"status"`
	Trades  []*orderbookv1.Trade    `json:"trades,omitempty"`
	Tops    []orderbookv1.TopOfBook `json:"tops,omitempty"`
}

// Accepted creates an accepted outcome for the given command.
func Accepted(cmd *Command) *Outcome {
	return &Outcome{Command: cmd, Status: StatusAccepted}
}

// Rejected creates a rejected outcome for the given command.
func Rejected(cmd *Command) *Outcome {
	return &Outcome{Command: cmd, Status: StatusRejected}
}

// Flushed creates the silent outcome of a flush command.
func Flushed(cmd *Command) *Outcome {
	return &Outcome{Command: cmd, Status: StatusFlushed}
}

// Records encodes the outcome into its wire records, in emission order: the
// acknowledgment or rejection line first, then one line per trade, then one
// line per top-of-book change. A flush encodes to nothing.
func (o *Outcome) Records() []string {
	if o.Status == StatusFlushed {
		return nil
	}

	records := make([]string, 0, 1+len(o.Trades)+len(o.Tops))

	tag := TagAcknowledge
	if o.Status == StatusRejected {
		tag = TagReject
	}
	records = append(records, strings.Join([]string{
		tag,
		strconv.FormatUint(o.Command.User, 10),
		strconv.FormatUint(o.Command.OrderID, 10),
	}, fieldSeparator))

	for _, trade := range o.Trades {
		records = append(records, strings.Join([]string{
			TagTrade,
			strconv.FormatUint(trade.BuyUser, 10),
			strconv.FormatUint(trade.BuyOrder, 10),
			strconv.FormatUint(trade.SellUser, 10),
			strconv.FormatUint(trade.SellOrder, 10),
			strconv.FormatUint(trade.Price, 10),
			strconv.FormatUint(trade.Qty, 10),
		}, fieldSeparator))
	}

	for _, top := range o.Tops {
		price, volume := emptyField, emptyField
		if !top.Empty {
			price = strconv.FormatUint(top.Price, 10)
			volume = strconv.FormatUint(top.Volume, 10)
		}
		records = append(records, strings.Join([]string{
			TagTopOfBook,
			SideCode(top.Side),
			price,
			volume,
		}, fieldSeparator))
	}

	return records
}

// Output record tags.
const (
	TagAcknowledge = "A"
	TagReject      = "R"
	TagTrade       = "T"
	TagTopOfBook   = "B"

	emptyField = "-"
)
