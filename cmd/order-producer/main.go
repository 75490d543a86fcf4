package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	commandv1 "github.com/aartoni/orderbook/internal/domain/command/v1"
	orderbookv1 "github.com/aartoni/orderbook/internal/domain/orderbook/v1"
)

// generateCommands creates a realistic command stream: limit orders spread
// around a base price with the occasional cancel of an order that is still
// resting.
func generateCommands(count int, symbols []string, basePrice, priceSpread uint64, cancelRatio float64, rng *rand.Rand) []*commandv1.Command {
	type liveOrder struct {
		user    uint64
		orderID uint64
	}

	commands := make([]*commandv1.Command, 0, count)
	var live []liveOrder
	nextID := uint64(1)

	for i := 0; i < count; i++ {
		// Cancels only make sense once orders are resting
		if len(live) > 0 && rng.Float64() < cancelRatio {
			pick := rng.Intn(len(live))
			order := live[pick]
			live = append(live[:pick], live[pick+1:]...)

			commands = append(commands, commandv1.NewCancelCommand(order.user, order.orderID))
			continue
		}

		user := uint64(rng.Intn(50) + 1)
		symbol := symbols[rng.Intn(len(symbols))]

		// Order side: 50/50 buy/sell
		side := orderbookv1.SideBuy
		if rng.Float64() < 0.5 {
			side = orderbookv1.SideSell
		}

		// Bids cluster below the base price, asks above it
		delta := uint64(rng.Int63n(int64(priceSpread) + 1))
		var price uint64
		if side == orderbookv1.SideBuy {
			if delta >= basePrice {
				price = 1
			} else {
				price = basePrice - delta
			}
		} else {
			price = basePrice + delta
		}

		qty := uint64(rng.Intn(100) + 1)

		commands = append(commands, commandv1.NewOrderCommand(user, symbol, price, qty, side, nextID))
		live = append(live, liveOrder{user: user, orderID: nextID})
		nextID++
	}

	return commands
}

// loadCommands reads wire-format records from a file, skipping blank lines
// and comments.
func loadCommands(path string) []*commandv1.Command {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read file %s: %v", path, err)
	}

	var commands []*commandv1.Command
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cmd, err := commandv1.ParseLine(line)
		if err != nil {
			log.Fatalf("Invalid record on line %d: %v", i+1, err)
		}
		commands = append(commands, cmd)
	}

	return commands
}

func main() {
	var (
		brokers     = flag.String("brokers", "localhost:9092", "Kafka broker addresses (comma-separated)")
		topic       = flag.String("topic", "commands", "Kafka topic name")
		file        = flag.String("file", "", "File with wire-format records (optional, generates commands if not provided)")
		delay       = flag.Duration("delay", 100*time.Millisecond, "Delay between sending commands")
		count       = flag.Int("count", 1000, "Number of commands to generate")
		symbols     = flag.String("symbols", "IBM,AAPL,MSFT", "Symbols to trade (comma-separated)")
		basePrice   = flag.Uint64("base-price", 100, "Base price for orders")
		priceSpread = flag.Uint64("price-spread", 20, "Price spread range")
		cancelRatio = flag.Float64("cancel-ratio", 0.2, "Fraction of commands canceling a resting order")
	)
	flag.Parse()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Create Kafka writer
	writer := &kafka.Writer{
		Addr:         kafka.TCP(*brokers),
		Topic:        *topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	defer writer.Close()

	ctx := context.Background()

	// Load or generate the command stream
	var commands []*commandv1.Command
	if *file != "" {
		commands = loadCommands(*file)
		log.Printf("Loaded %d commands from file: %s", len(commands), *file)
	} else {
		log.Printf("Generating %d commands...", *count)
		commands = generateCommands(*count, strings.Split(*symbols, ","), *basePrice, *priceSpread, *cancelRatio, rng)
		log.Printf("Generated %d commands", len(commands))
	}

	log.Printf("Sending commands to Kafka broker: %s, topic: %s", *brokers, *topic)
	log.Printf("Delay between commands: %v", *delay)

	// Send commands
	for i, cmd := range commands {
		msg := kafka.Message{
			Key:   []byte(strconv.FormatUint(cmd.OrderID, 10)),
			Value: []byte(cmd.Record()),
			Time:  time.Now(),
		}

		if err := writer.WriteMessages(ctx, msg); err != nil {
			log.Printf("Failed to send command %d: %v", i+1, err)
			continue
		}

		// Log progress every 100 commands or for the last one
		if (i+1)%100 == 0 || i == len(commands)-1 {
			log.Printf("Sent command %d/%d: %s", i+1, len(commands), cmd.Record())
		}

		// Wait before sending the next command (except for the last one)
		if i < len(commands)-1 {
			time.Sleep(*delay)
		}
	}

	log.Printf("Successfully sent all %d commands!", len(commands))

	// Print summary
	newOrders := 0
	cancels := 0
	flushes := 0
	buyOrders := 0
	sellOrders := 0

	for _, cmd := range commands {
		switch cmd.Kind {
		case commandv1.KindNew:
			newOrders++
			if cmd.Side == orderbookv1.SideBuy {
				buyOrders++
			} else {
				sellOrders++
			}
		case commandv1.KindCancel:
			cancels++
		case commandv1.KindFlush:
			flushes++
		}
	}

	log.Printf("--- Summary ---")
	log.Printf("Total Commands: %d", len(commands))
	log.Printf("New Orders: %d (%d buy, %d sell)", newOrders, buyOrders, sellOrders)
	log.Printf("Cancels: %d", cancels)
	log.Printf("Flushes: %d", flushes)
}
