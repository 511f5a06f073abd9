// Command loadgen drives a running gateway over its TCP protocol with a
// stream of randomized orders, reporting submission throughput and the
// accepted/rejected/canceled counts.
// It plays the same mechanical role as the teacher's in-process loadgen,
// adapted to speak the wire protocol instead of calling the engine directly.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"os"
	"strings"
	"time"
)

func main() {
	addr := flag.String("addr", "localhost:9090", "gateway TCP address")
	totalOrders := flag.Int("orders", 50000, "number of orders to submit")
	priceLevels := flag.Int64("price-levels", 200, "unique price levels around the mid")
	basePrice := flag.Int64("base-price", 10000, "mid price used for randomization")
	ticker := flag.String("ticker", "SIM", "ticker to register and trade")
	marketRatio := flag.Int("market-ratio", 5, "1 in N orders will be market instead of limit")
	cancelEvery := flag.Int("cancel-every", 0, "cancel a previously submitted order every N submissions")
	seed := flag.Int64("seed", time.Now().UnixNano(), "seed for deterministic random streams")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	symbolID, err := registerInstrument(reader, writer, *ticker, *basePrice)
	if err != nil {
		fmt.Fprintf(os.Stderr, "register instrument: %v\n", err)
		os.Exit(1)
	}

	submittedIDs := make([]uint64, 0, *totalOrders)
	var accepted, rejected, canceled int

	start := time.Now()
	for i := 0; i < *totalOrders; i++ {
		line := nextRandomOrder(rng, symbolID, *basePrice, *priceLevels, *marketRatio)
		resp, err := roundTrip(reader, writer, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "submit failed: %v\n", err)
			continue
		}
		if strings.HasPrefix(resp, "OK ") {
			accepted++
			var orderID uint64
			fmt.Sscanf(strings.TrimPrefix(resp, "OK "), "%d", &orderID)
			submittedIDs = append(submittedIDs, orderID)
		} else {
			rejected++
		}

		if *cancelEvery > 0 && len(submittedIDs) > 0 && i%*cancelEvery == 0 {
			target := submittedIDs[rng.Intn(len(submittedIDs))]
			cancelLine := fmt.Sprintf("CANCEL %d %d", symbolID, target)
			if resp, err := roundTrip(reader, writer, cancelLine); err == nil && resp == "OK" {
				canceled++
			}
		}
	}
	elapsed := time.Since(start)

	ordersPerSec := float64(*totalOrders) / elapsed.Seconds()
	fmt.Printf("submitted %d orders in %s (%.0f orders/s)\n", *totalOrders, elapsed.Truncate(time.Millisecond), ordersPerSec)
	fmt.Printf("accepted=%d rejected=%d canceled=%d\n", accepted, rejected, canceled)
}

func registerInstrument(reader *bufio.Reader, writer *bufio.Writer, ticker string, basePrice int64) (uint64, error) {
	line := fmt.Sprintf("ADD_INSTRUMENT %s|load generator instrument|SIM|%d.00", ticker, basePrice)
	resp, err := roundTrip(reader, writer, line)
	if err != nil {
		return 0, err
	}
	if !strings.HasPrefix(resp, "OK ") {
		return 0, fmt.Errorf("unexpected response: %s", resp)
	}
	var symbolID uint64
	fmt.Sscanf(strings.TrimPrefix(resp, "OK "), "%d", &symbolID)
	return symbolID, nil
}

func roundTrip(reader *bufio.Reader, writer *bufio.Writer, line string) (string, error) {
	if _, err := writer.WriteString(line + "\n"); err != nil {
		return "", err
	}
	if err := writer.Flush(); err != nil {
		return "", err
	}
	resp, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

func nextRandomOrder(rng *rand.Rand, symbolID uint64, mid, width int64, marketRatio int) string {
	side := "B"
	if rng.Intn(2) == 1 {
		side = "S"
	}

	var price int64
	if side == "B" {
		price = mid + rng.Int63n(width)
	} else {
		offset := rng.Int63n(width)
		if mid > offset {
			price = mid - offset
		} else {
			price = 1
		}
	}

	orderType := "L"
	if marketRatio > 0 && rng.Intn(marketRatio) == 0 {
		orderType = "M"
	}

	qty := rng.Int63n(5) + 1

	return fmt.Sprintf("ADD %d %s %s %d %d", symbolID, side, orderType, price, qty)
}
