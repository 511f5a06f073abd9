// Command gateway starts the TCP order-entry listener and the WebSocket
// market-data endpoints in front of a fresh instrument manager.
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/shopspring/decimal"

	"github.com/kgsahil/OrderBook/config"
	"github.com/kgsahil/OrderBook/gateway"
	"github.com/kgsahil/OrderBook/oms"
)

// defaultInstrumentPrice seeds cfg.DefaultTicker when it is auto-registered
// at startup; clients that want a different opening price add their own
// instrument via ADD_INSTRUMENT instead of relying on the default one.
var defaultInstrumentPrice = decimal.NewFromInt(100)

func main() {
	cfgPath := os.Getenv("GATEWAY_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	manager := oms.New(cfg.QueueCapacity)
	srv := gateway.NewServer(manager, cfg.SnapshotDepth, cfg.WSReadBuffer, cfg.WSWriteBuffer)

	if cfg.DefaultTicker != "" {
		symbolID, err := manager.AddInstrument(cfg.DefaultTicker, "default instrument", "", defaultInstrumentPrice)
		if err != nil {
			log.Fatalf("register default ticker %s: %v", cfg.DefaultTicker, err)
		}
		log.Printf("registered default ticker %s as symbol %d", cfg.DefaultTicker, symbolID)
	}

	manager.Start()
	defer manager.Stop()

	stop := make(chan struct{})
	defer close(stop)
	go srv.PumpEvents(stop)

	wsAddr := os.Getenv("WS_LISTEN_ADDR")
	if wsAddr == "" {
		wsAddr = ":8080"
	}
	go func() {
		log.Printf("market-data websocket listening on %s", wsAddr)
		if err := http.ListenAndServe(wsAddr, srv.Routes()); err != nil {
			log.Fatalf("websocket listener: %v", err)
		}
	}()

	if err := srv.ListenTCP(cfg.ListenAddr); err != nil {
		log.Fatalf("tcp listener: %v", err)
	}
}
