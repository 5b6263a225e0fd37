package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

type debugPayload struct {
	Labels   string `json:"labels"`
	Coverage []byte `json:"coverage"`
}

// runServe streams a built program's debug artifacts to any websocket
// client that connects, turning the teacher's qusb2snes websocket
// *client* pattern (ws.Dial/wsutil.NewClientSideReader) inside out into a
// server: ws.Upgrade the incoming HTTP connection, then write one JSON
// frame with wsutil.NewWriter before closing.
func runServe(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: snesgen serve <addr> <labels-file> <coverage-file>")
	}
	addr, lblPath, cdlPath := args[0], args[1], args[2]

	labels, err := os.ReadFile(lblPath)
	if err != nil {
		return fmt.Errorf("reading label file: %w", err)
	}
	coverage, err := os.ReadFile(cdlPath)
	if err != nil {
		return fmt.Errorf("reading coverage file: %w", err)
	}
	payload := debugPayload{Labels: string(labels), Coverage: coverage}

	http.HandleFunc("/debug", func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			log.Printf("snesgen serve: upgrade: %v", err)
			return
		}
		defer conn.Close()

		wr := wsutil.NewWriter(conn, ws.StateServerSide, ws.OpText)
		enc := json.NewEncoder(wr)
		if err := enc.Encode(payload); err != nil {
			log.Printf("snesgen serve: encode: %v", err)
			return
		}
		if err := wr.Flush(); err != nil {
			log.Printf("snesgen serve: flush: %v", err)
			return
		}
	})

	fmt.Printf("serving debug info on ws://%s/debug\n", addr)
	return http.ListenAndServe(addr, nil)
}
