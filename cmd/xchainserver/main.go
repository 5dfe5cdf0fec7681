package main

import (
	"log"
	"net/http"
	"os"

	"xchain/cmd/xchainserver/server"
)

func main() {
	addr := os.Getenv("XCHAIN_API_ADDR")
	if addr == "" {
		addr = ":8082"
	}

	r := server.NewRouter()
	log.Printf("xchain bridge server listening on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatal(err)
	}
}
