// Command scout-server hosts Scout's lookup tools as an MCP stdio server.
//
// It is normally spawned by the scout chat client, but any MCP client
// can talk to it: the protocol surface is just "list tools" and
// "call tool".
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/flynn-ai/scout/internal/mcptool"
	"github.com/flynn-ai/scout/internal/tool"
)

const version = "0.1.0"

func main() {
	lookupTimeout := flag.Duration("lookup-timeout", 10*time.Second, "timeout for one upstream data lookup")
	flag.Parse()

	log.SetPrefix("scout-server: ")
	log.SetFlags(0)

	registry := tool.NewRegistry()
	registry.Initialize(tool.NewClient(*lookupTimeout))

	server, err := mcptool.BuildServer(registry, "scout-server", version)
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("serving %d tools over stdio", len(registry.Names()))
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
