package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"tabular/internal/dbclient"
	mcpserver "tabular/internal/mcp"
	"tabular/internal/secret"
	"tabular/internal/service"
	"tabular/internal/sshtunnel"
	"tabular/internal/storage"
)

// ServeMCP runs the app as a standalone MCP server on stdin/stdout with
// no GUI. It shares the storage file and keyring with the desktop app.
func ServeMCP() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".local", "share", "tabular", "tabular.db")

	db, err := storage.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var secrets secret.SecretStore
	if ks, err := secret.NewKeyringStore(); err != nil {
		log.Printf("Keyring unavailable, secrets held in memory: %v", err)
		secrets = secret.NewMemoryStore()
	} else {
		secrets = ks
	}

	tunnels := sshtunnel.NewRegistry()
	defer tunnels.StopAll()
	resolver := service.NewResolver(tunnels)
	pools := dbclient.NewPoolManager()
	defer pools.CloseAll()

	connStore := storage.NewConnectionStore(db)
	profiles := service.NewSSHProfileService(storage.NewSSHProfileStore(db), connStore, secrets, resolver)
	connections := service.NewConnectionService(connStore, profiles, secrets, resolver)
	queries := service.NewQueryService(connections, resolver, pools, service.NewCancelRegistry())

	go func() {
		<-ctx.Done()
		pools.CloseAll()
		tunnels.StopAll()
	}()

	mcpSrv := mcpserver.New(mcpserver.Deps{
		Connections: connections,
		Profiles:    profiles,
		Queries:     queries,
	})

	log.Println("[MCP] Starting standalone stdio server...")
	if err := mcpSrv.ServeStdio(); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
