// Package main is the entry point for the nilc command line tool and server.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/lemonberrylabs/nil-layout/pkg/api"
	grpcapi "github.com/lemonberrylabs/nil-layout/pkg/api/grpc"
	"github.com/lemonberrylabs/nil-layout/pkg/runtime"
	"github.com/lemonberrylabs/nil-layout/pkg/store"
	"github.com/lemonberrylabs/nil-layout/pkg/types"
	"github.com/lemonberrylabs/nil-layout/web"
	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "nilc",
		Short:         "Evaluate nil constant expressions and compute type layouts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Version = version + " (commit=" + commit + ", built=" + date + ")"
	root.SetVersionTemplate("nilc version {{.Version}}\n")

	root.PersistentFlags().Int64("word-size", 0, "Size of uw/iw in bytes (default 8, env NIL_WORD_SIZE)")
	root.PersistentFlags().Int64("pointer-size", 0, "Size of pointers and fn in bytes (default 8, env NIL_POINTER_SIZE)")
	root.PersistentFlags().String("byte-order", "", "Target byte order, little or big (default little, env NIL_BYTE_ORDER)")

	root.AddCommand(newEvalCmd(), newTypeCmd(), newCheckCmd(), newServeCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// layoutParams resolves the layout flags against their environment fallbacks.
func layoutParams(cmd *cobra.Command) (types.LayoutParams, error) {
	p := types.DefaultLayout()

	word, err := strconv.ParseInt(envOrDefault("NIL_WORD_SIZE", "8"), 10, 64)
	if err != nil {
		return p, fmt.Errorf("NIL_WORD_SIZE: %w", err)
	}
	p.WordSize = word
	if v, _ := cmd.Flags().GetInt64("word-size"); v != 0 {
		p.WordSize = v
	}

	ptr, err := strconv.ParseInt(envOrDefault("NIL_POINTER_SIZE", "8"), 10, 64)
	if err != nil {
		return p, fmt.Errorf("NIL_POINTER_SIZE: %w", err)
	}
	p.PointerSize = ptr
	if v, _ := cmd.Flags().GetInt64("pointer-size"); v != 0 {
		p.PointerSize = v
	}

	order := envOrDefault("NIL_BYTE_ORDER", "little")
	if v, _ := cmd.Flags().GetString("byte-order"); v != "" {
		order = v
	}
	if p.ByteOrder, err = types.ParseByteOrder(order); err != nil {
		return p, err
	}

	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST, gRPC and web UI servers",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().Int("port", 0, "HTTP server port (default 8787, env PORT)")
	cmd.Flags().Int("grpc-port", 0, "gRPC server port (default 8788, env GRPC_PORT)")
	cmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	cmd.Flags().String("definitions-dir", "", "Directory of definition YAML files to load at startup (env DEFINITIONS_DIR)")
	cmd.Flags().String("data-file", "", "Persist definitions to this bbolt file (env DATA_FILE)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	layout, err := layoutParams(cmd)
	if err != nil {
		return err
	}

	port := envOrDefault("PORT", "8787")
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		port = fmt.Sprintf("%d", v)
	}

	grpcPort := envOrDefault("GRPC_PORT", "8788")
	if v, _ := cmd.Flags().GetInt("grpc-port"); v != 0 {
		grpcPort = fmt.Sprintf("%d", v)
	}

	host := envOrDefault("HOST", "0.0.0.0")
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		host = v
	}

	definitionsDir := os.Getenv("DEFINITIONS_DIR")
	if v, _ := cmd.Flags().GetString("definitions-dir"); v != "" {
		definitionsDir = v
	}

	dataFile := os.Getenv("DATA_FILE")
	if v, _ := cmd.Flags().GetString("data-file"); v != "" {
		dataFile = v
	}

	addr := fmt.Sprintf("%s:%s", host, port)
	grpcAddr := fmt.Sprintf("%s:%s", host, grpcPort)

	s := store.New()
	if dataFile != "" {
		if s, err = store.Open(dataFile); err != nil {
			return err
		}
		log.Printf("Persisting definitions to %s", dataFile)
	}
	defer s.Close()

	catalog := runtime.NewCatalog(s, runtime.NewEngine(nil), layout)
	server := api.New(catalog)

	if definitionsDir != "" {
		if err := server.LoadDir(definitionsDir); err != nil {
			log.Printf("Warning: failed to load definitions directory: %v", err)
		}
	}

	web.New(catalog).Register(server.App())

	grpcServer := grpcapi.New(catalog)
	go func() {
		log.Printf("gRPC server listening on %s", grpcAddr)
		if err := grpcServer.Serve(grpcAddr); err != nil {
			log.Fatalf("gRPC server error: %v", err)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down nilc...")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("nilc listening on %s (word=%d, pointer=%d, %s)", addr, layout.WordSize, layout.PointerSize, layout.ByteOrder)
	if definitionsDir == "" {
		log.Printf("API-only mode (no --definitions-dir specified)")
	}
	return server.Listen(addr)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
