// Command cachenode is a minimal RESP (Redis protocol) front end wired to
// the cache engine: a concrete stand-in for spec.md's "command dispatch /
// wire layer" external collaborator. It decodes SET/GET/DEL into
// cache.IOAttr and Manager.Write/Read/Delete calls and replies with RESP
// status/bulk/error responses.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tidwall/redcon"

	"github.com/shardnode/cachekit/cache"
	"github.com/shardnode/cachekit/config"
	"github.com/shardnode/cachekit/internal/telemetry"
	"github.com/shardnode/cachekit/metrics/prom"
)

var (
	addr       = flag.String("addr", ":6380", "RESP listen address")
	metricAddr = flag.String("metric_addr", ":9101", "Prometheus /metrics listen address")
)

func main() {
	logger := telemetry.Init()

	opt := config.Load()
	opt.Logger = logger
	opt.Metrics = prom.New(prometheus.DefaultRegisterer, "cachekit", "node", nil)

	engine, err := cache.NewManager(opt)
	if err != nil {
		logger.Error("cache.NewManager failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(*metricAddr, mux); err != nil {
			logger.Warn("metrics listener exited", "error", err)
		}
	}()

	srv := redcon.NewServer(*addr, handler(engine, logger),
		func(conn redcon.Conn) bool { return true },
		func(conn redcon.Conn, err error) {})
	go func() {
		logger.Info("cachenode listening", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil {
			logger.Error("redcon server exited", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	if err := engine.Shutdown(context.Background()); err != nil {
		logger.Error("engine shutdown failed", "error", err)
	}
	_ = srv.Close()
}

func handler(engine cache.Engine, logger *slog.Logger) func(redcon.Conn, redcon.Command) {
	return func(conn redcon.Conn, cmd redcon.Command) {
		ctx := context.Background()
		switch string(bytesToUpper(cmd.Args[0])) {
		case "PING":
			conn.WriteString("PONG")
		case "SET":
			handleSet(ctx, engine, conn, cmd)
		case "GET":
			handleGet(ctx, engine, conn, cmd)
		case "DEL":
			handleDel(ctx, engine, conn, cmd)
		default:
			conn.WriteError("ERR unknown command '" + string(cmd.Args[0]) + "'")
		}
	}
}

func handleSet(ctx context.Context, engine cache.Engine, conn redcon.Conn, cmd redcon.Command) {
	if len(cmd.Args) < 3 {
		conn.WriteError("ERR wrong number of arguments for 'set'")
		return
	}
	id := toID(cmd.Args[1])
	payload := cmd.Args[2]
	attr := &cache.IOAttr{Size: uint64(len(payload)), Flags: cache.FlagCache}

	for i := 3; i < len(cmd.Args); i++ {
		if string(bytesToUpper(cmd.Args[i])) == "EX" && i+1 < len(cmd.Args) {
			secs, err := strconv.ParseUint(string(cmd.Args[i+1]), 10, 64)
			if err != nil {
				conn.WriteError("ERR invalid EX value")
				return
			}
			attr.Start = secs
			i++
		}
	}

	if err := engine.Write(ctx, id, attr, payload); err != nil {
		conn.WriteError("ERR " + err.Error())
		return
	}
	conn.WriteString("OK")
}

func handleGet(ctx context.Context, engine cache.Engine, conn redcon.Conn, cmd redcon.Command) {
	if len(cmd.Args) != 2 {
		conn.WriteError("ERR wrong number of arguments for 'get'")
		return
	}
	id := toID(cmd.Args[1])
	snap, err := engine.Read(ctx, id, &cache.IOAttr{Flags: cache.FlagCache})
	if err != nil {
		conn.WriteNull()
		return
	}
	conn.WriteBulk(snap.Bytes())
}

func handleDel(ctx context.Context, engine cache.Engine, conn redcon.Conn, cmd redcon.Command) {
	if len(cmd.Args) != 2 {
		conn.WriteError("ERR wrong number of arguments for 'del'")
		return
	}
	id := toID(cmd.Args[1])
	if err := engine.Delete(ctx, id, &cache.IOAttr{}); err != nil {
		if err == cache.ErrNotFound {
			conn.WriteInt(0)
			return
		}
		conn.WriteError("ERR " + err.Error())
		return
	}
	conn.WriteInt(1)
}

// toID maps an arbitrary RESP key onto a fixed-width Identifier by
// copying in its leading bytes; a real deployment would hash the key,
// but that is the dispatcher's concern, not the cache engine's.
func toID(key []byte) cache.Identifier {
	var id cache.Identifier
	copy(id[:], key)
	return id
}

func bytesToUpper(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return out
}
