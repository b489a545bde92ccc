package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"segugio/internal/audit"
	"segugio/internal/backend"
	"segugio/internal/config"
	"segugio/internal/ens"
	"segugio/internal/group"
	"segugio/internal/groupstore"
	"segugio/internal/price"
	"segugio/internal/relay"
	"segugio/internal/tools"
	"segugio/internal/transport"
	"segugio/internal/transport/discordx"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	store, err := groupstore.Open(cfg.GroupStorePath)
	if err != nil {
		log.WithError(err).Fatal("failed to open group store")
	}
	defer store.Close()

	conversations, closeTransport := buildTransport(cfg)
	if closeTransport != nil {
		defer closeTransport()
	}

	service := relay.NewService(group.NewProvisioner(conversations), store, conversations)

	var hooks tools.Hooks = tools.LogHooks{}
	if cfg.AuditLogPath != "" {
		trail, err := audit.Open(cfg.AuditLogPath)
		if err != nil {
			log.WithError(err).Fatal("failed to open audit trail")
		}
		defer trail.Close()
		hooks = tools.MultiHooks(tools.LogHooks{}, audit.Hooks{Trail: trail})
		log.WithField("path", cfg.AuditLogPath).Info("audit trail enabled")
	}

	dispatcher := tools.NewDispatcher(hooks)
	if err := tools.RegisterSegugioTools(dispatcher, tools.Deps{
		Backend:  backend.NewClient(cfg.BackendURL, cfg.APIKey),
		Resolver: buildResolver(ctx, cfg),
		Groups:   service,
		Price:    price.NewClient(cfg.CoingeckoAPIKey),
	}); err != nil {
		log.WithError(err).Fatal("failed to register tools")
	}

	server := relay.NewServer(relay.Config{
		Service:    service,
		APIKey:     cfg.APIKey,
		Dispatcher: dispatcher,
		BotAddress: cfg.BotAddress,
	})

	httpServer := server.HTTPServer(cfg.RelayAddr())
	go func() {
		log.WithField("addr", cfg.RelayAddr()).Info("relay listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("relay server exited")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("relay shutdown was not clean")
	}
}

// buildTransport picks the messaging binding: discord when configured,
// otherwise the in-process transport for local development.
func buildTransport(cfg config.Config) (transport.Conversations, func() error) {
	if cfg.DiscordToken != "" && cfg.DiscordGuildID != "" {
		binding, err := discordx.New(cfg.DiscordToken, cfg.DiscordGuildID, parseDirectory(os.Getenv("DISCORD_DIRECTORY")))
		if err != nil {
			log.WithError(err).Fatal("failed to open discord transport")
		}
		log.WithField("guild", cfg.DiscordGuildID).Info("using discord transport")
		return binding, binding.Close
	}
	log.Warn("no messaging transport configured, using in-memory groups")
	return transport.NewMemoryConversations(), nil
}

// buildResolver dials the ENS endpoint when one is configured. Without it,
// name resolution is disabled and raw addresses are required.
func buildResolver(ctx context.Context, cfg config.Config) tools.Resolver {
	if cfg.EthRPCURL == "" {
		log.Warn("ETH_RPC_URL not set, ens resolution disabled")
		return nil
	}

	var cache ens.Cache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		cache = ens.NewRedisCache(client, cfg.ENSCacheTTL)
		log.WithField("addr", cfg.RedisAddr).Info("ens cache enabled")
	}

	resolver, err := ens.Dial(ctx, cfg.EthRPCURL, cache)
	if err != nil {
		log.WithError(err).Fatal("failed to dial ethereum rpc")
	}
	return resolver
}

// parseDirectory reads "0xaddr=discordUserID" pairs from a comma-separated
// list.
func parseDirectory(raw string) map[string]string {
	dir := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		dir[parts[0]] = parts[1]
	}
	return dir
}
