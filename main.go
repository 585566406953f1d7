package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lyrics-sync-go/config"
	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/player"
	"lyrics-sync-go/resolver"
	"lyrics-sync-go/stats"
	"lyrics-sync-go/synchronizer"

	log "github.com/sirupsen/logrus"
)

var conf = config.Get()

var (
	lyricsResolver *resolver.Resolver
	syncer         *synchronizer.Synchronizer
	loop           *eventLoop
	unknownSources []string
)

func init() {
	if conf.Configuration.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(conf.Configuration.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("%s %v", logcolors.LogServer, err)
	}
}

func run(ctx context.Context) error {
	lyricsCache, err := newCache(conf)
	if err != nil {
		return err
	}
	defer lyricsCache.Close()

	statsStore, err := stats.NewStore(conf.Configuration.StatsDBPath, stats.Get())
	if err != nil {
		log.Warnf("%s Stats will not persist: %v", logcolors.LogStats, err)
	} else {
		if err := statsStore.Load(); err != nil {
			log.Warnf("%s Failed to load stats: %v", logcolors.LogStats, err)
		}
		statsStore.StartAutoSave(5 * time.Minute)
		defer statsStore.Close()
	}

	lyricsResolver, unknownSources = newResolver(conf, lyricsCache)
	syncer = newSynchronizer(conf, lyricsResolver)
	loop = newEventLoop(syncer)

	watcher := player.NewWatcher(player.ExecRunner{}, conf.Configuration.PlayerBlacklist, conf.PollInterval())
	go watcher.Run(ctx)
	go loop.Run(ctx, watcher.Events())

	if conf.FeatureFlags.SimpleOutput {
		cues, unsubscribe := syncer.Subscribe()
		defer unsubscribe()
		go renderCues(os.Stdout, cues)
	}

	if !conf.FeatureFlags.EnableHTTP {
		<-ctx.Done()
		log.Infof("%s Shutting down", logcolors.LogServer)
		return nil
	}

	server := &http.Server{
		Addr:              "127.0.0.1:" + conf.Configuration.Port,
		Handler:           newHTTPHandler(conf),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("%s Listening on %s", logcolors.LogServer, server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Infof("%s Shutting down", logcolors.LogServer)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
