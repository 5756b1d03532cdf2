package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	"github.com/Pathfinder132/SkillSwap/internal/app"
	"github.com/Pathfinder132/SkillSwap/internal/backend"
	"github.com/Pathfinder132/SkillSwap/internal/config"
	"github.com/Pathfinder132/SkillSwap/internal/realtime"
	"github.com/Pathfinder132/SkillSwap/internal/session"
	"github.com/Pathfinder132/SkillSwap/internal/stats"
	"github.com/Pathfinder132/SkillSwap/internal/types"
)

var (
	dsn               string
	realtimeURL       string
	accessToken       string
	pollInterval      time.Duration
	searchWindow      time.Duration
	reconcileInterval time.Duration
	debugAddr         string
)

// consoleUI surfaces session events on the process log. A graphical
// frontend would implement app.UI instead.
type consoleUI struct {
	log *log.Logger
}

func (u *consoleUI) NotifyOutcome(outcome types.MatchOutcome) {
	switch outcome.State {
	case types.MatchMatched:
		u.log.Printf("matched with %q, conversation %d", outcome.PeerUsername, outcome.ConversationId)
	case types.MatchSuperseded:
		u.log.Println("you already have a conversation with your match")
	case types.MatchExhausted:
		u.log.Println("no match yet, your request stays open")
	}
}

func (u *consoleUI) HistoryLoaded(conversationId int, messages []types.Message) {
	u.log.Printf("conversation %d: %d messages", conversationId, len(messages))
}

func (u *consoleUI) MessageAdded(conversationId int, msg types.Message) {
	u.log.Printf("conversation %d: message from %d", conversationId, msg.SenderId)
}

func (u *consoleUI) MessageRetracted(conversationId int, tempId, restoredInput string) {
	u.log.Printf("conversation %d: send failed, input restored", conversationId)
}

func (u *consoleUI) ConversationGone(conversationId int) {
	u.log.Printf("conversation %d removed", conversationId)
}

func main() {
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "backend connection string")
	flag.StringVar(&realtimeURL, "realtime-url", "ws://localhost:4000/realtime", "backend change feed URL")
	flag.StringVar(&accessToken, "token", os.Getenv("SKILLSWAP_TOKEN"), "backend access token")
	flag.DurationVar(&pollInterval, "poll-interval", 2*time.Second, "match request poll interval")
	flag.DurationVar(&searchWindow, "search-window", 30*time.Second, "total match search duration")
	flag.DurationVar(&reconcileInterval, "reconcile-interval", time.Minute, "unread recount interval, 0 disables")
	flag.StringVar(&debugAddr, "debug-addr", "localhost:6060", "debug endpoint address")
	flag.Parse()

	logger := log.New(os.Stderr, "[skillswap] ", log.LstdFlags)

	cfg, err := config.NewConfig(dsn, realtimeURL, accessToken, pollInterval, searchWindow, reconcileInterval, debugAddr)
	if err != nil {
		logger.Fatal("config:", err)
	}

	store, err := backend.NewPgStore(cfg.BackendDSN)
	if err != nil {
		logger.Fatal("backend open:", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Println("backend close:", err)
		}
	}()

	mux := http.NewServeMux()
	statsUpdater := stats.NewStatsUpdater(mux)
	statsUpdater.Run()
	defer statsUpdater.Stop()

	debugSrv := &http.Server{
		Addr:    cfg.DebugAddr,
		Handler: handlers.CombinedLoggingHandler(os.Stderr, mux),
	}
	go func() {
		if err := debugSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Println("debug server:", err)
		}
	}()
	defer debugSrv.Close()

	feed, err := realtime.NewConn(cfg.RealtimeURL, cfg.AccessToken, logger, statsUpdater)
	if err != nil {
		logger.Fatal("realtime connect:", err)
	}
	defer feed.Close()

	sess, err := session.Establish(store, cfg.AccessToken)
	if err != nil {
		logger.Fatal("session:", err)
	}
	logger.Printf("signed in as %q", sess.Username)

	client := app.New(logger, store, feed, statsUpdater, sess, &consoleUI{log: logger}, cfg)
	if err := client.Start(); err != nil {
		logger.Fatal("start session:", err)
	}
	defer client.Shutdown()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	logger.Printf("received signal: %s", sig)
}
