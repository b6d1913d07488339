// cmd/ghoststream/main.go
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"ghoststream/internal/catalog"
	"ghoststream/internal/config"
	"ghoststream/internal/director"
	"ghoststream/internal/session"
	v "ghoststream/internal/version"
	"ghoststream/pkg/jobmgr"
)

func main() {
	log.Printf("[INFO] Starting %v...", v.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		log.Fatal(err)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatal(err)
	}

	dirCfg := director.DefaultConfig()
	dirCfg.MaxWait = cfg.RetryMaxWait
	dirCfg.MinActiveUsers = cfg.MinActiveUsers

	sess := session.New(cat, session.Options{
		Seed:         cfg.Seed,
		Director:     dirCfg,
		BaseChatRate: rate.Limit(cfg.BaseChatRate),
		PlaySfx: func(key, reason string, delay time.Duration) {
			fmt.Printf("  >> play sfx %s (reason=%s delay=%v)\n", key, reason, delay)
		},
		RequestSceneSwitch: func(scene, reason string, delay time.Duration) {
			fmt.Printf("  >> switch scene %s (reason=%s delay=%v)\n", scene, reason, delay)
		},
	})

	jm := jobmgr.NewManager(func(msg string) {
		log.Printf("[LOOP] %s", msg)
	})
	if err := jm.Start(ctx, "clock", func(ctx context.Context) error {
		runClock(ctx, sess, cfg)
		return nil
	}); err != nil {
		log.Fatal(err)
	}
	if err := jm.Start(ctx, "input", func(ctx context.Context) error {
		runInput(ctx, cancel, sess)
		return nil
	}); err != nil {
		log.Fatal(err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...", s)
		cancel()
	case <-ctx.Done():
	}
	// the input loop blocks on stdin and is reaped by process exit
	_ = jm.Stop("clock")
	log.Println("[INFO] ghoststream exited cleanly")
}

// runClock advances the engine and prints drained chat lines.
func runClock(ctx context.Context, sess *session.Session, cfg *config.Config) {
	tick := time.NewTicker(cfg.TickInterval)
	idle := time.NewTicker(cfg.IdleInterval)
	defer tick.Stop()
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			sess.Advance(now)
			for _, line := range sess.DrainOutput() {
				if line.Translation != "" {
					fmt.Printf("  [%s] %s  (%s)\n", line.Type, line.Text, line.Translation)
				} else {
					fmt.Printf("  [%s] %s\n", line.Type, line.Text)
				}
			}
		case now := <-idle.C:
			sess.HandleIdleTick(now)
		}
	}
}

// runInput reads commands and player messages from stdin.
//
//	/event <key>        trigger a story event
//	/scene <key>        report a scene switch
//	/sfx <key>          report a sound effect start
//	/as <user> <text>   send a chat message as user
//	/debug              print the session snapshot
//	/quit
//
// A bare line is sent as the viewer "you".
func runInput(ctx context.Context, cancel context.CancelFunc, sess *session.Session) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		now := time.Now()
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		switch {
		case line == "/quit":
			cancel()
			return
		case line == "/debug":
			fmt.Printf("  %+v\n", sess.DebugSnapshot())
		case strings.HasPrefix(line, "/event "):
			key := strings.TrimSpace(strings.TrimPrefix(line, "/event "))
			res, err := sess.TriggerStoryEvent(key, "you", now)
			if err != nil {
				log.Println("[ERR]", err)
				continue
			}
			if !res.Emitted {
				fmt.Printf("  -- blocked: %s\n", res.Reason)
			}
		case strings.HasPrefix(line, "/scene "):
			sess.HandleSceneSwitch(strings.TrimSpace(strings.TrimPrefix(line, "/scene ")), now)
		case strings.HasPrefix(line, "/sfx "):
			sess.HandleSfxStart(strings.TrimSpace(strings.TrimPrefix(line, "/sfx ")), now)
		case strings.HasPrefix(line, "/as "):
			rest := strings.TrimSpace(strings.TrimPrefix(line, "/as "))
			parts := strings.SplitN(rest, " ", 2)
			if len(parts) == 2 {
				sess.HandleUserMessage(parts[0], parts[1], now)
			}
		default:
			sess.HandleUserMessage("you", line, now)
		}
	}
}
