// stronglytyped is a two-player typing race over a public message relay.
// One player hosts and shares the game code out-of-band; the other joins
// with it. No port forwarding, no direct peer connectivity.
//
// Exit statuses:
//
//	0  race completed normally
//	1  relay unreachable or other transport failure
//	2  cancelled by the user
//	3  handshake timed out (opponent not found)
//	4  session protocol failure (passage mismatch)
//	5  terminal setup failure
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Matthew-Oliver97/StronglyTyped/internal/config"
	"github.com/Matthew-Oliver97/StronglyTyped/internal/leaderboard"
	"github.com/Matthew-Oliver97/StronglyTyped/internal/passage"
	"github.com/Matthew-Oliver97/StronglyTyped/internal/protocol"
	"github.com/Matthew-Oliver97/StronglyTyped/internal/race"
	"github.com/Matthew-Oliver97/StronglyTyped/internal/relay"
	"github.com/Matthew-Oliver97/StronglyTyped/internal/term"
)

const (
	exitOK        = 0
	exitTransport = 1
	exitCancelled = 2
	exitTimeout   = 3
	exitProtocol  = 4
	exitTerminal  = 5
)

const maxNameLen = 15

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	configPath := flag.String("config", "", "path to YAML config file")
	transport := flag.String("transport", "", "relay transport: nats or ws")
	relayURL := flag.String("relay", "", "NATS relay URL")
	wsURL := flag.String("ws", "", "relayd WebSocket URL")
	name := flag.String("name", "", "player name (skips the prompt)")
	passageIdx := flag.Int("passage", -1, "passage index for deterministic demos")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return exitTransport
	}
	if *transport != "" {
		cfg.Transport = *transport
	}
	if *relayURL != "" {
		cfg.RelayURL = *relayURL
	}
	if *wsURL != "" {
		cfg.WSURL = *wsURL
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return exitTransport
	}

	setupLogging(cfg.LogFile)

	reader := bufio.NewReader(os.Stdin)
	playerName := strings.TrimSpace(*name)
	if playerName == "" {
		playerName = promptName(reader)
	}
	if r := []rune(playerName); len(r) > maxNameLen {
		playerName = string(r[:maxNameLen])
	}

	screen := term.NewScreen(os.Stdout)
	for {
		fmt.Println("\nStronglyTyped")
		fmt.Println("1. Create Game")
		fmt.Println("2. Join Game")
		fmt.Println("3. Leaderboard")
		fmt.Println("4. Quit")
		fmt.Print("> ")
		choice, err := reader.ReadString('\n')
		if err != nil {
			return exitOK
		}
		switch strings.TrimSpace(choice) {
		case "1":
			return runHost(cfg, screen, playerName, *passageIdx)
		case "2":
			return runJoin(cfg, screen, reader, playerName)
		case "3":
			entries, err := leaderboard.Load(cfg.LeaderboardFile)
			if err != nil {
				log.Warn().Err(err).Msg("could not load leaderboard")
			}
			screen.DrawLeaderboard(entries)
		case "4", "q":
			return exitOK
		}
	}
}

func setupLogging(path string) {
	if path == "" {
		log.Logger = zerolog.New(io.Discard)
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		// Stdout belongs to the renderer; without a file we just go quiet.
		log.Logger = zerolog.New(io.Discard)
		return
	}
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func promptName(reader *bufio.Reader) string {
	fmt.Printf("Enter your name (max %d chars): ", maxNameLen)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "Player"
	}
	name := strings.TrimSpace(line)
	if name == "" {
		return "Player"
	}
	return name
}

func dialRelay(ctx context.Context, cfg config.Config) (relay.Conn, error) {
	switch cfg.Transport {
	case config.TransportWS:
		return relay.DialWS(ctx, cfg.WSURL)
	default:
		return relay.DialNATS(cfg.RelayURL)
	}
}

func runHost(cfg config.Config, screen *term.Screen, name string, passageIdx int) int {
	text, ok := passage.At(passageIdx)
	if !ok {
		text = passage.Random()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := dialRelay(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not reach the relay:", err)
		return exitTransport
	}
	defer conn.Close()

	ctrl := race.NewController(conn, clockwork.NewRealClock(), raceConfig(cfg), screen.Draw)
	code, err := ctrl.Host(name, text)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not create game:", err)
		return exitTransport
	}

	fmt.Println("\nGame Created!")
	fmt.Println("Share this code with your friend:")
	fmt.Printf("\n    %s\n\n", protocol.SessionTopic(code))
	fmt.Println("Waiting for them to join... (Ctrl-C to cancel)")

	if err := ctrl.AwaitPeer(ctx); err != nil {
		return reportTerminal(err)
	}
	return runRace(ctx, cfg, screen, ctrl)
}

func runJoin(cfg config.Config, screen *term.Screen, reader *bufio.Reader, name string) int {
	fmt.Print("Enter the game code from your friend: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return exitCancelled
	}
	code, err := protocol.ParseGameCode(line)
	if err != nil {
		fmt.Fprintln(os.Stderr, "that does not look like a game code")
		return exitProtocol
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := dialRelay(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "could not reach the relay:", err)
		return exitTransport
	}
	defer conn.Close()

	ctrl := race.NewController(conn, clockwork.NewRealClock(), raceConfig(cfg), screen.Draw)
	if err := ctrl.Join(code, name); err != nil {
		fmt.Fprintln(os.Stderr, "could not join game:", err)
		return exitTransport
	}

	fmt.Printf("Joining game %s, waiting for the host... (Ctrl-C to cancel)\n", code)
	if err := ctrl.AwaitPeer(ctx); err != nil {
		return reportTerminal(err)
	}
	return runRace(ctx, cfg, screen, ctrl)
}

func runRace(ctx context.Context, cfg config.Config, screen *term.Screen, ctrl *race.Controller) int {
	input, err := term.NewInput(os.Stdin)
	if err != nil {
		fmt.Fprintln(os.Stderr, "terminal setup failed:", err)
		return exitTerminal
	}

	runErr := ctrl.Run(ctx, input.Keys())
	input.Restore()
	fmt.Println()

	if runErr != nil {
		return reportTerminal(runErr)
	}

	s := ctrl.Session()
	if s.Winner == s.Local.Role {
		if err := leaderboard.Record(cfg.LeaderboardFile, s.Local.Name, s.Local.WPM, s.Local.Accuracy, s.Local.FinishTime); err != nil {
			log.Warn().Err(err).Msg("could not record score")
		}
	}
	entries, err := leaderboard.Load(cfg.LeaderboardFile)
	if err != nil {
		log.Warn().Err(err).Msg("could not load leaderboard")
	}
	screen.DrawLeaderboard(entries)
	return exitOK
}

// reportTerminal maps a terminal session error onto a one-line message
// and the documented exit status.
func reportTerminal(err error) int {
	switch {
	case errors.Is(err, race.ErrHandshakeTimeout):
		fmt.Fprintln(os.Stderr, "Opponent not found in time. Try sharing the code again.")
		return exitTimeout
	case errors.Is(err, race.ErrCancelled):
		fmt.Fprintln(os.Stderr, "Race cancelled.")
		return exitCancelled
	case errors.Is(err, race.ErrPassageMismatch):
		fmt.Fprintln(os.Stderr, "The two sides disagree on the passage text; session aborted.")
		return exitProtocol
	default:
		fmt.Fprintln(os.Stderr, "Session failed:", err)
		return exitTransport
	}
}

func raceConfig(cfg config.Config) race.Config {
	return race.Config{
		PublishInterval: cfg.PublishInterval,
		HandshakeWait:   cfg.HandshakeWait,
	}
}
