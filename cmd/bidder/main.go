// Command bidder is a terminal client for the auction marketplace.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/floroz/gavel-client/internal/backend"
	"github.com/floroz/gavel-client/internal/bidding"
	"github.com/floroz/gavel-client/internal/config"
	"github.com/floroz/gavel-client/internal/detail"
	"github.com/floroz/gavel-client/internal/feed"
	"github.com/floroz/gavel-client/internal/liveupdates"
	"github.com/floroz/gavel-client/internal/session"
)

const usage = `usage: bidder <command> [arguments]

commands:
  login -email <email> -password <password>
  feed
  show <auction-id>
  bid <auction-id> <amount>
  watch <auction-id>
`

type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	session *session.Session
	client  *backend.Client
}

func main() {
	// Diagnostics go to stderr, results to stdout
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(config.Load(), logger)
	if err != nil {
		logger.Error("Failed to initialize client", "error", err)
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "login":
		err = a.login(ctx, args)
	case "feed":
		err = a.feed(ctx)
	case "show":
		err = a.show(ctx, args)
	case "bid":
		err = a.bid(ctx, args)
	case "watch":
		err = a.watch(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	sess := session.New()
	if cfg.AccessToken != "" {
		if err := sess.SignIn(cfg.AccessToken); err != nil {
			return nil, fmt.Errorf("failed to restore session: %w", err)
		}
	}

	client, err := backend.NewClient(cfg.APIURL,
		backend.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		backend.WithTokenSource(sess),
		backend.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, session: sess, client: client}, nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := a.client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := a.session.SignIn(res.AccessToken); err != nil {
		return err
	}

	if user, ok := a.session.User(); ok {
		fmt.Printf("Signed in as %s <%s>\n", user.Name, user.Email)
	}
	fmt.Printf("Token expires %s\n\n", res.ExpiresAt.Local().Format("2006-01-02 15:04"))
	fmt.Printf("export GAVEL_ACCESS_TOKEN=%s\n", res.AccessToken)
	return nil
}

func (a *app) feed(ctx context.Context) error {
	var cache feed.Cache = feed.NewMemoryCache()
	if a.cfg.RedisURL != "" {
		rdb := redis.NewClient(&redis.Options{Addr: a.cfg.RedisURL})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.logger.Warn("Redis connection failed, using in-memory feed cache", "error", err)
		} else {
			cache = feed.NewRedisCache(rdb, "gavel:")
		}
	}

	items, err := feed.NewService(a.client, cache, a.cfg.FeedCacheTTL, a.logger).Home(ctx)
	if err != nil {
		return err
	}
	renderFeed(os.Stdout, items)
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	id, err := auctionArg(args, 1)
	if err != nil {
		return err
	}
	store := detail.NewStore(a.client, a.logger)
	if err := store.Load(ctx, id); err != nil {
		return err
	}
	renderDetail(os.Stdout, store.Snapshot(), bidding.NewSubmitter(a.client, store, a.session, a.logger).Availability())
	return nil
}

func (a *app) bid(ctx context.Context, args []string) error {
	id, err := auctionArg(args, 2)
	if err != nil {
		return err
	}

	store := detail.NewStore(a.client, a.logger)
	submitter := bidding.NewSubmitter(a.client, store, a.session, a.logger)
	if err := store.Load(ctx, id); err != nil {
		return err
	}
	if err := submitter.OpenDialog(); err != nil {
		return err
	}

	placed, err := submitter.Submit(ctx, args[1])
	if placed != nil {
		fmt.Printf("Bid %s placed for %s\n", placed.ID, placed.Amount)
	}
	if err != nil {
		return err
	}
	renderDetail(os.Stdout, store.Snapshot(), submitter.Availability())
	return nil
}

func (a *app) watch(ctx context.Context, args []string) error {
	id, err := auctionArg(args, 1)
	if err != nil {
		return err
	}
	if a.cfg.RabbitMQURL == "" {
		return errors.New("RABBITMQ_URL is not set")
	}

	conn, err := amqp091.Dial(a.cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer conn.Close()

	store := detail.NewStore(a.client, a.logger)
	submitter := bidding.NewSubmitter(a.client, store, a.session, a.logger)

	sub := store.Subscribe(func(snap detail.Snapshot) {
		if snap.State == detail.StateLoaded || snap.State == detail.StateErrored {
			renderDetail(os.Stdout, snap, submitter.Availability())
		}
	})
	defer sub.Unsubscribe()

	consumer := liveupdates.NewConsumer(conn, liveupdates.RefreshOnBid(store, nil, a.logger), a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx)
	})
	g.Go(func() error {
		select {
		case <-consumer.Ready():
		case <-gctx.Done():
			return nil
		}
		return store.Load(gctx, id)
	})

	err = g.Wait()
	store.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func auctionArg(args []string, want int) (uuid.UUID, error) {
	if len(args) != want {
		return uuid.Nil, errors.New(usage)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid auction id %q", args[0])
	}
	return id, nil
}
