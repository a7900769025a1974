package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config defines the ledger backend selection.
type Config struct {
	// Backend selects the ledger type: "memory" or "redis".
	Backend string `json:"backend"`
	Redis   struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Backend != "memory" && c.Backend != "redis" {
		return fmt.Errorf("unknown ledger backend %s", c.Backend)
	}
	return nil
}

// RedisLedger stores balances and a transaction log in Redis. Keys are
// requester-scoped: ledger:<id>:balance, ledger:<id>:cash, ledger:<id>:tx.
type RedisLedger struct {
	cli *redis.Client
}

// NewRedisLedger connects to Redis and verifies the connection.
func NewRedisLedger(ctx context.Context, cfg Config) (*RedisLedger, error) {
	cli := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisLedger{cli: cli}, nil
}

func balanceKey(id string) string { return "ledger:" + id + ":balance" }
func cashKey(id string) string    { return "ledger:" + id + ":cash" }
func txKey(id string) string      { return "ledger:" + id + ":tx" }

func (l *RedisLedger) read(ctx context.Context, key string) (int, error) {
	v, err := l.cli.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

func (l *RedisLedger) Balance(ctx context.Context, requesterID string) (int, error) {
	return l.read(ctx, balanceKey(requesterID))
}

func (l *RedisLedger) CashBalance(ctx context.Context, requesterID string) (int, error) {
	return l.read(ctx, cashKey(requesterID))
}

func (l *RedisLedger) debit(ctx context.Context, requesterID, key, account string, amount int, memo string) error {
	if err := l.cli.DecrBy(ctx, key, int64(amount)).Err(); err != nil {
		return fmt.Errorf("debit %s: %w", key, err)
	}
	entry, err := json.Marshal(Transaction{RequesterID: requesterID, Amount: -amount, Memo: memo, Account: account, Time: time.Now()})
	if err != nil {
		return err
	}
	return l.cli.LPush(ctx, txKey(requesterID), entry).Err()
}

func (l *RedisLedger) DebitBalance(ctx context.Context, requesterID string, amount int, memo string) error {
	return l.debit(ctx, requesterID, balanceKey(requesterID), "balance", amount, memo)
}

func (l *RedisLedger) DebitCash(ctx context.Context, requesterID string, amount int, memo string) error {
	return l.debit(ctx, requesterID, cashKey(requesterID), "cash", amount, memo)
}

// CreditBalance adds to the requester's online balance.
func (l *RedisLedger) CreditBalance(ctx context.Context, requesterID string, amount int) error {
	return l.cli.IncrBy(ctx, balanceKey(requesterID), int64(amount)).Err()
}

// CreditCash adds to the requester's cash balance.
func (l *RedisLedger) CreditCash(ctx context.Context, requesterID string, amount int) error {
	return l.cli.IncrBy(ctx, cashKey(requesterID), int64(amount)).Err()
}

// Close closes the underlying client.
func (l *RedisLedger) Close() error { return l.cli.Close() }
