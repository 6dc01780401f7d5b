package voucher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository loads voucher rules and records redemptions.
type Repository interface {
	GetByCode(ctx context.Context, code string) (Rule, error)
	// IncrementUsage records one use of code. It fails with ErrUsageLimitReached
	// instead of exceeding the rule's limit.
	IncrementUsage(ctx context.Context, code string) error
	// ReleaseUsage gives back a use recorded for an order that was never stored.
	ReleaseUsage(ctx context.Context, code string) error
}

// MemoryRepository keeps rules in process.
type MemoryRepository struct {
	mu    sync.Mutex
	rules map[string]Rule
}

// NewMemoryRepository returns a repository holding rules keyed by upper-cased code.
func NewMemoryRepository(rules ...Rule) *MemoryRepository {
	m := &MemoryRepository{rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		m.rules[normalizeCode(r.Code)] = r
	}
	return m
}

// GetByCode returns the rule for code.
func (m *MemoryRepository) GetByCode(_ context.Context, code string) (Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[normalizeCode(code)]
	if !ok {
		return Rule{}, ErrNotFound
	}
	return r, nil
}

// IncrementUsage bumps the used count of code while it is under the usage limit.
func (m *MemoryRepository) IncrementUsage(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := normalizeCode(code)
	r, ok := m.rules[key]
	if !ok {
		return ErrNotFound
	}
	if r.UsageLimit != nil && *r.UsageLimit >= 0 && r.UsedCount >= *r.UsageLimit {
		return ErrUsageLimitReached
	}
	r.UsedCount++
	m.rules[key] = r
	return nil
}

// ReleaseUsage decrements the used count of code, never below zero.
func (m *MemoryRepository) ReleaseUsage(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := normalizeCode(code)
	r, ok := m.rules[key]
	if !ok {
		return ErrNotFound
	}
	if r.UsedCount > 0 {
		r.UsedCount--
	}
	m.rules[key] = r
	return nil
}

// PGRepository reads vouchers from Postgres.
type PGRepository struct {
	Pool *pgxpool.Pool
}

// GetByCode returns the rule for code.
func (r PGRepository) GetByCode(ctx context.Context, code string) (Rule, error) {
	var (
		rule       Rule
		value      string
		minSpend   string
		usageLimit *int32
		validFrom  *time.Time
		validTo    *time.Time
	)
	err := r.Pool.QueryRow(ctx, `
		SELECT code, kind, value::text, percent_bps, min_spend::text, usage_limit, used_count,
		       valid_from, valid_to, coalesce(product_ids::text[], '{}')
		FROM vouchers WHERE upper(code) = $1`, normalizeCode(code)).
		Scan(&rule.Code, &rule.Kind, &value, &rule.PercentBps, &minSpend, &usageLimit, &rule.UsedCount,
			&validFrom, &validTo, &rule.ProductIDs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, ErrNotFound
		}
		return Rule{}, fmt.Errorf("get voucher: %w", err)
	}
	if rule.Value, err = decimal.NewFromString(value); err != nil {
		return Rule{}, fmt.Errorf("voucher %s value: %w", rule.Code, err)
	}
	if rule.MinSpend, err = decimal.NewFromString(minSpend); err != nil {
		return Rule{}, fmt.Errorf("voucher %s min spend: %w", rule.Code, err)
	}
	rule.UsageLimit = usageLimit
	rule.ValidFrom = validFrom
	rule.ValidTo = validTo
	return rule, nil
}

// IncrementUsage bumps the used count of code in a single conditional update, so
// concurrent checkouts cannot push it past usage_limit.
func (r PGRepository) IncrementUsage(ctx context.Context, code string) error {
	key := normalizeCode(code)
	tag, err := r.Pool.Exec(ctx, `
		UPDATE vouchers SET used_count = used_count + 1
		WHERE upper(code) = $1 AND (usage_limit IS NULL OR usage_limit < 0 OR used_count < usage_limit)`, key)
	if err != nil {
		return fmt.Errorf("increment voucher usage: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vouchers WHERE upper(code) = $1)`, key).Scan(&exists); err != nil {
		return fmt.Errorf("increment voucher usage: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrUsageLimitReached
}

// ReleaseUsage decrements the used count of code, never below zero.
func (r PGRepository) ReleaseUsage(ctx context.Context, code string) error {
	_, err := r.Pool.Exec(ctx, `
		UPDATE vouchers SET used_count = used_count - 1
		WHERE upper(code) = $1 AND used_count > 0`, normalizeCode(code))
	if err != nil {
		return fmt.Errorf("release voucher usage: %w", err)
	}
	return nil
}

// Upsert writes a rule, keeping the used count of an existing code.
func (r PGRepository) Upsert(ctx context.Context, rule Rule) error {
	var productIDs []string
	if len(rule.ProductIDs) > 0 {
		productIDs = rule.ProductIDs
	}
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO vouchers (code, kind, value, percent_bps, min_spend, usage_limit, valid_from, valid_to, product_ids)
		VALUES ($1, $2, $3::numeric, $4, $5::numeric, $6, $7, $8, $9::text[]::uuid[])
		ON CONFLICT (code) DO UPDATE SET
			kind = EXCLUDED.kind,
			value = EXCLUDED.value,
			percent_bps = EXCLUDED.percent_bps,
			min_spend = EXCLUDED.min_spend,
			usage_limit = EXCLUDED.usage_limit,
			valid_from = EXCLUDED.valid_from,
			valid_to = EXCLUDED.valid_to,
			product_ids = EXCLUDED.product_ids`,
		normalizeCode(rule.Code), rule.Kind, rule.Value.String(), rule.PercentBps, rule.MinSpend.String(),
		rule.UsageLimit, rule.ValidFrom, rule.ValidTo, productIDs)
	if err != nil {
		return fmt.Errorf("upsert voucher %s: %w", rule.Code, err)
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
