// Package journal keeps an append-only record of produced quotes.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/autocredit-bot/agent/contract"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 100
)

var ErrNilDB = errors.New("journal database is nil")

// QuoteRecord is one row of the loan_quotes table.
type QuoteRecord struct {
	bun.BaseModel `bun:"table:loan_quotes,alias:lq"`

	ID                 int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID             int64     `bun:"user_id,notnull" json:"user_id"`
	Brand              string    `bun:"brand" json:"brand,omitempty"`
	Bank               string    `bun:"bank,notnull" json:"bank"`
	CarPrice           float64   `bun:"car_price,notnull" json:"car_price"`
	FirstPayment       float64   `bun:"first_payment,notnull" json:"first_payment"`
	DownPaymentPercent float64   `bun:"down_payment_percent,notnull" json:"down_payment_percent"`
	TermMonths         int       `bun:"term_months,notnull" json:"term_months"`
	QuoteText          string    `bun:"quote_text,notnull" json:"quote_text"`
	CreatedAt          time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

func NewRecord(userID int64, q contractx.QuoteSummary, now time.Time) QuoteRecord {
	return QuoteRecord{
		UserID:             userID,
		Brand:              string(q.Brand),
		Bank:               string(q.Bank),
		CarPrice:           q.CarPrice,
		FirstPayment:       q.FirstPayment,
		DownPaymentPercent: q.DownPaymentPercent,
		TermMonths:         q.TermMonths,
		QuoteText:          q.Quote,
		CreatedAt:          now.UTC(),
	}
}

// Journal records quotes and lists a user's latest ones.
type Journal interface {
	Record(ctx context.Context, userID int64, q contractx.QuoteSummary) error
	Recent(ctx context.Context, userID int64, limit int) ([]QuoteRecord, error)
}

type BunJournal struct {
	db  *bun.DB
	now func() time.Time
}

var _ Journal = (*BunJournal)(nil)

func NewBunJournal(db *bun.DB) (*BunJournal, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	return &BunJournal{db: db, now: time.Now}, nil
}

// InitSchema creates the table and its user index when missing.
func (j *BunJournal) InitSchema(ctx context.Context) error {
	if _, err := j.createTableQuery().Exec(ctx); err != nil {
		return fmt.Errorf("create loan_quotes: %w", err)
	}
	if _, err := j.createIndexQuery().Exec(ctx); err != nil {
		return fmt.Errorf("create loan_quotes index: %w", err)
	}
	return nil
}

func (j *BunJournal) Record(ctx context.Context, userID int64, q contractx.QuoteSummary) error {
	rec := NewRecord(userID, q, j.now())
	if _, err := j.insertQuery(&rec).Exec(ctx); err != nil {
		return fmt.Errorf("insert quote for user %d: %w", userID, err)
	}
	return nil
}

func (j *BunJournal) Recent(ctx context.Context, userID int64, limit int) ([]QuoteRecord, error) {
	var recs []QuoteRecord
	if err := j.recentQuery(&recs, userID, limit).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select quotes for user %d: %w", userID, err)
	}
	return recs, nil
}

func (j *BunJournal) createTableQuery() *bun.CreateTableQuery {
	return j.db.NewCreateTable().Model((*QuoteRecord)(nil)).IfNotExists()
}

func (j *BunJournal) createIndexQuery() *bun.CreateIndexQuery {
	return j.db.NewCreateIndex().
		Model((*QuoteRecord)(nil)).
		Index("loan_quotes_user_id_created_at_idx").
		Column("user_id", "created_at").
		IfNotExists()
}

func (j *BunJournal) insertQuery(rec *QuoteRecord) *bun.InsertQuery {
	return j.db.NewInsert().Model(rec)
}

func (j *BunJournal) recentQuery(dst *[]QuoteRecord, userID int64, limit int) *bun.SelectQuery {
	return j.db.NewSelect().
		Model(dst).
		Where("user_id = ?", userID).
		OrderExpr("created_at DESC, id DESC").
		Limit(clampLimit(limit))
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultRecentLimit
	case limit > maxRecentLimit:
		return maxRecentLimit
	default:
		return limit
	}
}

// Noop drops every record. It is used when no database is configured.
type Noop struct{}

var _ Journal = Noop{}

func (Noop) Record(context.Context, int64, contractx.QuoteSummary) error {
	return nil
}

func (Noop) Recent(context.Context, int64, int) ([]QuoteRecord, error) {
	return nil, nil
}
