package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dealdesk/deal-engine/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates missing tables and indexes. It is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// --- Saved deals ---

const savedDealColumns = `id::TEXT, user_id, address, property_type, units,
	bpo_value::TEXT, strike_price::TEXT, rehab_costs::TEXT, hold_period,
	exit_strategy, sale_price::TEXT, latitude, longitude,
	COALESCE(roi, 0)::TEXT, COALESCE(irr, 0)::TEXT, COALESCE(profit, 0)::TEXT,
	verdict, ai_insights, created_at, updated_at`

func (s *PostgresStore) CreateSavedDeal(ctx context.Context, d *model.SavedDeal) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO saved_deals (id, user_id, address, property_type, units,
		        bpo_value, strike_price, rehab_costs, hold_period, exit_strategy, sale_price,
		        latitude, longitude, roi, irr, profit, verdict, ai_insights, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5,
		         $6::NUMERIC, $7::NUMERIC, $8::NUMERIC, $9, $10, $11::NUMERIC,
		         $12, $13, $14::NUMERIC, $15::NUMERIC, $16::NUMERIC, $17, $18, $19, $20)`,
		d.ID, d.UserID, d.Address, d.PropertyType, d.Units,
		d.BPOValue.String(), d.StrikePrice.String(), d.RehabCosts.String(), d.HoldPeriod, d.ExitStrategy, d.SalePrice.String(),
		d.Latitude, d.Longitude, d.ROI.String(), d.IRR.String(), d.Profit.String(),
		d.Verdict, d.AIInsights, d.CreatedAt, d.UpdatedAt,
	)
	return mapPgError(err, "create saved deal "+d.ID)
}

func (s *PostgresStore) ListSavedDeals(ctx context.Context, userID string) ([]model.SavedDeal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+savedDealColumns+`
		 FROM saved_deals WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list saved deals: %w", err)
	}
	defer rows.Close()

	deals := make([]model.SavedDeal, 0)
	for rows.Next() {
		d, err := scanSavedDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, *d)
	}
	return deals, rows.Err()
}

func (s *PostgresStore) GetSavedDeal(ctx context.Context, userID, id string) (*model.SavedDeal, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+savedDealColumns+` FROM saved_deals WHERE id::TEXT = $1 AND user_id = $2`, id, userID)
	d, err := scanSavedDeal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("saved deal %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get saved deal %s: %w", id, err)
	}
	return d, nil
}

func (s *PostgresStore) DeleteSavedDeal(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM saved_deals WHERE id::TEXT = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete saved deal %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("saved deal %s: %w", id, ErrNotFound)
	}
	return nil
}

// --- Properties ---

const propertyColumns = `id::TEXT, property_id, source, source_loan_number, deal_stage,
	address, city, state, zip_code, county, property_type,
	num_units, bedrooms, bathrooms::TEXT, square_feet, year_built,
	occupancy_status, owner_occupied,
	bpo::TEXT, arv::TEXT, upb::TEXT, strike_price::TEXT, ltv_ratio::TEXT, current_interest_rate::TEXT,
	delinquent_status, foreclosure_flag, bankruptcy_flag,
	estimated_roi::TEXT, estimated_irr::TEXT, projected_hold_period_months, risk_score,
	notes, is_active, created_by, created_at, updated_at`

const upsertPropertySQL = `INSERT INTO properties (id, property_id, source, source_loan_number, deal_stage,
	address, city, state, zip_code, county, property_type,
	num_units, bedrooms, bathrooms, square_feet, year_built,
	occupancy_status, owner_occupied,
	bpo, arv, upb, strike_price, ltv_ratio, current_interest_rate,
	delinquent_status, foreclosure_flag, bankruptcy_flag,
	estimated_roi, estimated_irr, projected_hold_period_months, risk_score,
	notes, is_active, created_by, created_at, updated_at)
 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
	$12, $13, $14::NUMERIC, $15, $16, $17, $18,
	$19::NUMERIC, $20::NUMERIC, $21::NUMERIC, $22::NUMERIC, $23::NUMERIC, $24::NUMERIC,
	$25, $26, $27, $28::NUMERIC, $29::NUMERIC, $30, $31, $32, $33, $34, $35, $35)
 ON CONFLICT (property_id) DO UPDATE SET
	source = EXCLUDED.source, source_loan_number = EXCLUDED.source_loan_number,
	deal_stage = EXCLUDED.deal_stage, address = EXCLUDED.address, city = EXCLUDED.city,
	state = EXCLUDED.state, zip_code = EXCLUDED.zip_code, county = EXCLUDED.county,
	property_type = EXCLUDED.property_type, num_units = EXCLUDED.num_units,
	bedrooms = EXCLUDED.bedrooms, bathrooms = EXCLUDED.bathrooms,
	square_feet = EXCLUDED.square_feet, year_built = EXCLUDED.year_built,
	occupancy_status = EXCLUDED.occupancy_status, owner_occupied = EXCLUDED.owner_occupied,
	bpo = EXCLUDED.bpo, arv = EXCLUDED.arv, upb = EXCLUDED.upb,
	strike_price = EXCLUDED.strike_price, ltv_ratio = EXCLUDED.ltv_ratio,
	current_interest_rate = EXCLUDED.current_interest_rate,
	delinquent_status = EXCLUDED.delinquent_status,
	foreclosure_flag = EXCLUDED.foreclosure_flag, bankruptcy_flag = EXCLUDED.bankruptcy_flag,
	estimated_roi = EXCLUDED.estimated_roi, estimated_irr = EXCLUDED.estimated_irr,
	projected_hold_period_months = EXCLUDED.projected_hold_period_months,
	risk_score = EXCLUDED.risk_score, notes = EXCLUDED.notes,
	is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at`

// UpsertProperties sends the whole batch in one round trip inside a
// transaction, so a batch is written entirely or not at all.
func (s *PostgresStore) UpsertProperties(ctx context.Context, props []model.Property) (int, error) {
	if len(props) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for i := range props {
		p := &props[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		batch.Queue(upsertPropertySQL,
			p.ID, p.PropertyID, p.Source, p.SourceLoanNumber, p.DealStage,
			p.Address, p.City, p.State, p.ZipCode, p.County, p.PropertyType,
			p.NumUnits, p.Bedrooms, nullDecimalArg(p.Bathrooms), p.SquareFeet, p.YearBuilt,
			p.OccupancyStatus, p.OwnerOccupied,
			nullDecimalArg(p.BPO), nullDecimalArg(p.ARV), nullDecimalArg(p.UPB),
			nullDecimalArg(p.StrikePrice), nullDecimalArg(p.LTVRatio), nullDecimalArg(p.CurrentInterestRate),
			p.DelinquentStatus, p.ForeclosureFlag, p.BankruptcyFlag,
			nullDecimalArg(p.EstimatedROI), nullDecimalArg(p.EstimatedIRR), p.HoldPeriodMonths, p.RiskScore,
			p.Notes, p.IsActive, p.CreatedBy, now,
		)
	}

	br := tx.SendBatch(ctx, batch)
	written := 0
	for i := range props {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, mapPgError(err, "upsert property "+props[i].PropertyID)
		}
		written++
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close upsert batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return written, nil
}

func (s *PostgresStore) ListProperties(ctx context.Context) ([]model.Property, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+propertyColumns+`
		 FROM properties WHERE is_active ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	props := make([]model.Property, 0)
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		props = append(props, *p)
	}
	return props, rows.Err()
}

func (s *PostgresStore) GetProperty(ctx context.Context, propertyID string) (*model.Property, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE property_id = $1`, propertyID)
	p, err := scanProperty(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("property %s: %w", propertyID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get property %s: %w", propertyID, err)
	}
	return p, nil
}

// --- Investor funnel ---

func (s *PostgresStore) CreateInvestorLead(ctx context.Context, l *model.InvestorLead) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO investor_leads (id, name, email, phone, accredited_status,
		        investment_amount, investment_tier, experience, timeline,
		        qualified, source, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		l.ID, l.Name, l.Email, l.Phone, l.AccreditedStatus,
		l.InvestmentAmount, l.InvestmentTier, l.Experience, l.Timeline,
		l.Qualified, l.Source, l.Status, l.CreatedAt,
	)
	return mapPgError(err, "create investor lead "+l.Email)
}

// --- Scanning helpers ---

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
func (s *PostgresStore) RecordDeposit(ctx context.Context, email string, amount decimal.Decimal) (*model.InvestorLead, error) {
	var l model.InvestorLead
	var depositAmount *string
	err := s.pool.QueryRow(ctx,
		`UPDATE investor_leads
		    SET deposit_submitted = TRUE, deposit_amount = $2::NUMERIC, deposit_date = $3
		  WHERE email = $1
		 RETURNING id::TEXT, name, email, phone, accredited_status, investment_amount,
		           investment_tier, experience, timeline, qualified, source, status,
		           deposit_submitted, deposit_amount::TEXT, deposit_date, created_at`,
		strings.ToLower(strings.TrimSpace(email)), amount.String(), time.Now().UTC(),
	).Scan(
		&l.ID, &l.Name, &l.Email, &l.Phone, &l.AccreditedStatus, &l.InvestmentAmount,
		&l.InvestmentTier, &l.Experience, &l.Timeline, &l.Qualified, &l.Source, &l.Status,
		&l.DepositSubmitted, &depositAmount, &l.DepositDate, &l.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("investor lead %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("record deposit for %s: %w", email, err)
	}
	l.DepositAmount = parseNullDecimal(depositAmount)
	return &l, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSavedDeal(row rowScanner) (*model.SavedDeal, error) {
	var d model.SavedDeal
	var bpo, strike, rehab, sale, roi, irr, profit string

	if err := row.Scan(&d.ID, &d.UserID, &d.Address, &d.PropertyType, &d.Units,
		&bpo, &strike, &rehab, &d.HoldPeriod,
		&d.ExitStrategy, &sale, &d.Latitude, &d.Longitude,
		&roi, &irr, &profit,
		&d.Verdict, &d.AIInsights, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}

	d.BPOValue, _ = decimal.NewFromString(bpo)
	d.StrikePrice, _ = decimal.NewFromString(strike)
	d.RehabCosts, _ = decimal.NewFromString(rehab)
	d.SalePrice, _ = decimal.NewFromString(sale)
	d.ROI, _ = decimal.NewFromString(roi)
	d.IRR, _ = decimal.NewFromString(irr)
	d.Profit, _ = decimal.NewFromString(profit)
	return &d, nil
}

func scanProperty(row rowScanner) (*model.Property, error) {
	var p model.Property
	var bathrooms, bpo, arv, upb, strike, ltv, rate, roi, irr *string

	if err := row.Scan(&p.ID, &p.PropertyID, &p.Source, &p.SourceLoanNumber, &p.DealStage,
		&p.Address, &p.City, &p.State, &p.ZipCode, &p.County, &p.PropertyType,
		&p.NumUnits, &p.Bedrooms, &bathrooms, &p.SquareFeet, &p.YearBuilt,
		&p.OccupancyStatus, &p.OwnerOccupied,
		&bpo, &arv, &upb, &strike, &ltv, &rate,
		&p.DelinquentStatus, &p.ForeclosureFlag, &p.BankruptcyFlag,
		&roi, &irr, &p.HoldPeriodMonths, &p.RiskScore,
		&p.Notes, &p.IsActive, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	p.Bathrooms = parseNullDecimal(bathrooms)
	p.BPO = parseNullDecimal(bpo)
	p.ARV = parseNullDecimal(arv)
	p.UPB = parseNullDecimal(upb)
	p.StrikePrice = parseNullDecimal(strike)
	p.LTVRatio = parseNullDecimal(ltv)
	p.CurrentInterestRate = parseNullDecimal(rate)
	p.EstimatedROI = parseNullDecimal(roi)
	p.EstimatedIRR = parseNullDecimal(irr)
	return &p, nil
}

func nullDecimalArg(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

func parseNullDecimal(s *string) decimal.NullDecimal {
	if s == nil {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// mapPgError translates unique violations to ErrDuplicate.
func mapPgError(err error, op string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
