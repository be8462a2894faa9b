package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lucasmv/licita-radar/internal/models"
	"github.com/pgvector/pgvector-go"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// selectCols is the column list shared by all contract queries.
const selectCols = `id, org_tax_id, org, state, municipality, object_description,
	supplier_tax_id, supplier_name, contracted_value, signing_date,
	publication_date, contract_type, operating_area, keywords`

func scanContract(scan func(dest ...interface{}) error) (models.Contract, error) {
	var c models.Contract
	var municipality, contractType *string
	var signingDate, publicationDate *time.Time

	err := scan(
		&c.ID, &c.OrgTaxID, &c.Org, &c.State, &municipality, &c.ObjectDescription,
		&c.SupplierTaxID, &c.SupplierName, &c.ContractedValue, &signingDate,
		&publicationDate, &contractType, &c.OperatingArea, &c.Keywords,
	)
	if err != nil {
		return c, err
	}

	if municipality != nil {
		c.Municipality = *municipality
	}
	if contractType != nil {
		c.ContractType = *contractType
	}
	if signingDate != nil {
		c.SigningDate = *signingDate
	}
	if publicationDate != nil {
		c.PublicationDate = *publicationDate
	}

	return c, nil
}

// InsertContractIfAbsent appends a contract unless one with the same ID
// is already stored. The ON CONFLICT clause makes the identity check
// atomic per record, so concurrent ingestions cannot double-insert.
func (s *Store) InsertContractIfAbsent(ctx context.Context, c models.Contract) (bool, error) {
	var embedding interface{}
	if len(c.Embedding) > 0 {
		embedding = pgvector.NewVector(c.Embedding)
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO contracts (
			id, org_tax_id, org, state, municipality, object_description,
			supplier_tax_id, supplier_name, contracted_value, signing_date,
			publication_date, contract_type, operating_area, keywords, embedding
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15
		)
		ON CONFLICT (id) DO NOTHING
	`,
		c.ID, c.OrgTaxID, c.Org, c.State, nilIfEmpty(c.Municipality), c.ObjectDescription,
		c.SupplierTaxID, c.SupplierName, c.ContractedValue, nilIfZeroTime(c.SigningDate),
		nilIfZeroTime(c.PublicationDate), nilIfEmpty(c.ContractType), c.OperatingArea, c.Keywords, embedding,
	)
	if err != nil {
		return false, fmt.Errorf("insert contract failed: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListContracts returns stored contracts, optionally narrowed by state
// and contracting organization. Satisfies market.ContractLister.
func (s *Store) ListContracts(ctx context.Context, state, orgTaxID string) ([]models.Contract, error) {
	where, args := buildContractWhere(ContractListParams{State: state, OrgTaxID: orgTaxID})

	sql := fmt.Sprintf("SELECT %s FROM contracts %s ORDER BY publication_date DESC NULLS LAST, id", selectCols, where)
	return s.queryContracts(ctx, sql, args)
}

// ContractListParams filters the paginated listing endpoint.
type ContractListParams struct {
	State    string
	OrgTaxID string
	Area     string
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// ContractListResult carries one page plus the unpaginated total.
type ContractListResult struct {
	Contracts []models.Contract `json:"contracts"`
	Total     int               `json:"total"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

func buildContractWhere(params ContractListParams) (string, []interface{}) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	if params.State != "" {
		where += fmt.Sprintf(" AND state = $%d", argIdx)
		args = append(args, params.State)
		argIdx++
	}
	if params.OrgTaxID != "" {
		where += fmt.Sprintf(" AND org_tax_id = $%d", argIdx)
		args = append(args, params.OrgTaxID)
		argIdx++
	}
	if params.Area != "" {
		where += fmt.Sprintf(" AND operating_area = $%d", argIdx)
		args = append(args, params.Area)
		argIdx++
	}
	if params.From != nil {
		where += fmt.Sprintf(" AND publication_date >= $%d", argIdx)
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		where += fmt.Sprintf(" AND publication_date <= $%d", argIdx)
		args = append(args, *params.To)
		argIdx++
	}

	return where, args
}

func (s *Store) ListContractsPage(ctx context.Context, params ContractListParams) (*ContractListResult, error) {
	if params.Limit <= 0 || params.Limit > 200 {
		params.Limit = 50
	}

	where, args := buildContractWhere(params)

	var total int
	countSQL := "SELECT COUNT(*) FROM contracts " + where
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	sql := fmt.Sprintf(
		"SELECT %s FROM contracts %s ORDER BY publication_date DESC NULLS LAST, id LIMIT $%d OFFSET $%d",
		selectCols, where, len(args)+1, len(args)+2,
	)
	args = append(args, params.Limit, params.Offset)

	contracts, err := s.queryContracts(ctx, sql, args)
	if err != nil {
		return nil, err
	}

	return &ContractListResult{
		Contracts: contracts,
		Total:     total,
		Limit:     params.Limit,
		Offset:    params.Offset,
	}, nil
}

// ListContractsByArea returns every contract currently carrying the
// given operating area (used by the recategorization pass).
func (s *Store) ListContractsByArea(ctx context.Context, area string) ([]models.Contract, error) {
	sql := fmt.Sprintf("SELECT %s FROM contracts WHERE operating_area = $1 ORDER BY id", selectCols)
	return s.queryContracts(ctx, sql, []interface{}{area})
}

// UpdateContractArea rewrites only the operating area of one record.
func (s *Store) UpdateContractArea(ctx context.Context, id, area string) error {
	_, err := s.pool.Exec(ctx, "UPDATE contracts SET operating_area = $1 WHERE id = $2", area, id)
	if err != nil {
		return fmt.Errorf("update area failed: %w", err)
	}
	return nil
}

// SimilarContracts ranks stored contracts by embedding distance to the
// query vector. Contracts without an embedding are excluded.
func (s *Store) SimilarContracts(ctx context.Context, embedding []float32, limit int) ([]models.Contract, error) {
	if limit <= 0 {
		limit = 20
	}

	sql := fmt.Sprintf(`
		SELECT %s FROM contracts
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	`, selectCols)

	return s.queryContracts(ctx, sql, []interface{}{pgvector.NewVector(embedding), limit})
}

// ContractStats returns the count and publication-date span of the whole
// store. Satisfies historico.ContractStore.
func (s *Store) ContractStats(ctx context.Context) (int, time.Time, time.Time, error) {
	var total int
	var start, end *time.Time

	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*), MIN(publication_date), MAX(publication_date) FROM contracts",
	).Scan(&total, &start, &end)
	if err != nil {
		return 0, time.Time{}, time.Time{}, fmt.Errorf("contract stats failed: %w", err)
	}

	var periodStart, periodEnd time.Time
	if start != nil {
		periodStart = *start
	}
	if end != nil {
		periodEnd = *end
	}
	return total, periodStart, periodEnd, nil
}

func (s *Store) queryContracts(ctx context.Context, sql string, args []interface{}) ([]models.Contract, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var contracts []models.Contract
	for rows.Next() {
		c, err := scanContract(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return contracts, nil
}

// CreateIngestRun records the start of one source ingestion pass.
func (s *Store) CreateIngestRun(ctx context.Context, sourceID string) (uuid.UUID, error) {
	runID := uuid.New()
	_, err := s.pool.Exec(ctx,
		"INSERT INTO ingest_runs (run_id, source_id, status) VALUES ($1, $2, 'running')",
		runID, sourceID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create ingest run failed: %w", err)
	}
	return runID, nil
}

// FinishIngestRun closes a run with its final counters.
func (s *Store) FinishIngestRun(ctx context.Context, runID uuid.UUID, status string, found, added, duplicates, errCount int, duration time.Duration) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE ingest_runs SET
			status = $1,
			items_found = $2,
			items_added = $3,
			duplicates = $4,
			errors = $5,
			completed_at = NOW(),
			details = $6
		WHERE run_id = $7`,
		status, found, added, duplicates, errCount,
		fmt.Sprintf(`{"duration_ms": %d}`, duration.Milliseconds()),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish ingest run failed: %w", err)
	}
	return nil
}

// nilIfEmpty returns nil for empty strings so NULL is stored in DB.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nilIfZeroTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
