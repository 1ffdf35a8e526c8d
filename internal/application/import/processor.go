package importapp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bizlink/backend/internal/domain/partner"
)

// ProcessedBatch is the outcome of resolving staged rows under a commit
// mode. SuccessCount + FailCount == TotalCount, and every successful row
// is a create or an update, so CreatedCount + UpdatedCount == SuccessCount.
// SkippedCount is reserved for future skip policies and stays zero: no
// current mode skips a row, every row resolves to create, update, or error.
type ProcessedBatch struct {
	ToCreate     []*partner.Customer
	ToUpdate     []*partner.Customer
	Errors       []RowError
	TotalCount   int
	SuccessCount int
	FailCount    int
	CreatedCount int
	UpdatedCount int
	SkippedCount int
}

// BatchProcessor resolves staged rows into create and update candidates.
// It borrows the session's rows and snapshot read-only and returns a
// fresh batch; row-level failures never abort the batch.
type BatchProcessor struct {
	codePrefix string
	codeWidth  int
	maxErrors  int
}

// NewBatchProcessor creates a processor. Assigned codes have the form
// prefix + zero-padded sequence number, e.g. "C00042".
func NewBatchProcessor(codePrefix string, codeWidth, maxErrors int) *BatchProcessor {
	if codePrefix == "" {
		codePrefix = "C"
	}
	if codeWidth <= 0 {
		codeWidth = 5
	}
	return &BatchProcessor{codePrefix: codePrefix, codeWidth: codeWidth, maxErrors: maxErrors}
}

// Process re-validates and resolves each row in file order. nextCodeSeq is
// the first free sequence number; the counter is shared across the whole
// call and advances only when a create candidate is produced, so codes
// assigned within one batch never collide with each other.
//
// A business number may be used by at most one row per batch. Later rows
// reusing a number already resolved in this batch fail row-level, which
// keeps the batch satisfiable under the unique index.
func (p *BatchProcessor) Process(rows []partner.CustomerRow, existing map[string]partner.Customer, nextCodeSeq int64, mode Mode, actor string) *ProcessedBatch {
	batch := &ProcessedBatch{
		ToCreate: make([]*partner.Customer, 0),
		ToUpdate: make([]*partner.Customer, 0),
	}
	errs := NewErrorCollection(p.maxErrors)
	seen := make(map[string]bool, len(rows))
	seq := nextCodeSeq

	for _, raw := range rows {
		row := raw.Clean()
		batch.TotalCount++

		if msg := CheckRequired(row); msg != "" {
			errs.Add(NewRowError(row.Line, row.BusinessNumber, row.CompanyName, msg))
			continue
		}

		if seen[row.BusinessNumber] {
			errs.Add(NewRowError(row.Line, row.BusinessNumber, row.CompanyName, MsgBusinessNumberExists))
			continue
		}

		current, exists := existing[row.BusinessNumber]
		if !exists {
			customer, err := partner.NewCustomerFromRow(p.FormatCode(seq), row, actor)
			if err != nil {
				rowErr := NewRowError(row.Line, row.BusinessNumber, row.CompanyName, err.Error())
				rowErr.Detail = fmt.Sprintf("row %d could not be shaped into a customer", row.Line)
				errs.Add(rowErr)
				continue
			}
			seq++
			seen[row.BusinessNumber] = true
			batch.ToCreate = append(batch.ToCreate, customer)
			batch.CreatedCount++
			continue
		}

		if mode == ModeAdd {
			errs.Add(NewRowError(row.Line, row.BusinessNumber, row.CompanyName, MsgBusinessNumberExists))
			continue
		}

		merged := current
		merged.ApplyRow(row, actor)
		seen[row.BusinessNumber] = true
		batch.ToUpdate = append(batch.ToUpdate, &merged)
		batch.UpdatedCount++
	}

	batch.Errors = errs.Errors()
	batch.FailCount = errs.TotalCount()
	batch.SuccessCount = batch.TotalCount - batch.FailCount
	return batch
}

// FormatCode renders a sequence number as a business code
func (p *BatchProcessor) FormatCode(seq int64) string {
	return fmt.Sprintf("%s%0*d", p.codePrefix, p.codeWidth, seq)
}

// NextSeqFromCode derives the first free sequence number from the highest
// assigned business code. An empty or malformed code starts the sequence
// at 1.
func NextSeqFromCode(code string) int64 {
	digits := strings.TrimLeftFunc(strings.TrimSpace(code), func(r rune) bool {
		return r < '0' || r > '9'
	})
	if digits == "" {
		return 1
	}
	seq, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 1
	}
	return seq + 1
}
