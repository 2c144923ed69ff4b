package application

import (
	"context"
	"fmt"

	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
	"github.com/remesas/remittance-api/internal/domains/remittances/ports"
)

// CheckIntegrity replays the audit trail of every order and compares it with the persisted
// status. Divergent orders are reported, never corrected.
func (s *Service) CheckIntegrity(ctx context.Context) (*ports.IntegrityReport, error) {
	orders, err := s.repo.ListByStatus(ctx, domain.Statuses)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	report := &ports.IntegrityReport{CheckedAt: s.now().UTC()}
	var mismatches []domain.IntegrityMismatch
	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		entries, err := s.repo.ListAuditTrail(ctx, order.ID)
		if err != nil {
			return report, fmt.Errorf("list audit trail of %s: %w", order.ID, err)
		}
		report.Checked++
		if mismatch := domain.VerifyReplay(order, entries); mismatch != nil {
			mismatches = append(mismatches, *mismatch)
		}
	}
	if len(mismatches) > 0 {
		return report, &domain.IntegrityCheckFailedError{Mismatches: mismatches}
	}
	return report, nil
}
