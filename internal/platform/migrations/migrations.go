package migrations

import (
	"fmt"

	"gorm.io/gorm"

	orderspostgres "github.com/remesas/remittance-api/internal/domains/remittances/adapters/persistence/postgres"
	typespostgres "github.com/remesas/remittance-api/internal/domains/remittancetypes/adapters/persistence/postgres"
)

// Run applies the schema for the bounded contexts. Adapters never migrate on their own.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if err := db.Exec(fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s START 1", orderspostgres.OrderNumberSequence)).Error; err != nil {
		return fmt.Errorf("create order number sequence: %w", err)
	}
	if err := db.AutoMigrate(
		&typespostgres.RemittanceTypeRecord{},
		&orderspostgres.OrderRecord{},
		&orderspostgres.AuditEntryRecord{},
		&orderspostgres.IdempotencyRecord{},
	); err != nil {
		return err
	}
	// Audit rows are append-only; the trigger rejects updates and deletes at the database level.
	for _, stmt := range appendOnlyTrigger {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("install audit trigger: %w", err)
		}
	}
	return nil
}

var appendOnlyTrigger = []string{
	`CREATE OR REPLACE FUNCTION order_audit_entries_append_only() RETURNS trigger AS $$
BEGIN
	RAISE EXCEPTION 'order_audit_entries is append-only';
END;
$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS order_audit_entries_no_mutation ON order_audit_entries`,
	`CREATE TRIGGER order_audit_entries_no_mutation
	BEFORE UPDATE OR DELETE ON order_audit_entries
	FOR EACH ROW EXECUTE FUNCTION order_audit_entries_append_only()`,
}
