package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/vendorledger/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected one migration matching %s", pattern)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func assertContainsAll(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		assert.Contains(t, content, sub)
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestEnumMigrationDeclaresSettlementTypes(t *testing.T) {
	content := readMigration(t, "*_create_settlement_enums.sql")
	assertContainsAll(t, content, []string{
		"CREATE TYPE vendor_status AS ENUM",
		"CREATE TYPE vendor_order_status AS ENUM",
		"CREATE TYPE payout_status AS ENUM ('pending', 'completed', 'rejected')",
		"CREATE TYPE payout_method AS ENUM ('bank_transfer', 'paypal', 'stripe', 'manual')",
		"CREATE TYPE ledger_entry_type AS ENUM ('credit', 'debit')",
		"DROP TYPE IF EXISTS vendor_order_status",
	})
}

func TestVendorOrderMigrationEnforcesOneSlicePerVendor(t *testing.T) {
	content := readMigration(t, "*_create_orders_and_vendor_orders.sql")
	assertContainsAll(t, content, []string{
		"CREATE TABLE IF NOT EXISTS vendor_orders",
		"CONSTRAINT vendor_orders_order_vendor_key UNIQUE (order_id, vendor_id)",
		"status vendor_order_status NOT NULL DEFAULT 'pending'",
		"REFERENCES vendor_orders(id)",
		"DROP TABLE IF EXISTS vendor_orders",
	})
}

func TestLedgerMigrationGuardsBalanceAndCredits(t *testing.T) {
	content := readMigration(t, "*_create_vendor_ledger.sql")
	assertContainsAll(t, content, []string{
		"CREATE TABLE IF NOT EXISTS vendor_balances",
		"CHECK (balance >= 0)",
		"CREATE TABLE IF NOT EXISTS ledger_entries",
		"CREATE UNIQUE INDEX IF NOT EXISTS ledger_entries_credit_vendor_order_key",
		"WHERE type = 'credit'",
	})
}

func TestPayoutMigrationUsesEnums(t *testing.T) {
	content := readMigration(t, "*_create_vendor_payouts.sql")
	assertContainsAll(t, content, []string{
		"CREATE TABLE IF NOT EXISTS vendor_payouts",
		"method payout_method NOT NULL",
		"status payout_status NOT NULL DEFAULT 'pending'",
		"CHECK (amount > 0)",
		"ledger_entries_payout_id_fkey",
	})
}

func TestOutboxMigrationIndexesUnpublished(t *testing.T) {
	content := readMigration(t, "*_create_outbox_events.sql")
	assert.True(t, strings.Contains(content, "WHERE published_at IS NULL"))
	assert.Contains(t, content, "payload jsonb NOT NULL")
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Payout Notes!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_payout_notes.sql"))
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}
