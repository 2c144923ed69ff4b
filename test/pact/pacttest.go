//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/remesas/remittance-api/internal/domains/remittances/adapters/http/auth"
	"github.com/remesas/remittance-api/internal/domains/remittances/domain"
)

const (
	ProviderName = "remittance-api"
	ConsumerName = "remittance-portal"

	StateTypeAvailable = "remittance type USD-CUP is active"
	StateOrderCreated  = "order 7c0d0a52 awaits payment proof"
	StateOrderMissing  = "no order with id 404"
)

const (
	ExistingOrderID = "7c0d0a52-6f4e-4c55-9a5b-2f2e1b0b8c11"
	MissingOrderID  = "00000000-0000-0000-0000-000000000404"
	RemittanceType  = "0b6a8c1e-0d57-4bb4-8d8f-3c9d6c2f7a10"

	SigningSecret = "pact-signing-secret"
	SenderID      = "sender-ana"
	AdminID       = "ops-admin"
)

// Sender and Admin are the actors the portal authenticates as.
var (
	Sender = domain.Actor{ID: SenderID, Role: domain.RoleSender}
	Admin  = domain.Actor{ID: AdminID, Role: domain.RoleAdmin}
)

// BearerToken signs a token for actor that stays valid for the whole consumer/provider run.
func BearerToken(t testing.TB, actor domain.Actor) string {
	t.Helper()
	token, err := auth.NewVerifier(SigningSecret, "").Issue(actor, 24*time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue pact token: %v", err)
	}
	return "Bearer " + token
}

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the remittance portal consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleCreateOrderPayload is the portal's order submission.
func ExampleCreateOrderPayload() map[string]any {
	return map[string]any{
		"remittanceTypeId": RemittanceType,
		"kind":             "remittance",
		"amountSent":       "100",
		"recipient": map[string]any{
			"fullName": "Ana Perez",
			"phone":    "+5355555555",
			"idNumber": "85010112345",
		},
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
