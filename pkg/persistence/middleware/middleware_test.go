package middleware_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/parley-ai/parley/pkg/adapters/sessionmem"
	"github.com/parley-ai/parley/pkg/persistence/middleware"
	"github.com/parley-ai/parley/pkg/ports"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	return key
}

func TestEncryption_RoundTrip(t *testing.T) {
	inner := sessionmem.New()
	store := middleware.Chain(inner, middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey: randomKey(t),
	}))

	snapshot := json.RawMessage(`{"stage":"verified","case_index":2}`)
	if err := store.Save(context.Background(), "s1", snapshot); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !bytes.Equal(loaded, snapshot) {
		t.Errorf("round trip mismatch: %s", loaded)
	}
}

func TestEncryption_StoredFormIsOpaque(t *testing.T) {
	inner := sessionmem.New()
	store := middleware.Chain(inner, middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey: randomKey(t),
	}))

	if err := store.Save(context.Background(), "s1", json.RawMessage(`{"secret":"tuna"}`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := inner.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("inner Load failed: %v", err)
	}
	if bytes.Contains(raw, []byte("tuna")) {
		t.Errorf("plaintext leaked into the stored form: %s", raw)
	}
	var env map[string]any
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("stored form is not a JSON envelope: %v", err)
	}
	if _, ok := env["__encrypted__"]; !ok {
		t.Errorf("expected an encrypted envelope, got %s", raw)
	}
}

func TestEncryption_KeyRotation(t *testing.T) {
	oldKey := randomKey(t)
	newKey := randomKey(t)
	inner := sessionmem.New()

	oldStore := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: oldKey})(inner)
	if err := oldStore.Save(context.Background(), "s1", json.RawMessage(`{"v":1}`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rotated := middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(inner)
	loaded, err := rotated.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load with fallback key failed: %v", err)
	}
	if !bytes.Equal(loaded, []byte(`{"v":1}`)) {
		t.Errorf("unexpected snapshot: %s", loaded)
	}

	noFallback := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: newKey})(inner)
	if _, err := noFallback.Load(context.Background(), "s1"); err == nil {
		t.Error("expected decryption failure without the old key")
	}
}

func TestEncryption_PlainSnapshotFailsSecure(t *testing.T) {
	inner := sessionmem.New()
	if err := inner.Save(context.Background(), "s1", json.RawMessage(`{"stage":"verified"}`)); err != nil {
		t.Fatal(err)
	}

	store := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: randomKey(t)})(inner)
	if _, err := store.Load(context.Background(), "s1"); err == nil {
		t.Error("expected an error loading an unencrypted snapshot")
	}
}

func TestRedaction_MasksMatchingKeys(t *testing.T) {
	inner := sessionmem.New()
	store := middleware.Chain(inner, middleware.NewRedaction([]string{"(?i)answer", "email"}))

	snapshot := json.RawMessage(`{"stage":"verified","lead":{"email":"sam@initech.test","company":"Initech"},"securityAnswer":"blue"}`)
	if err := store.Save(context.Background(), "s1", snapshot); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := inner.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("inner Load failed: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	if doc["securityAnswer"] != "***" {
		t.Errorf("top-level key not masked: %v", doc["securityAnswer"])
	}
	lead := doc["lead"].(map[string]any)
	if lead["email"] != "***" {
		t.Errorf("nested key not masked: %v", lead["email"])
	}
	if lead["company"] != "Initech" {
		t.Errorf("unmatched key must pass through: %v", lead["company"])
	}
}

func TestChain_OrderIsOutsideIn(t *testing.T) {
	inner := sessionmem.New()
	store := middleware.Chain(inner,
		middleware.NewRedaction([]string{"answer"}),
		middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: randomKey(t)}),
	)

	if err := store.Save(context.Background(), "s1", json.RawMessage(`{"answer":"blue"}`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// Redaction runs before encryption, so the decrypted copy is masked.
	if !bytes.Contains(loaded, []byte(`"***"`)) {
		t.Errorf("expected redaction before encryption, got %s", loaded)
	}
}

var _ ports.SnapshotStore = (*sessionmem.Store)(nil)
