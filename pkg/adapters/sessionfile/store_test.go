package sessionfile_test

import (
	"testing"

	"github.com/parley-ai/parley/pkg/adapters/sessionfile"
	"github.com/parley-ai/parley/pkg/ports"
)

func TestFileStore_Contract(t *testing.T) {
	store := sessionfile.New(t.TempDir())
	ports.RunSnapshotStoreContract(t, store)
}
