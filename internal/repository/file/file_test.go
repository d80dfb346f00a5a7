package file

import (
	"testing"

	"e2e_relay/internal/service/server"
)

// The repo must keep satisfying the handler-facing storage contract; this
// pins the Save/Get/Download signatures at compile time.
var _ server.FileStore = (*FileRepo)(nil)

func TestFileRepoSatisfiesFileStore(t *testing.T) {
	var store server.FileStore = (*FileRepo)(nil)
	if store == nil {
		t.Fatal("FileRepo must satisfy server.FileStore")
	}
}
