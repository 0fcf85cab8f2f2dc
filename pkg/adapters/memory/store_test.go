package memory_test

import (
	"testing"

	"github.com/Himanshu040604/PregelFlow/pkg/adapters/memory"
	"github.com/Himanshu040604/PregelFlow/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunCheckpointStoreContract(t, store)
}
