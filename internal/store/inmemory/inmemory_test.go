package inmemory

import (
	"testing"

	"github.com/dvloznov/finbot/internal/store"
	"github.com/dvloznov/finbot/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Repository {
		return New()
	})
}
