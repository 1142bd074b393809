package app

import (
	"os"
	"testing"

	"github.com/amaan-q00/beta-chatx/pkg/logger"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "chatlog")
	if err != nil {
		panic(err)
	}
	logger.Log = logger.Initialize("chat_service_test", dir)
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}
