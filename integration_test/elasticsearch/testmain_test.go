//go:build integration

package elasticsearch

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
)

var (
	es      *elasticsearch.Client
	address string
	logger  = zap.NewNop()
)

func TestMain(m *testing.M) {
	devLogger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	logger = devLogger

	var cleanup func()
	address, cleanup, err = startElasticSearchContainer(context.Background(), logger)
	if err != nil {
		cleanup()
		logger.Fatal("Failed to start container", zap.Error(err))
	}
	es, err = elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{"http://" + address}})
	if err != nil {
		cleanup()
		logger.Fatal("Failed to create elasticsearch client", zap.Error(err))
	}

	code := m.Run()
	cleanup()
	os.Exit(code)
}
