package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"pulsetransit/internal/config"
	"pulsetransit/internal/store"
	"pulsetransit/internal/validator"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	ctx := context.Background()

	st, err := store.Open(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("store open error", zap.Error(err))
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		logger.Fatal("store ping error", zap.Error(err))
	}

	fmt.Printf("Validating at %s\n", time.Now().UTC().Format("2006-01-02 15:04 UTC"))

	v := validator.New(st, cfg.MaxAge, logger)
	pass, statuses, err := v.Run(ctx)
	if err != nil {
		logger.Fatal("validation error", zap.Error(err))
	}
	for _, status := range statuses {
		fmt.Println(status)
	}

	if !pass {
		fmt.Println("Validation FAILED")
		os.Exit(1)
	}
	fmt.Println("Validation PASSED")
}
