package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"stillfm/config"
	"stillfm/db"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis connection",
	Long:  `Connects to Redis with the configured settings and performs a round-trip write and read.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		fmt.Printf("Redis: %s:%s, DB %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := db.ConnectRedis(cfg); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer db.CloseRedis()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		key := "stillfm:healthcheck"
		if err := db.RedisClient.Set(ctx, key, time.Now().String(), time.Minute).Err(); err != nil {
			log.Fatalf("Redis write failed: %v", err)
		}
		if _, err := db.RedisClient.Get(ctx, key).Result(); err != nil {
			log.Fatalf("Redis read failed: %v", err)
		}
		db.RedisClient.Del(ctx, key)

		fmt.Println("Redis connection OK.")
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
