// Package main 种子数据命令：建表、写入城市目录，可选写入演示用户和帖子
//
// 用法:
//
//	go run ./cmd/seed                          # 仅城市
//	go run ./cmd/seed -demo-users              # 城市 + 演示用户（密码 secret123）
//	go run ./cmd/seed -demo-users -demo-posts 5 # 每个城市追加 5 条演示帖子
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"erasmus-atlas/deployments"
	"erasmus-atlas/internal/apiserver/auth"
	"erasmus-atlas/internal/config"
	"erasmus-atlas/internal/seed"
	"erasmus-atlas/internal/shared/storage/repository"
)

func main() {
	citiesFile := flag.String("cities", "", "city YAML file (default: embedded deployments/seed/cities.yaml)")
	demoUsers := flag.Bool("demo-users", false, "upsert demo users with password "+seed.DemoPassword)
	demoPosts := flag.Int("demo-posts", 0, "published demo posts to append per city (requires -demo-users)")
	rngSeed := flag.Uint64("seed", 9090, "random seed for demo posts")
	configDir := flag.String("config", "", "config directory containing {env}.yaml")
	flag.Parse()
	if *configDir != "" {
		config.SetConfigDir(*configDir)
	}

	cfg := config.Load()
	ctx := context.Background()

	store, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, cfg.MaxConns)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.DatabaseDriver, err)
	}
	defer store.Close()

	data := deployments.SeedCitiesYAML
	if *citiesFile != "" {
		if data, err = os.ReadFile(*citiesFile); err != nil {
			log.Fatalf("Failed to read %s: %v", *citiesFile, err)
		}
	}
	cities, err := seed.ParseCities(data)
	if err != nil {
		log.Fatalf("Invalid city list: %v", err)
	}
	if err := seed.Cities(ctx, store, cities); err != nil {
		log.Fatalf("Failed to seed cities: %v", err)
	}
	log.Printf("[seed] Upserted %d cities", len(cities))

	if !*demoUsers {
		if *demoPosts > 0 {
			log.Printf("[seed] -demo-posts ignored without -demo-users")
		}
		return
	}

	hash, err := auth.HashPassword(seed.DemoPassword)
	if err != nil {
		log.Fatalf("Failed to hash demo password: %v", err)
	}
	users, err := seed.DemoUsers(ctx, store, hash)
	if err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}
	log.Printf("[seed] Upserted %d demo users", len(users))

	n, err := seed.DemoPosts(ctx, store, users, cities, *demoPosts, *rngSeed)
	if err != nil {
		log.Fatalf("Failed to seed posts after %d: %v", n, err)
	}
	if n > 0 {
		log.Printf("[seed] Created %d demo posts", n)
	}
}
