package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cpenv/internal/common/cache"
	"cpenv/internal/common/storage"
	"cpenv/internal/config"
	"cpenv/internal/judgeclient"
	"cpenv/internal/testdata"
)

// judgeCommands are handled before workflow parsing; everything else goes
// through the workflow path.
var judgeCommands = map[string]bool{
	"login":  true,
	"logout": true,
	"submit": true,
	"status": true,
	"fetch":  true,
}

func runJudgeCommand(ctx context.Context, cfg config.Config, args []string) int {
	client, err := judgeclient.New(judgeclient.Config{
		BaseURL:   cfg.Judge.BaseURL,
		TokenPath: cfg.Judge.TokenStatePath,
		Timeout:   cfg.Judge.Timeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "judge client unavailable: %v\n", err)
		return 1
	}

	switch args[0] {
	case "login":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: cpenv login <username>")
			return 1
		}
		fmt.Print("password: ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			fmt.Fprintln(os.Stderr, "no password given")
			return 1
		}
		if err := client.Login(ctx, args[1], scanner.Text()); err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			return 1
		}
		fmt.Println("logged in")
		return 0

	case "logout":
		if err := client.Logout(); err != nil {
			fmt.Fprintf(os.Stderr, "logout failed: %v\n", err)
			return 1
		}
		fmt.Println("logged out")
		return 0

	case "submit":
		if len(args) != 5 {
			fmt.Fprintln(os.Stderr, "usage: cpenv submit <language> <contest> <problem> <source>")
			return 1
		}
		sub, err := client.Submit(ctx, args[2], args[3], args[1], args[4])
		if err != nil {
			fmt.Fprintf(os.Stderr, "submit failed: %v\n", err)
			return 1
		}
		fmt.Printf("submission %d accepted (%s)\n", sub.ID, sub.Status)
		return 0

	case "status":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: cpenv status <submission-id>")
			return 1
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid submission id %q\n", args[1])
			return 1
		}
		sub, err := client.SubmissionStatus(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "status failed: %v\n", err)
			return 1
		}
		fmt.Printf("submission %d: %s %s (%dms, %dKB)\n", sub.ID, sub.Status, sub.Verdict, sub.TimeMs, sub.MemoryKB)
		return 0

	case "fetch":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: cpenv fetch <contest> <problem>")
			return 1
		}
		dir, err := fetchTestData(ctx, cfg, client, args[1], args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "fetch failed: %v\n", err)
			return 1
		}
		fmt.Printf("test data ready at %s\n", dir)
		return 0
	}
	return 1
}

// fetchTestData resolves the pack metadata from the judge and materializes
// the pack through the local test data cache.
func fetchTestData(ctx context.Context, cfg config.Config, client *judgeclient.Client, contest, problem string) (string, error) {
	if cfg.Storage.Endpoint == "" {
		return "", fmt.Errorf("storage endpoint is not configured")
	}
	meta, err := client.ProblemPack(ctx, contest, problem)
	if err != nil {
		return "", err
	}

	store, err := storage.NewMinIOStorage(storage.MinIOConfig{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
	})
	if err != nil {
		return "", err
	}
	lock, err := cache.NewRedisCacheWithConfig(&cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return "", err
	}

	home, _ := os.UserHomeDir()
	cacheDir := filepath.Join(home, ".cache", "cpenv", "testdata")
	packs := testdata.New(cacheDir, 24*time.Hour, 30*time.Second, 64, 1<<30, cfg.Storage.Bucket, store, lock)
	return packs.Get(ctx, meta)
}
