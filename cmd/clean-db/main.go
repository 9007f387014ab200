package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	ctx := context.Background()
	connStr := os.Getenv("DATABASE_URL")
	if len(os.Args) > 1 {
		connStr = os.Args[1]
	}
	if connStr == "" {
		log.Fatal("Usage: clean-db <connection-string> (or set DATABASE_URL)")
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	fmt.Println("Cleaning database...")

	// Drop all data (in reverse dependency order)
	tables := []string{
		"files_meta",
		"registration_tokens",
		"tenants",
		"admin_clients",
		"provisioning_records",
	}

	for _, table := range tables {
		_, err := db.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			fmt.Printf("Warning: failed to truncate %s: %v\n", table, err)
		} else {
			fmt.Printf("✓ Cleared %s\n", table)
		}
	}

	// Re-insert an active provisioning record so registration works again.
	// Credentials come from the environment; skip when unset.
	accessKey := os.Getenv("STORAGE_ACCESS_KEY")
	secretKey := os.Getenv("STORAGE_SECRET_KEY")
	bucket := os.Getenv("STORAGE_BUCKET")
	region := os.Getenv("STORAGE_REGION")
	if accessKey == "" || secretKey == "" || bucket == "" {
		fmt.Println("\nSTORAGE_* env not set; skipping provisioning record")
		fmt.Println("\n✓✓✓ Database cleaned successfully!")
		return
	}

	totalQuota := envInt64("STORAGE_TOTAL_QUOTA", 1<<40)
	defaultQuota := envInt64("STORAGE_DEFAULT_QUOTA", 250<<20)

	fmt.Println("\nRe-inserting provisioning record...")
	_, err = db.ExecContext(ctx, `
		INSERT INTO provisioning_records (id, bucket, region, access_key, secret_key, total_quota, default_quota, is_active, created_at)
		VALUES (gen_random_uuid()::text, $1, $2, $3, $4, $5, $6, TRUE, NOW())
	`, bucket, region, accessKey, secretKey, totalQuota, defaultQuota)
	if err != nil {
		log.Printf("Failed to insert provisioning record: %v", err)
	} else {
		fmt.Printf("✓ Created provisioning record for bucket: %s\n", bucket)
	}

	fmt.Println("\n✓✓✓ Database cleaned and reset successfully!")
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
