// Package testing provides test utilities and database setup for testing the counter store
package testing

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/amirphl/counter-app/config"
	"github.com/amirphl/counter-app/database"
	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDBConfig holds configuration for test database connections
type TestDBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	SSLMode  string
}

// GetTestDBConfig loads test database configuration from environment variables
func GetTestDBConfig() *TestDBConfig {
	config := &TestDBConfig{
		Host:     getEnv("TEST_DB_HOST", ""),
		Port:     getEnvAsInt("TEST_DB_PORT", 5432),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		SSLMode:  getEnv("TEST_DB_SSL_MODE", "disable"),
	}
	return config
}

// UsePostgres reports whether tests should run against a PostgreSQL server
func (c *TestDBConfig) UsePostgres() bool {
	return c.Host != ""
}

func (c *TestDBConfig) databaseConfig(driver, name string) config.DatabaseConfig {
	return config.DatabaseConfig{
		Driver:          driver,
		SQLitePath:      name,
		Host:            c.Host,
		Port:            c.Port,
		Name:            name,
		User:            c.User,
		Password:        c.Password,
		SSLMode:         c.SSLMode,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
	}
}

// TestDB represents a test database instance
type TestDB struct {
	DB     *gorm.DB
	Name   string
	Config config.DatabaseConfig
	dir    string
	config *TestDBConfig
}

// SetupTestDB creates a new isolated test database and migrates it.
// A SQLite file in a temporary directory is used unless TEST_DB_HOST points at PostgreSQL.
func SetupTestDB() (*TestDB, error) {
	cfg := GetTestDBConfig()
	if cfg.UsePostgres() {
		return setupPostgresTestDB(cfg)
	}
	return setupSQLiteTestDB(cfg)
}

func setupSQLiteTestDB(cfg *TestDBConfig) (*TestDB, error) {
	dir, err := os.MkdirTemp("", "counter_test_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create test directory: %w", err)
	}

	dbCfg := cfg.databaseConfig("sqlite", filepath.Join(dir, "counter.db"))
	db, err := database.Open(dbCfg, database.Options{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	if err := database.Migrate(context.Background(), db); err != nil {
		database.Close(db)
		os.RemoveAll(dir)
		return nil, err
	}

	return &TestDB{DB: db, Name: dbCfg.SQLitePath, Config: dbCfg, dir: dir, config: cfg}, nil
}

func setupPostgresTestDB(cfg *TestDBConfig) (*TestDB, error) {
	// Generate unique database name using timestamp and random number
	dbName := fmt.Sprintf("counter_test_%d_%d", time.Now().Unix(), rand.Intn(10000))

	// Connect to PostgreSQL server (without specific database)
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.SSLMode)

	adminDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer adminDB.Close()

	if _, err := adminDB.Exec(fmt.Sprintf("CREATE DATABASE %s", dbName)); err != nil {
		return nil, fmt.Errorf("failed to create test database %s: %w", dbName, err)
	}

	dbCfg := cfg.databaseConfig("postgres", dbName)

	if err := runTestMigrations(dbCfg.DSN(), dbName); err != nil {
		adminDB.Exec("DROP DATABASE IF EXISTS " + dbName)
		return nil, fmt.Errorf("failed to run migrations on test database %s: %w", dbName, err)
	}

	testDB, err := database.Open(dbCfg, database.Options{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		adminDB.Exec("DROP DATABASE IF EXISTS " + dbName)
		return nil, fmt.Errorf("failed to connect to test database %s: %w", dbName, err)
	}

	return &TestDB{
		DB:     testDB,
		Name:   dbName,
		Config: dbCfg,
		config: cfg,
	}, nil
}

// Reopen opens an independent session against the same test database
func (tdb *TestDB) Reopen() (*gorm.DB, error) {
	return database.Open(tdb.Config, database.Options{Logger: logger.Default.LogMode(logger.Silent)})
}

// TeardownTestDB drops the test database and closes connections
func (tdb *TestDB) TeardownTestDB() error {
	if tdb.DB == nil {
		return nil
	}

	if err := database.Close(tdb.DB); err != nil {
		log.Printf("Warning: failed to close test database %s: %v", tdb.Name, err)
	}

	if !tdb.config.UsePostgres() {
		return os.RemoveAll(tdb.dir)
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s sslmode=%s",
		tdb.config.Host, tdb.config.Port, tdb.config.User, tdb.config.Password, tdb.config.SSLMode)

	adminDB, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Printf("Warning: failed to connect to PostgreSQL for cleanup: %v", err)
		return err
	}
	defer adminDB.Close()

	// Force disconnect all connections to the test database
	if _, err := adminDB.Exec(
		"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()",
		tdb.Name); err != nil {
		log.Printf("Warning: failed to terminate connections to test database %s: %v", tdb.Name, err)
	}

	if _, err := adminDB.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", tdb.Name)); err != nil {
		log.Printf("Warning: failed to drop test database %s: %v", tdb.Name, err)
		return err
	}

	return nil
}

// ClearAllTables removes all data from tables while preserving structure
func (tdb *TestDB) ClearAllTables() error {
	if tdb.config.UsePostgres() {
		return tdb.DB.Exec("TRUNCATE TABLE counters RESTART IDENTITY CASCADE").Error
	}
	if err := tdb.DB.Exec("DELETE FROM counters").Error; err != nil {
		return fmt.Errorf("failed to clear table counters: %w", err)
	}
	return nil
}

// runTestMigrations runs all database migrations by executing SQL files directly
func runTestMigrations(databaseURL, dbName string) error {
	migrationsPath, err := findMigrationsDir()
	if err != nil {
		return err
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Define migration files in order (excluding down migrations)
	migrationFiles := []string{
		"0001_create_counters.sql",
	}

	for _, filename := range migrationFiles {
		content, err := os.ReadFile(filepath.Join(migrationsPath, filename))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	log.Printf("Successfully applied %d migrations to test database %s", len(migrationFiles), dbName)
	return nil
}

// findMigrationsDir walks up from the working directory to the module's migrations folder
func findMigrationsDir() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for dir := wd; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, "migrations")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		if filepath.Dir(dir) == dir {
			return "", fmt.Errorf("migrations directory not found above %s", wd)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// TestWithDB is a helper function that sets up a test database, runs the test function, and cleans up
func TestWithDB(testFunc func(*TestDB) error) error {
	testDB, err := SetupTestDB()
	if err != nil {
		return fmt.Errorf("failed to setup test database: %w", err)
	}
	defer func() {
		if cleanupErr := testDB.TeardownTestDB(); cleanupErr != nil {
			log.Printf("Warning: failed to cleanup test database: %v", cleanupErr)
		}
	}()

	return testFunc(testDB)
}

// CreateTestContext creates a context for testing
func CreateTestContext() context.Context {
	return context.Background()
}
