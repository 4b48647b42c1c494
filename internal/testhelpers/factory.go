package testhelpers

import (
	"fmt"
	"os"
	"strings"

	"omdbetl/internal/db"
	"omdbetl/internal/models"

	. "github.com/onsi/ginkgo/v2"
	g "github.com/onsi/gomega"
	"gorm.io/gorm"
)

// OpenTestDB connects to the database named by DB_URL (or DATABASE_URL),
// creates the tables and truncates them. The calling test is skipped when no
// database is reachable.
func OpenTestDB() *gorm.DB {
	dsn := strings.TrimSpace(os.Getenv("DB_URL"))
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		Skip("database not configured: DB_URL is empty")
	}

	dbConn, err := db.InitDB(dsn)
	if err != nil {
		Skip("database not available: " + err.Error())
	}

	g.Expect(dbConn.AutoMigrate(&models.Movie{}, &models.EtlRun{})).To(g.Succeed())
	CleanupDB(dbConn)
	return dbConn
}

func CleanupDB(db *gorm.DB) {
	var tables []string

	err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error
	g.Expect(err).NotTo(g.HaveOccurred())

	if len(tables) == 0 {
		return
	}

	for _, table := range tables {
		if table == "spatial_ref_sys" || table == "schema_migrations" {
			continue
		}

		query := fmt.Sprintf("TRUNCATE TABLE \"%s\" RESTART IDENTITY CASCADE", table)
		err := db.Exec(query).Error
		g.Expect(err).NotTo(g.HaveOccurred(), "Failed to truncate table: "+table)
	}
}

func StringPtr(s string) *string { return &s }

func IntPtr(i int) *int { return &i }

func Int64Ptr(i int64) *int64 { return &i }

func Float64Ptr(f float64) *float64 { return &f }
