package db

import (
	"borrow_analytics/models"
	"fmt"
	"log"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSNFromEnv 从 DB_* 环境变量拼 DSN；DB_HOST 为空时返回 ""（不持久化）
func DSNFromEnv() string {
	if os.Getenv("DB_HOST") == "" {
		return ""
	}
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		port,
	)
}

func ConnectDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	if err := Migrate(db); err != nil {
		log.Fatal("Failed to migrate models: ", err)
	}
	log.Println("Database connected")
	return db
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.BorrowRecord{}); err != nil {
		return err
	}

	// 查询当前借出（未归还）更快
	if err := db.Exec(fmt.Sprintf(`
	  CREATE INDEX IF NOT EXISTS %s_open_item_checkout_desc
	  ON %s (item_code, checkout_at DESC)
	  WHERE checkin_at IS NULL;
	`, models.RecordTable, models.RecordTable)).Error; err != nil {
		return err
	}

	return nil
}
