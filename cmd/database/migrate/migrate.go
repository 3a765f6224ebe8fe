package migration

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/nocap-app/nocap-backend/entities"
)

func Migrate(db *gorm.DB) error {
	db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\";")

	if err := db.AutoMigrate(&entities.User{}); err != nil {
		log.Fatalf("Error migrating user database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.TokenBalance{}); err != nil {
		log.Fatalf("Error migrating token balance database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.TokenTransaction{}); err != nil {
		log.Fatalf("Error migrating token transaction database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.Scan{}); err != nil {
		log.Fatalf("Error migrating scan database: %v", err)
		return err
	}
	if err := db.AutoMigrate(&entities.GameMedia{}); err != nil {
		log.Fatalf("Error migrating game media database: %v", err)
		return err
	}

	fmt.Println("Database migration complete")
	return nil
}
