package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"backend/internal/config"
	"backend/internal/models"
	"backend/internal/repository"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	TotalPlayers    = 200
	TotalPromotions = 15
	TotalOffers     = 10
	UsernamePrefix  = "player_"
)

func main() {
	log.Println("Starting seeder for Rewards Platform Backend...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize PostgreSQL
	db, err := initPostgres(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	log.Println("Connected to PostgreSQL")

	postgresRepo := repository.NewPostgresRepository(db)

	// Run migrations
	if err := postgresRepo.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()

	log.Printf("Seeding %d players...", TotalPlayers)
	users := seedUsers(ctx, postgresRepo)

	log.Printf("Seeding %d promotions and %d offers...", TotalPromotions, TotalOffers)
	seedTargets(ctx, postgresRepo, users)

	log.Println("Seeding referrals...")
	seedReferrals(ctx, postgresRepo, users, cfg.Rewards.ReferralBonus)

	postgresRepo.Close()
	log.Println("Seeder finished")
}

// seedUsers inserts an admin, a handful of clients and a batch of players
func seedUsers(ctx context.Context, repo *repository.PostgresRepository) []models.User {
	admin := models.User{
		Username:     "admin",
		Email:        "admin@example.com",
		Role:         models.RoleAdmin,
		ReferralCode: "ADMIN0",
	}
	if err := repo.CreateUser(ctx, &admin); err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}

	users := []models.User{admin}
	for i := 1; i <= TotalPlayers; i++ {
		user := models.User{
			Username:     fmt.Sprintf("%s%d", UsernamePrefix, i),
			Email:        fmt.Sprintf("%s%d@example.com", UsernamePrefix, i),
			Role:         models.RolePlayer,
			Credits:      int64(rand.Intn(1000)),
			ReferralCode: fmt.Sprintf("REF%05d", i),
		}
		if err := repo.CreateUser(ctx, &user); err != nil {
			log.Fatalf("Failed to seed player %d: %v", i, err)
		}
		users = append(users, user)
	}
	log.Printf("Inserted %d users", len(users))
	return users
}

// seedTargets inserts promotions and client offers with mixed screenshot
// requirements
func seedTargets(ctx context.Context, repo *repository.PostgresRepository, users []models.User) {
	for i := 1; i <= TotalPromotions; i++ {
		promo := models.Promotion{
			Title:              fmt.Sprintf("Promotion #%d", i),
			Description:        "Complete the challenge to earn credits",
			RewardCredits:      int64(50 + rand.Intn(450)),
			RequiresScreenshot: i%2 == 0,
			Active:             i%5 != 0,
		}
		if err := repo.CreatePromotion(ctx, &promo); err != nil {
			log.Fatalf("Failed to seed promotion %d: %v", i, err)
		}
	}

	client := models.User{
		Username:     "acme",
		Email:        "acme@example.com",
		Role:         models.RoleClient,
		ReferralCode: "ACME00",
	}
	if err := repo.CreateUser(ctx, &client); err != nil {
		log.Fatalf("Failed to seed client: %v", err)
	}

	for i := 1; i <= TotalOffers; i++ {
		offer := models.Offer{
			ClientID:           client.ID,
			Title:              fmt.Sprintf("Offer #%d", i),
			Description:        "Limited time deal",
			RewardCredits:      int64(25 + rand.Intn(200)),
			RequiresScreenshot: i%3 == 0,
			Active:             true,
		}
		if err := repo.CreateOffer(ctx, &offer); err != nil {
			log.Fatalf("Failed to seed offer %d: %v", i, err)
		}
	}
}

// seedReferrals links some players into pending referrals
func seedReferrals(ctx context.Context, repo *repository.PostgresRepository, users []models.User, bonus int64) {
	count := 0
	for i := 2; i+1 < len(users) && count < 25; i += 2 {
		ref := models.Referral{
			ReferrerID:  users[i].ID,
			ReferredID:  users[i+1].ID,
			Status:      models.ReferralPending,
			BonusAmount: bonus,
		}
		if err := repo.CreateReferral(ctx, &ref); err != nil {
			log.Fatalf("Failed to seed referral: %v", err)
		}
		count++
	}
	log.Printf("Inserted %d referrals", count)
}

// initPostgres initializes PostgreSQL connection
func initPostgres(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.GetDSN()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}
