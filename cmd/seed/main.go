package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lamoy/api/internal/config"
	"github.com/lamoy/api/internal/database"
	"github.com/lamoy/api/internal/enum"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type seedItem struct {
	category    string
	name        string
	description string
	price       string
}

var starterMenu = []seedItem{
	{"Rice Meals", "Chicken Adobo", "Braised chicken in soy sauce and vinegar, served with rice", "120.00"},
	{"Rice Meals", "Pork Sisig", "Sizzling chopped pork with onions and chili, served with rice", "145.00"},
	{"Rice Meals", "Beef Tapa", "Cured beef with garlic rice and egg", "150.00"},
	{"Noodles", "Pancit Canton", "Stir-fried egg noodles with vegetables and pork", "95.00"},
	{"Noodles", "Lomi", "Thick egg noodle soup with pork and vegetables", "90.00"},
	{"Snacks", "Lumpiang Shanghai", "Fried pork spring rolls, 6 pieces", "75.00"},
	{"Snacks", "Cheese Sticks", "Fried cheese sticks with sweet chili dip", "60.00"},
	{"Drinks", "Iced Tea", "House-blend iced tea", "35.00"},
	{"Drinks", "Calamansi Juice", "Fresh calamansi juice", "40.00"},
}

func main() {
	adminEmail := flag.String("admin-email", envOr("SEED_ADMIN_EMAIL", "admin@lamoy.local"), "admin account email")
	adminPassword := flag.String("admin-password", envOr("SEED_ADMIN_PASSWORD", "changeme123"), "admin account password")
	withMenu := flag.Bool("menu", true, "seed the starter menu")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: connect to database: %v", err)
	}
	defer pool.Close()

	queries := database.New(pool)

	seedAdmin(ctx, queries, *adminEmail, *adminPassword)

	if *withMenu {
		seedMenu(ctx, queries)
	}

	log.Println("seed complete")
}

func seedAdmin(ctx context.Context, queries *database.Queries, email, password string) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("FATAL: hash admin password: %v", err)
	}

	user, err := queries.CreateUser(ctx, database.CreateUserParams{
		Username:       "admin",
		Email:          email,
		HashedPassword: string(hashed),
		FullName:       "Lamoy Admin",
		Role:           enum.RoleAdmin,
	})
	if err != nil {
		if isUniqueViolation(err) {
			log.Printf("admin account already exists, skipping")
			return
		}
		log.Fatalf("FATAL: create admin: %v", err)
	}
	log.Printf("created admin user %d (%s)", user.ID, user.Email)
}

func seedMenu(ctx context.Context, queries *database.Queries) {
	categoryIDs := make(map[string]int64)

	for _, item := range starterMenu {
		id, ok := categoryIDs[item.category]
		if !ok {
			category, err := queries.CreateMenuCategory(ctx, item.category)
			if err != nil {
				if isUniqueViolation(err) {
					log.Printf("category %q already exists, skipping menu seed", item.category)
					return
				}
				log.Fatalf("FATAL: create category %q: %v", item.category, err)
			}
			id = category.ID
			categoryIDs[item.category] = id
		}

		price, err := decimal.NewFromString(item.price)
		if err != nil {
			log.Fatalf("FATAL: parse price for %q: %v", item.name, err)
		}
		var priceN pgtype.Numeric
		if err := priceN.Scan(price.String()); err != nil {
			log.Fatalf("FATAL: convert price for %q: %v", item.name, err)
		}

		created, err := queries.CreateMenuItem(ctx, database.CreateMenuItemParams{
			CategoryID:  pgtype.Int8{Int64: id, Valid: true},
			Name:        item.name,
			Description: pgtype.Text{String: item.description, Valid: true},
			Price:       priceN,
			IsAvailable: true,
		})
		if err != nil {
			log.Fatalf("FATAL: create menu item %q: %v", item.name, err)
		}
		log.Printf("created menu item %d (%s)", created.ID, created.Name)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
