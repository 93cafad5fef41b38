// Command seed-db loads demo restaurants, products and customers into the
// database and prints operator tokens for the seeded owners.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/golang-jwt/jwt/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Kmzf777/foodshorts/internal/domain/customer"
	"github.com/Kmzf777/foodshorts/internal/domain/product"
	"github.com/Kmzf777/foodshorts/internal/domain/restaurant"
	"github.com/Kmzf777/foodshorts/internal/repository"
)

type seedRestaurant struct {
	restaurant.Restaurant
	Products []product.Product
}

type seedData struct {
	Restaurants []seedRestaurant
	Customers   []customer.Customer
}

func main() {
	_ = godotenv.Load()

	var (
		databaseURL string
		seedFile    string
		jwtSecret   string
		tokenTTL    time.Duration
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedFile, "seed-file", "db/seed/demo.json", "path to the seed JSON file")
	flag.StringVar(&jwtSecret, "jwt-secret", "", "operator token secret (or FOODSHORTS_AUTH_JWT_SECRET env); tokens are printed when set")
	flag.DurationVar(&tokenTTL, "token-ttl", 30*24*time.Hour, "lifetime of printed operator tokens")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if jwtSecret == "" {
		jwtSecret = os.Getenv("FOODSHORTS_AUTH_JWT_SECRET")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	data, err := readSeed(seedFile)
	if err != nil {
		lg.Fatal("Read seed file", zap.String("path", seedFile), zap.Error(err))
	}
	if err := run(ctx, lg, databaseURL, data); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	if jwtSecret != "" {
		for _, r := range data.Restaurants {
			token, err := operatorToken(jwtSecret, r.OwnerID, tokenTTL)
			if err != nil {
				lg.Fatal("Sign operator token", zap.Error(err))
			}
			fmt.Printf("%s\t%s\n", r.Slug, token)
		}
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL string, data *seedData) error {
	lg.Info("Running migrations")
	if err := repository.RunMigrations(databaseURL, lg); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	for _, r := range data.Restaurants {
		if err := upsertRestaurant(ctx, pool, r); err != nil {
			return errors.Wrapf(err, "seed restaurant %s", r.Slug)
		}
		lg.Info("Upserted restaurant",
			zap.String("slug", r.Slug),
			zap.String("plan", string(r.PlanStatus)),
			zap.Int("products", len(r.Products)),
		)
	}
	for _, c := range data.Customers {
		if err := upsertCustomer(ctx, pool, c); err != nil {
			return errors.Wrapf(err, "seed customer %s", c.ID)
		}
		lg.Info("Upserted customer", zap.String("id", c.ID), zap.String("name", c.Name))
	}
	return nil
}

func upsertRestaurant(ctx context.Context, pool *pgxpool.Pool, r seedRestaurant) error {
	var city *string
	if r.City != "" {
		city = &r.City
	}
	if _, err := pool.Exec(ctx, `INSERT INTO restaurants (id, owner_id, slug, name, plan_status, city)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET owner_id = EXCLUDED.owner_id, slug = EXCLUDED.slug,
    name = EXCLUDED.name, plan_status = EXCLUDED.plan_status, city = EXCLUDED.city`,
		r.ID, r.OwnerID, r.Slug, r.Name, string(r.PlanStatus), city,
	); err != nil {
		return errors.Wrap(err, "upsert restaurant")
	}
	for _, p := range r.Products {
		if _, err := pool.Exec(ctx, `INSERT INTO products (id, restaurant_id, name, price, is_active)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, is_active = EXCLUDED.is_active`,
			p.ID, r.ID, p.Name, p.Price, p.Active,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
	}
	return nil
}

func upsertCustomer(ctx context.Context, pool *pgxpool.Pool, c customer.Customer) error {
	var email *string
	if c.Email != "" {
		email = &c.Email
	}
	if _, err := pool.Exec(ctx, `INSERT INTO customers (id, name, cpf, phone, whatsapp, email)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, phone = EXCLUDED.phone,
    whatsapp = EXCLUDED.whatsapp, email = EXCLUDED.email, updated_at = now()`,
		c.ID, c.Name, c.CPF, c.Phone, c.WhatsApp, email,
	); err != nil {
		return errors.Wrap(err, "upsert customer")
	}
	if c.Address != nil {
		if err := repository.NewCustomerRepository(pool).UpdateAddress(ctx, c.ID, *c.Address); err != nil {
			return err
		}
	}
	return nil
}

func operatorToken(secret, ownerID string, ttl time.Duration) (string, error) {
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   ownerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}).SignedString([]byte(secret))
}

func readSeed(path string) (*seedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}
	var data seedData
	err = jx.DecodeBytes(raw).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "restaurants":
			return d.Arr(func(d *jx.Decoder) error {
				var r seedRestaurant
				if err := decodeRestaurant(d, &r); err != nil {
					return err
				}
				data.Restaurants = append(data.Restaurants, r)
				return nil
			})
		case "customers":
			return d.Arr(func(d *jx.Decoder) error {
				var c customer.Customer
				if err := c.Decode(d); err != nil {
					return err
				}
				data.Customers = append(data.Customers, c)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	return &data, nil
}

func decodeRestaurant(d *jx.Decoder, r *seedRestaurant) error {
	r.PlanStatus = restaurant.PlanActive
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			r.ID, err = d.Str()
		case "ownerId":
			r.OwnerID, err = d.Str()
		case "slug":
			r.Slug, err = d.Str()
		case "name":
			r.Name, err = d.Str()
		case "city":
			r.City, err = d.Str()
		case "planStatus":
			var s string
			s, err = d.Str()
			r.PlanStatus = restaurant.PlanStatus(s)
		case "products":
			err = d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				if err != nil {
					return err
				}
				r.Products = append(r.Products, p)
				return nil
			})
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	p := product.Product{Active: true}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "price":
			var s string
			if s, err = d.Str(); err == nil {
				p.Price, err = decimal.NewFromString(s)
			}
		case "isActive":
			p.Active, err = d.Bool()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return p, err
}
