// Package main provides a tool to seed the database with demo users and places.
//
// Usage:
//
//	DB_PATH=~/PlacePin/data/db go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/placepinapp/placepin-server/internal/auth"
	"github.com/placepinapp/placepin-server/internal/domain"
	"github.com/placepinapp/placepin-server/internal/id"
	"github.com/placepinapp/placepin-server/internal/service"
	"github.com/placepinapp/placepin-server/internal/store"
)

// fixedGeocoder resolves the demo addresses without hitting Nominatim.
type fixedGeocoder struct {
	coords map[string]domain.Location
}

func (g *fixedGeocoder) Geocode(_ context.Context, address string) (domain.Location, error) {
	if loc, ok := g.coords[address]; ok {
		return loc, nil
	}
	return domain.Location{}, fmt.Errorf("no fixed coordinates for %q", address)
}

type demoPlace struct {
	title       string
	description string
	address     string
	location    domain.Location
}

var demoPlaces = []demoPlace{
	{
		title:       "Empire State Building",
		description: "One of the most famous sky scrapers in the world!",
		address:     "20 W 34th St, New York, NY 10001",
		location:    domain.Location{Lat: 40.7484474, Lng: -73.9871516},
	},
	{
		title:       "Eiffel Tower",
		description: "Wrought-iron lattice tower on the Champ de Mars in Paris.",
		address:     "Champ de Mars, 5 Av. Anatole France, 75007 Paris",
		location:    domain.Location{Lat: 48.8583701, Lng: 2.2944813},
	},
	{
		title:       "Brandenburg Gate",
		description: "18th-century neoclassical monument in Berlin.",
		address:     "Pariser Platz, 10117 Berlin",
		location:    domain.Location{Lat: 52.5162746, Lng: 13.3777041},
	},
}

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/PlacePin/data/db")
	}

	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := store.New(dbPath, nil, store.DefaultTxnOptions())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	user, err := seedUser(ctx, s)
	if err != nil {
		log.Fatalf("Failed to seed user: %v", err)
	}

	geocoder := &fixedGeocoder{coords: make(map[string]domain.Location)}
	for _, p := range demoPlaces {
		geocoder.coords[p.address] = p.location
	}

	places := service.NewPlaceService(s, geocoder, nil, slog.New(slog.DiscardHandler))

	created := 0
	for _, p := range demoPlaces {
		place, err := places.CreatePlace(ctx, service.CreatePlaceRequest{
			Title:       p.title,
			Description: p.description,
			Address:     p.address,
			CreatorID:   user.ID,
		})
		if err != nil {
			log.Printf("Skipping %q: %v", p.title, err)
			continue
		}
		fmt.Printf("Created place %s (%s)\n", place.Title, place.ID)
		created++
	}

	fmt.Printf("Done. Seeded %d places for %s.\n", created, user.Email)
}

// seedUser creates the demo account, or reuses it if seeding ran before.
func seedUser(ctx context.Context, s *store.Store) (*domain.User, error) {
	const email = "demo@placepin.local"

	if existing, err := s.GetUserByEmail(ctx, email); err == nil {
		fmt.Printf("Reusing existing demo user %s\n", existing.ID)
		return existing, nil
	}

	hash, err := auth.HashPassword("demo-password")
	if err != nil {
		return nil, err
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         "Demo User",
		Email:        email,
		PasswordHash: hash,
		PlaceIDs:     []string{},
	}
	user.ID = userID
	user.InitTimestamps()

	if err := s.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	fmt.Printf("Created demo user %s (password: demo-password)\n", user.ID)
	return user, nil
}
