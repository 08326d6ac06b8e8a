// Package main dumps a summary of the PlacePin database for debugging.
//
// Usage:
//
//	DB_PATH=~/PlacePin/data/db go run ./cmd/dbinspect
package main

import (
	"encoding/json/v2"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/placepinapp/placepin-server/internal/domain"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/PlacePin/data/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	var users, places, sessions, indexEntries int
	linkErrors := 0
	userPlaces := make(map[string][]string)
	placeCreators := make(map[string]string)

	err = db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())

			if strings.Contains(key, "idx:") {
				indexEntries++
				continue
			}

			switch {
			case strings.HasPrefix(key, "user:"):
				users++
				var u domain.User
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &u)
				}); err != nil {
					return err
				}
				userPlaces[u.ID] = u.PlaceIDs

			case strings.HasPrefix(key, "place:"):
				places++
				var p domain.Place
				if err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &p)
				}); err != nil {
					return err
				}
				placeCreators[p.ID] = p.CreatorID

			case strings.HasPrefix(key, "session:"):
				sessions++
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Iteration failed: %v", err)
	}

	fmt.Printf("Users:         %d\n", users)
	fmt.Printf("Places:        %d\n", places)
	fmt.Printf("Sessions:      %d\n", sessions)
	fmt.Printf("Index entries: %d\n", indexEntries)
	fmt.Println()

	// Cross-check the user/place link in both directions.
	for userID, placeIDs := range userPlaces {
		for _, placeID := range placeIDs {
			creator, ok := placeCreators[placeID]
			if !ok {
				fmt.Printf("DANGLING: user %s lists missing place %s\n", userID, placeID)
				linkErrors++
			} else if creator != userID {
				fmt.Printf("MISMATCH: user %s lists place %s created by %s\n", userID, placeID, creator)
				linkErrors++
			}
		}
	}
	for placeID, creator := range placeCreators {
		found := false
		for _, id := range userPlaces[creator] {
			if id == placeID {
				found = true
				break
			}
		}
		if !found {
			fmt.Printf("ORPHAN: place %s not in creator %s's place list\n", placeID, creator)
			linkErrors++
		}
	}

	if linkErrors == 0 {
		fmt.Println("User/place links consistent in both directions.")
	} else {
		fmt.Printf("%d link inconsistencies found.\n", linkErrors)
	}
}
