package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"labreserve/internal/config"
	"labreserve/internal/db"
	"labreserve/internal/model"
	"labreserve/internal/repository"
)

// SeedData is the top level structure of a seed file.
type SeedData struct {
	Admin     SeedAdmin       `json:"admin"`
	Labs      []SeedLab       `json:"labs"`
	Equipment []SeedEquipment `json:"equipment"`
}

// SeedAdmin describes the bootstrap administrator account.
type SeedAdmin struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// SeedLab describes a lab row to seed.
type SeedLab struct {
	Name     string `json:"name"`
	Building string `json:"building"`
	Floor    string `json:"floor"`
	Capacity uint   `json:"capacity"`
	Type     string `json:"type"`
}

// SeedEquipment describes an equipment row to seed. Lab is matched by name.
type SeedEquipment struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	InventoryNumber string `json:"inventory_number"`
	TotalQuantity   uint   `json:"total_quantity"`
	Lab             string `json:"lab"`
}

func main() {
	log.Println("Starting seed script...")

	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	// Run migrations to ensure schema is up to date
	if err := gormDB.AutoMigrate(&model.User{}, &model.Lab{}, &model.Equipment{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	data := defaultSeedData()
	if cfg.SeedFile != "" {
		log.Printf("Loading seed data from: %s", cfg.SeedFile)
		data, err = loadSeedFile(cfg.SeedFile)
		if err != nil {
			log.Fatalf("Failed to load seed file: %v", err)
		}
	}

	ctx := context.Background()
	userRepo := repository.NewUserRepository(gormDB)
	labRepo := repository.NewLabRepository(gormDB)
	equipmentRepo := repository.NewEquipmentRepository(gormDB)

	if err := seedAdmin(ctx, userRepo, data.Admin); err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}

	labIDs, created, updated, err := seedLabs(ctx, labRepo, data.Labs)
	if err != nil {
		log.Fatalf("Failed to seed labs: %v", err)
	}
	log.Printf("Labs: %d created, %d updated", created, updated)

	created, updated, err = seedEquipment(ctx, equipmentRepo, data.Equipment, labIDs)
	if err != nil {
		log.Fatalf("Failed to seed equipment: %v", err)
	}
	log.Printf("Equipment: %d created, %d updated", created, updated)

	log.Println("Seed completed successfully!")
}

func loadSeedFile(path string) (SeedData, error) {
	var data SeedData
	raw, err := os.ReadFile(path)
	if err != nil {
		return data, fmt.Errorf("read seed file: %w", err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("parse seed file: %w", err)
	}
	return data, nil
}

func defaultSeedData() SeedData {
	return SeedData{
		Admin: SeedAdmin{
			Email:     "admin@labreserve.local",
			Password:  "admin123",
			FirstName: "System",
			LastName:  "Administrator",
		},
		Labs: []SeedLab{
			{Name: "Chemistry Lab A", Building: "Science", Floor: "1", Capacity: 24, Type: "chemistry"},
			{Name: "Physics Lab B", Building: "Science", Floor: "2", Capacity: 30, Type: "physics"},
			{Name: "Computer Lab 1", Building: "Engineering", Floor: "3", Capacity: 40, Type: "computing"},
		},
		Equipment: []SeedEquipment{
			{Name: "Microscope", Description: "Optical microscope, 1000x", InventoryNumber: "MIC-001", TotalQuantity: 10, Lab: "Chemistry Lab A"},
			{Name: "Oscilloscope", Description: "Digital storage oscilloscope", InventoryNumber: "OSC-001", TotalQuantity: 5, Lab: "Physics Lab B"},
			{Name: "Laptop", Description: "Loaner laptop", InventoryNumber: "LAP-001", TotalQuantity: 20, Lab: "Computer Lab 1"},
		},
	}
}

// seedAdmin creates the administrator account unless the email is taken.
func seedAdmin(ctx context.Context, repo repository.UserRepository, admin SeedAdmin) error {
	existing, err := repo.FindByEmail(ctx, admin.Email)
	if err != nil && err != gorm.ErrRecordNotFound {
		return fmt.Errorf("check admin existence: %w", err)
	}
	if existing != nil {
		log.Printf("Admin %s already exists, skipping", admin.Email)
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(admin.Password), 10)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	user := &model.User{
		Email:        admin.Email,
		PasswordHash: string(hashed),
		FirstName:    admin.FirstName,
		LastName:     admin.LastName,
		Role:         model.RoleAdmin,
	}
	if err := repo.Create(ctx, user); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Printf("Admin %s created", admin.Email)
	return nil
}

// seedLabs upserts labs by name and returns a name to ID mapping for
// equipment seeding.
func seedLabs(ctx context.Context, repo repository.LabRepository, labs []SeedLab) (map[string]uint, int, int, error) {
	existing, err := repo.List(ctx, repository.LabFilter{})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("list labs: %w", err)
	}
	byName := make(map[string]*model.Lab, len(existing))
	for i := range existing {
		byName[existing[i].Name] = &existing[i]
	}

	ids := make(map[string]uint, len(labs))
	created, updated := 0, 0
	for _, seed := range labs {
		if lab, ok := byName[seed.Name]; ok {
			lab.Building = seed.Building
			lab.Floor = seed.Floor
			lab.Capacity = seed.Capacity
			lab.Type = seed.Type
			if err := repo.Update(ctx, lab); err != nil {
				return nil, created, updated, fmt.Errorf("update lab %s: %w", seed.Name, err)
			}
			ids[seed.Name] = lab.ID
			updated++
			continue
		}

		lab := &model.Lab{
			Name:     seed.Name,
			Building: seed.Building,
			Floor:    seed.Floor,
			Capacity: seed.Capacity,
			Type:     seed.Type,
			Status:   model.LabStatusActive,
		}
		if err := repo.Create(ctx, lab); err != nil {
			return nil, created, updated, fmt.Errorf("create lab %s: %w", seed.Name, err)
		}
		ids[seed.Name] = lab.ID
		created++
	}
	return ids, created, updated, nil
}

// seedEquipment upserts equipment by inventory number.
func seedEquipment(ctx context.Context, repo repository.EquipmentRepository, items []SeedEquipment, labIDs map[string]uint) (int, int, error) {
	existing, err := repo.List(ctx, repository.EquipmentFilter{})
	if err != nil {
		return 0, 0, fmt.Errorf("list equipment: %w", err)
	}
	byInventory := make(map[string]*model.Equipment, len(existing))
	for i := range existing {
		byInventory[existing[i].InventoryNumber] = &existing[i]
	}

	created, updated := 0, 0
	for _, seed := range items {
		var labID *uint
		if id, ok := labIDs[seed.Lab]; ok {
			labID = &id
		}

		if equip, ok := byInventory[seed.InventoryNumber]; ok {
			equip.Name = seed.Name
			equip.Description = seed.Description
			equip.TotalQuantity = seed.TotalQuantity
			if equip.AvailableQuantity > equip.TotalQuantity {
				equip.AvailableQuantity = equip.TotalQuantity
			}
			equip.LabID = labID
			if err := repo.Update(ctx, equip); err != nil {
				return created, updated, fmt.Errorf("update equipment %s: %w", seed.InventoryNumber, err)
			}
			updated++
			continue
		}

		equip := &model.Equipment{
			Name:              seed.Name,
			Description:       seed.Description,
			InventoryNumber:   seed.InventoryNumber,
			TotalQuantity:     seed.TotalQuantity,
			AvailableQuantity: seed.TotalQuantity,
			Status:            model.EquipmentStatusAvailable,
			LabID:             labID,
		}
		if err := repo.Create(ctx, equip); err != nil {
			return created, updated, fmt.Errorf("create equipment %s: %w", seed.InventoryNumber, err)
		}
		created++
	}
	return created, updated, nil
}
