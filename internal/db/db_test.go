package db

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/territorio/internal/config"
	"github.com/zulandar/territorio/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "default local",
			cfg:  config.DatabaseConfig{Host: "127.0.0.1", Port: 3306, User: "root", Name: "territorio"},
			want: "root@tcp(127.0.0.1:3306)/territorio?parseTime=true&loc=UTC&charset=utf8mb4",
		},
		{
			name: "with password",
			cfg:  config.DatabaseConfig{Host: "db", Port: 3307, User: "bot", Password: "pw", Name: "t"},
			want: "bot:pw@tcp(db:3307)/t?parseTime=true&loc=UTC&charset=utf8mb4",
		},
		{
			name: "explicit dsn wins",
			cfg:  config.DatabaseConfig{DSN: "u@tcp(x:1)/y", Host: "ignored"},
			want: "u@tcp(x:1)/y",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DSN(tt.cfg); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(config.DatabaseConfig{Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if !strings.Contains(err.Error(), "unsupported driver") {
		t.Errorf("error = %q", err)
	}
}

func TestConnect_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "territorio.db")
	gormDB, err := Connect(config.DatabaseConfig{Driver: "sqlite", Name: path})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(gormDB); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, m := range AllModels() {
		if !gormDB.Migrator().HasTable(m) {
			t.Errorf("table for %T not created", m)
		}
	}
}

func TestAllModels(t *testing.T) {
	if got := len(AllModels()); got != 4 {
		t.Errorf("len(AllModels()) = %d, want 4", got)
	}
}

func TestCreateCongregation(t *testing.T) {
	db := openTestDB(t)

	c, err := CreateCongregation(db, "Central", 1234)
	if err != nil {
		t.Fatalf("CreateCongregation: %v", err)
	}
	if c.ID == "" {
		t.Error("expected generated ID")
	}

	_, err = CreateCongregation(db, "Other", 1234)
	if err == nil {
		t.Fatal("expected duplicate number error")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error = %q", err)
	}
}

func TestCreateCongregation_Validation(t *testing.T) {
	db := openTestDB(t)
	if _, err := CreateCongregation(db, "", 1); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := CreateCongregation(db, "X", 0); err == nil {
		t.Error("expected error for zero number")
	}
}

func TestBindWhatsapp(t *testing.T) {
	db := openTestDB(t)
	if _, err := CreateCongregation(db, "Central", 77); err != nil {
		t.Fatal(err)
	}

	c, err := BindWhatsapp(db, 77, WhatsappBinding{InstanceName: "central", APIKey: "k1", GroupID: "g@g.us"})
	if err != nil {
		t.Fatalf("BindWhatsapp: %v", err)
	}
	if c.WhatsappInstanceName != "central" || c.WhatsappAPIKey != "k1" || c.WhatsappGroupID != "g@g.us" {
		t.Errorf("binding = %+v", c)
	}

	// Partial update keeps the other fields.
	c, err = BindWhatsapp(db, 77, WhatsappBinding{APIKey: "k2"})
	if err != nil {
		t.Fatalf("BindWhatsapp partial: %v", err)
	}
	if c.WhatsappAPIKey != "k2" || c.WhatsappInstanceName != "central" {
		t.Errorf("partial binding = %+v", c)
	}
}

func TestBindWhatsapp_Errors(t *testing.T) {
	db := openTestDB(t)
	if _, err := BindWhatsapp(db, 1, WhatsappBinding{APIKey: "k"}); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("missing congregation error = %v", err)
	}
	if _, err := CreateCongregation(db, "C", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := BindWhatsapp(db, 1, WhatsappBinding{}); err == nil || !strings.Contains(err.Error(), "nothing to bind") {
		t.Errorf("empty binding error = %v", err)
	}
}

func TestMigrate_ManagerPhoneUnique(t *testing.T) {
	db := openTestDB(t)
	m1 := models.Manager{CongregationID: "c1", Name: "A", Phone: "5511", Active: true}
	if err := db.Create(&m1).Error; err != nil {
		t.Fatal(err)
	}
	m2 := models.Manager{CongregationID: "c1", Name: "B", Phone: "5511", Active: true}
	if err := db.Create(&m2).Error; err == nil {
		t.Error("expected unique violation for same phone in same congregation")
	}
	m3 := models.Manager{CongregationID: "c2", Name: "C", Phone: "5511", Active: true}
	if err := db.Create(&m3).Error; err != nil {
		t.Errorf("same phone in another congregation should be allowed: %v", err)
	}
}
