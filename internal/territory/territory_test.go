package territory

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/zulandar/territorio/internal/db"
	"github.com/zulandar/territorio/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const congID = "cong-1"

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(gormDB); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return gormDB
}

func strPtr(s string) *string { return &s }

func TestCreate(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()

	tr, err := Create(ctx, gormDB, congID, CreateOpts{
		Name:     " Centro ",
		Number:   12,
		Blocks:   [][]string{{"A", "B"}, {"C"}},
		Type:     models.TypeUrban,
		ImageURL: "https://cdn.example.com/12.png",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tr.ID == "" || tr.Name != "Centro" || tr.Status != models.StatusAvailable {
		t.Errorf("territory = %+v", tr)
	}

	got, err := Get(ctx, gormDB, congID, tr.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	blocks, err := DecodeBlocks(got.Blocks)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(blocks, [][]string{{"A", "B"}, {"C"}}) {
		t.Errorf("blocks = %v", blocks)
	}
}

func TestCreate_Validation(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name string
		opts CreateOpts
	}{
		{"empty name", CreateOpts{Name: " ", Type: models.TypeRural}},
		{"bad type", CreateOpts{Name: "X", Type: "urbano"}},
		{"bad image url", CreateOpts{Name: "X", Type: models.TypeRural, ImageURL: "ftp://x"}},
		{"image url without scheme", CreateOpts{Name: "X", Type: models.TypeRural, ImageURL: "cdn/12.png"}},
		{"missing type", CreateOpts{Name: "X"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Create(ctx, gormDB, congID, tt.opts)
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}

	if _, err := Create(ctx, gormDB, "", CreateOpts{Name: "X", Type: models.TypeRural}); err == nil {
		t.Error("expected error for empty congregationID")
	}
}

func TestGet_OtherCongregation(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	tr, err := Create(ctx, gormDB, congID, CreateOpts{Name: "X", Type: models.TypeRural})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Get(ctx, gormDB, "cong-2", tr.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()

	recent := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	old := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	b, _ := Create(ctx, gormDB, congID, CreateOpts{Name: "Bravo", Type: models.TypeUrban, LastWorkedAt: &old})
	a, _ := Create(ctx, gormDB, congID, CreateOpts{Name: "Alfa", Type: models.TypeUrban, LastWorkedAt: &recent})
	if _, err := Create(ctx, gormDB, "cong-2", CreateOpts{Name: "Outro", Type: models.TypeUrban}); err != nil {
		t.Fatal(err)
	}

	byName, err := List(ctx, gormDB, congID, ListFilters{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byName) != 2 || byName[0].ID != a.ID || byName[1].ID != b.ID {
		t.Errorf("by name = %+v", byName)
	}

	byWorked, err := List(ctx, gormDB, congID, ListFilters{OrderBy: "last_worked_at"})
	if err != nil {
		t.Fatal(err)
	}
	if byWorked[0].ID != a.ID {
		t.Errorf("most recently worked should come first, got %s", byWorked[0].Name)
	}

	if _, err := Update(ctx, gormDB, congID, b.ID, UpdateOpts{Status: statusPtr(models.StatusWorking)}); err != nil {
		t.Fatal(err)
	}
	working, err := List(ctx, gormDB, congID, ListFilters{Status: models.StatusWorking})
	if err != nil {
		t.Fatal(err)
	}
	if len(working) != 1 || working[0].ID != b.ID {
		t.Errorf("working = %+v", working)
	}

	if _, err := List(ctx, gormDB, congID, ListFilters{OrderBy: "size"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad order err = %v", err)
	}
	if _, err := List(ctx, gormDB, congID, ListFilters{Status: "lost"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad status err = %v", err)
	}
}

func statusPtr(s models.TerritoryStatus) *models.TerritoryStatus { return &s }

func TestUpdate(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	tr, err := Create(ctx, gormDB, congID, CreateOpts{Name: "X", Number: 1, Type: models.TypeRural, Obs: "keep"})
	if err != nil {
		t.Fatal(err)
	}

	blocks := [][]string{{"1"}}
	got, err := Update(ctx, gormDB, congID, tr.ID, UpdateOpts{Name: strPtr("Y"), Blocks: &blocks})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Name != "Y" || got.Obs != "keep" || got.Blocks != `[["1"]]` {
		t.Errorf("updated = %+v", got)
	}

	if _, err := Update(ctx, gormDB, congID, "missing", UpdateOpts{Name: strPtr("Z")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
	if _, err := Update(ctx, gormDB, congID, tr.ID, UpdateOpts{Name: strPtr("")}); !errors.Is(err, ErrInvalid) {
		t.Errorf("empty name err = %v", err)
	}
}

func TestUpdate_Validation(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	tr, err := Create(ctx, gormDB, congID, CreateOpts{Name: "X", Type: models.TypeRural, ImageURL: "https://cdn.example.com/x.png"})
	if err != nil {
		t.Fatal(err)
	}

	badType := models.TerritoryType("urbano")
	emptyType := models.TerritoryType("")
	badStatus := models.TerritoryStatus("done")
	tests := []struct {
		name string
		opts UpdateOpts
	}{
		{"bad type", UpdateOpts{Type: &badType}},
		{"empty type", UpdateOpts{Type: &emptyType}},
		{"bad status", UpdateOpts{Status: &badStatus}},
		{"bad image url", UpdateOpts{ImageURL: strPtr("ftp://x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Update(ctx, gormDB, congID, tr.ID, tt.opts); !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}

	got, err := Update(ctx, gormDB, congID, tr.ID, UpdateOpts{ImageURL: strPtr("")})
	if err != nil {
		t.Fatalf("clear image url: %v", err)
	}
	if got.ImageURL != "" || got.Type != models.TypeRural {
		t.Errorf("updated = %+v", got)
	}
}

func seedActiveAssignment(t *testing.T, gormDB *gorm.DB, territoryID string) {
	t.Helper()
	m := models.Manager{CongregationID: congID, Name: "Alice", Phone: "5511999990001"}
	if err := gormDB.Create(&m).Error; err != nil {
		t.Fatal(err)
	}
	a := models.Assignment{
		CongregationID: congID,
		TerritoryID:    territoryID,
		ManagerID:      m.ID,
		Status:         models.AssignmentActive,
		StartedAt:      time.Now(),
	}
	if err := gormDB.Create(&a).Error; err != nil {
		t.Fatal(err)
	}
	if err := gormDB.Model(&models.Territory{}).Where("id = ?", territoryID).Update("status", models.StatusWorking).Error; err != nil {
		t.Fatal(err)
	}
}

func TestUpdate_ReleaseWithActiveAssignment(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	tr, err := Create(ctx, gormDB, congID, CreateOpts{Name: "X", Type: models.TypeUrban})
	if err != nil {
		t.Fatal(err)
	}
	seedActiveAssignment(t, gormDB, tr.ID)

	if _, err := Update(ctx, gormDB, congID, tr.ID, UpdateOpts{Status: statusPtr(models.StatusAvailable)}); !errors.Is(err, ErrWorking) {
		t.Fatalf("err = %v, want ErrWorking", err)
	}
	got, err := Get(ctx, gormDB, congID, tr.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusWorking {
		t.Errorf("status = %q, want working", got.Status)
	}

	// Other fields stay editable while the territory is worked.
	if _, err := Update(ctx, gormDB, congID, tr.ID, UpdateOpts{Obs: strPtr("portão azul")}); err != nil {
		t.Errorf("Update obs: %v", err)
	}
}

func TestDelete_ActiveAssignment(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	tr, err := Create(ctx, gormDB, congID, CreateOpts{Name: "X", Type: models.TypeUrban})
	if err != nil {
		t.Fatal(err)
	}
	seedActiveAssignment(t, gormDB, tr.ID)
	// Status drifted back without closing the assignment.
	if err := gormDB.Model(&models.Territory{}).Where("id = ?", tr.ID).Update("status", models.StatusAvailable).Error; err != nil {
		t.Fatal(err)
	}

	if err := Delete(ctx, gormDB, congID, tr.ID); !errors.Is(err, ErrWorking) {
		t.Errorf("err = %v, want ErrWorking", err)
	}
	if _, err := Get(ctx, gormDB, congID, tr.ID); err != nil {
		t.Errorf("territory should survive: %v", err)
	}
}

func TestDelete(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	tr, err := Create(ctx, gormDB, congID, CreateOpts{Name: "X", Type: models.TypeRural})
	if err != nil {
		t.Fatal(err)
	}

	if err := Delete(ctx, gormDB, "cong-2", tr.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("other congregation err = %v", err)
	}
	if err := Delete(ctx, gormDB, congID, tr.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := Get(ctx, gormDB, congID, tr.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete err = %v", err)
	}
}

func TestDelete_Working(t *testing.T) {
	gormDB := openTestDB(t)
	ctx := context.Background()
	tr, err := Create(ctx, gormDB, congID, CreateOpts{Name: "X", Type: models.TypeRural})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Update(ctx, gormDB, congID, tr.ID, UpdateOpts{Status: statusPtr(models.StatusWorking)}); err != nil {
		t.Fatal(err)
	}
	if err := Delete(ctx, gormDB, congID, tr.ID); !errors.Is(err, ErrWorking) {
		t.Errorf("err = %v, want ErrWorking", err)
	}
}

func TestBlocksCodec(t *testing.T) {
	s, err := EncodeBlocks(nil)
	if err != nil || s != "[]" {
		t.Errorf("EncodeBlocks(nil) = %q, %v", s, err)
	}
	got, err := DecodeBlocks("")
	if err != nil || len(got) != 0 {
		t.Errorf("DecodeBlocks(\"\") = %v, %v", got, err)
	}
	if _, err := DecodeBlocks("{"); err == nil {
		t.Error("expected error for malformed blocks")
	}
}
