package bot

import (
	"strings"
	"testing"

	"github.com/zulandar/territorio/internal/models"
)

func TestKeycap(t *testing.T) {
	if got := keycap(2); got != "2️⃣" {
		t.Errorf("keycap(2) = %q", got)
	}
}

func TestMsgLimitReached_Singular(t *testing.T) {
	got := msgLimitReached("Ana", 1, []models.Assignment{{Territory: models.Territory{Name: "Centro"}}})
	if !strings.Contains(got, "limite de 1 território.") {
		t.Errorf("singular limit missing: %q", got)
	}
	if !strings.Contains(got, "Território atuais:") {
		t.Errorf("singular heading missing: %q", got)
	}
}

func TestMsgMapMenu_UnnamedTerritory(t *testing.T) {
	got := msgMapMenu([]models.Territory{{Number: 7}, {Number: 8, Name: "Sul"}})
	if !strings.Contains(got, "1️⃣ *7*\n") {
		t.Errorf("unnamed territory should not get parentheses: %q", got)
	}
	if !strings.Contains(got, "2️⃣ *8* (Sul)") {
		t.Errorf("named option missing: %q", got)
	}
}

func TestMsgNoneFound_Labels(t *testing.T) {
	tests := []struct {
		typ  models.TerritoryType
		want string
	}{
		{models.TypeUrban, "*urbano*"},
		{models.TypeRural, "*rural*"},
		{models.TypeCommercial, "*comercial*"},
	}
	for _, tt := range tests {
		got := msgNoneFound(tt.typ, "!mapa")
		if !strings.Contains(got, tt.want) || !strings.Contains(got, "*!mapa*") {
			t.Errorf("msgNoneFound(%s) = %q", tt.typ, got)
		}
	}
}

func TestMsgTaken_WithoutName(t *testing.T) {
	if got := msgTaken(""); !strings.Contains(got, "Este território acabou de ser pego") {
		t.Errorf("msgTaken(\"\") = %q", got)
	}
}
