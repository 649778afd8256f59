package messages

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/gameerr"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	locales := c.Locales()
	if len(locales) != 2 || locales[0] != "ru" {
		t.Errorf("Locales() = %v, want ru first", locales)
	}
}

func TestLocalesDefineTheSameKeys(t *testing.T) {
	c := MustLoad()
	ru, en := c.keys["ru"], c.keys["en"]
	for key := range ru {
		if _, ok := en[key]; !ok {
			t.Errorf("en is missing %q", key)
		}
	}
	for key := range en {
		if _, ok := ru[key]; !ok {
			t.Errorf("ru is missing %q", key)
		}
	}
}

func TestPrinterMatchesLocale(t *testing.T) {
	c := MustLoad()

	tests := []struct {
		locale string
		want   string
	}{
		{"en", "en"},
		{"en-US", "en"},
		{"ru", "ru"},
		{"ru-RU", "ru"},
		{"de", "ru"},
		{"", "ru"},
		{"not a tag!", "ru"},
	}
	for _, tt := range tests {
		if got := c.Printer(tt.locale).Locale(); got != tt.want {
			t.Errorf("Printer(%q).Locale() = %q, want %q", tt.locale, got, tt.want)
		}
	}
}

func TestTextGroupsNumbers(t *testing.T) {
	p := MustLoad().Printer("en")

	if got := p.Money(1500); got != "1,500 RUB" {
		t.Errorf("Money(1500) = %q", got)
	}
	got := p.Text("walk.completed", 120, 35, 2, 0)
	if got != "Walk over: +120 RUB, +35 XP, items: 2, damage: 0." {
		t.Errorf("walk.completed = %q", got)
	}
}

func TestErrorRendering(t *testing.T) {
	p := MustLoad().Printer("en")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"energy", gameerr.Insufficient(gameerr.ResourceEnergy, 20, 15), "Not enough energy: need 20, have 15."},
		{"money grouped", gameerr.Insufficient(gameerr.ResourceMoney, 2500, 100), "Not enough money: need 2,500 RUB, have 100 RUB."},
		{"unknown resource", gameerr.Insufficient("bottles", 3, 1), "Not enough: need 3, have 1."},
		{"cooldown", gameerr.Cooldown(5*time.Hour + 30*time.Minute), "Too early. Wait 5h 30m."},
		{"conflict", gameerr.Conflict("walk"), "You are already walking."},
		{"expired", gameerr.Expired("fight"), "The fight is over or expired."},
		{"not found", gameerr.NotFound("boss", "godzilla"), "Not found: boss godzilla."},
		{"dead", gameerr.Dead(), "You are dead. Respawn first."},
		{"plain error", errTest("disk full"), "Something broke. Try again later."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Error(tt.err); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestRussianText(t *testing.T) {
	p := MustLoad().Printer("ru")
	got := p.Text("level.up", 5)
	if got != "Новый уровень: 5!" {
		t.Errorf("level.up = %q", got)
	}
	if !strings.Contains(p.Error(gameerr.Conflict("fight")), "дерёшься") {
		t.Errorf("conflict text = %q", p.Error(gameerr.Conflict("fight")))
	}
}

func TestLoadFromFSErrors(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
	}{
		{"empty", fstest.MapFS{}},
		{"no base", fstest.MapFS{"en.yaml": {Data: []byte("locale: en\nmessages:\n  a: b\n")}}},
		{"missing locale", fstest.MapFS{"ru.yaml": {Data: []byte("messages:\n  a: b\n")}}},
		{"no messages", fstest.MapFS{"ru.yaml": {Data: []byte("locale: ru\n")}}},
		{"bad yaml", fstest.MapFS{"ru.yaml": {Data: []byte("locale: [")}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadFromFS(tt.files); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
