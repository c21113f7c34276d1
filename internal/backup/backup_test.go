package backup

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"ftp_deploy/models"
)

func named(names ...string) []models.RemoteEntry {
	out := make([]models.RemoteEntry, 0, len(names))
	for _, n := range names {
		out = append(out, models.RemoteEntry{Name: n})
	}
	return out
}

func TestNextName(t *testing.T) {
	tests := []struct {
		name    string
		listing []models.RemoteEntry
		want    string
	}{
		{"empty", nil, "html.bak.1"},
		{"no backups", named("another-file", ".", "..", "html"), "html.bak.1"},
		{"single backup", named("another-file", ".", "..", "html.bak.1", "html"), "html.bak.2"},
		{"gap", named("html.bak.2", "html"), "html.bak.3"},
		{"other separator ignored", named("html/bak.3", "html.bak.2"), "html.bak.3"},
		{"numeric order", named("html.bak.8", "html.bak.2", "html.bak.3", "html.bak.4", "html.bak.5",
			"html.bak.6", "html.bak.10", "html.bak.1", "html.bak.9", "html.bak.7"), "html.bak.11"},
		{"anchored", named("xhtml.bak.40", "html.bak.41x", "html.bak.", "html.bak.-3", "html.bak.5"), "html.bak.6"},
		{"overflow ignored", named("html.bak.99999999999999999999999", "html.bak.4"), "html.bak.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextName(tt.listing))
		})
	}
}

func TestNextNameAnyOrder(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for n := 1; n <= 25; n++ {
		names := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			names = append(names, "html.bak."+strconv.Itoa(i))
		}
		r.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })

		assert.Equal(t, "html.bak."+strconv.Itoa(n+1), NextName(named(names...)))
	}
}

func TestIndex(t *testing.T) {
	n, ok := Index("html.bak.12")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	_, ok = Index("html.bak.12/")
	assert.False(t, ok)
}

func TestExists(t *testing.T) {
	listing := named("html.stage", "html.bak.1", "html")
	assert.True(t, Exists(listing, LiveDir))
	assert.False(t, Exists(named("html.stage", "html.bak.1"), LiveDir))
}
