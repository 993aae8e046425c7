// internal/snapshot/snapshot_test.go
package snapshot

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LatestWins(t *testing.T) {
	s := NewStore()

	s.Put("battery", "first", nil, time.Unix(100, 0))
	s.Put("battery", "second", nil, time.Unix(200, 0))

	e, ok := s.Get("battery")
	require.True(t, ok)
	assert.Equal(t, "second", e.Output)
	assert.True(t, e.OK())
}

func TestStore_KeysSorted(t *testing.T) {
	s := NewStore()

	s.Put("solar", "", nil, time.Now())
	s.Put("battery", "", nil, time.Now())
	s.Put("spd_lidar:front", "", nil, time.Now())

	assert.Equal(t, []string{"battery", "solar", "spd_lidar:front"}, s.Keys())
}

func TestRenderOnce_Format(t *testing.T) {
	s := NewStore()
	at := time.Date(2026, 3, 1, 9, 4, 5, 0, time.Local)
	s.Put("battery", "SOC: 50.00%", nil, at)

	var out strings.Builder
	r := NewRenderer(s, &out)
	r.RenderOnce()

	got := out.String()
	assert.Contains(t, got, "[snapshot] battery ok=true time=09:04:05\n")
	assert.Contains(t, got, "SOC: 50.00%\n")
}

func TestRenderOnce_ErrorShownWhenOutputEmpty(t *testing.T) {
	s := NewStore()
	s.Put("io_relay", "", errors.New("transport failure"), time.Now())

	var out strings.Builder
	r := NewRenderer(s, &out)
	r.RenderOnce()

	got := out.String()
	assert.Contains(t, got, "ok=false")
	assert.Contains(t, got, "  transport failure\n")
}

func TestRenderOnce_NoOutputPlaceholder(t *testing.T) {
	s := NewStore()
	s.Put("spd_lidar:default", "", nil, time.Now())

	var out strings.Builder
	r := NewRenderer(s, &out)
	r.RenderOnce()

	assert.Contains(t, out.String(), "  (no output)\n")
}

func TestRenderOnce_EmptyStorePrintsNothing(t *testing.T) {
	var out strings.Builder
	r := NewRenderer(NewStore(), &out)
	r.RenderOnce()

	assert.Empty(t, out.String())
}
