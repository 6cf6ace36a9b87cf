package report

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordtally/internal/storage"
	"wordtally/internal/window"
	logx "wordtally/pkg/logx"
)

func newStore(t *testing.T) storage.Store {
	t.Helper()
	st, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(t.TempDir(), "data")}, logx.Nop())
	require.NoError(t, err)
	return st
}

func yearOf(year int, cells ...string) YearTable {
	t := YearTable{Year: year}
	copy(t.Counts[:], row(cells...))
	return t
}

func TestWriterReadMissing(t *testing.T) {
	t.Parallel()
	w := NewWriter(newStore(t), logx.Nop())
	_, err := w.ReadYearTable(context.Background(), "all", 2020, "r")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriterRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)
	w := NewWriter(st, logx.Nop())

	in := yearOf(2019, "1", "?", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12")
	require.NoError(t, w.WriteYearTable(ctx, in, "fuck you", "stress"))

	raw, err := st.ReadText(ctx, "stress/stress-2019-fuck you.csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "January,"))

	out, err := w.ReadYearTable(ctx, "fuck you", 2019, "stress")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestCompileSingleYear(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)
	w := NewWriter(st, logx.Nop())
	cells := []string{"5", "0", "10", "?", "3", "7", "0", "0", "1", "9", "4", "2"}
	require.NoError(t, w.WriteYearTable(ctx, yearOf(2020, cells...), "all", "base"))

	c := NewCompiler(st, nil, logx.Nop())
	got, err := c.Compile(ctx, window.Period{Start: 2020, End: 2020}, "all", "base", []string{"normal", "bogus"})
	require.NoError(t, err)
	require.Len(t, got.Rows, 1)

	raw, err := st.ReadText(ctx, "base/base-2020-2020-all.csv")
	require.NoError(t, err)
	lines := strings.Split(raw, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Jan 20,Feb 20,Mar 20,Apr 20,May 20,Jun 20,Jul 20,Aug 20,Sep 20,Oct 20,Nov 20,Dec 20", lines[0])
	assert.Equal(t, strings.Join(cells, ","), lines[1])
	assert.Equal(t, strings.Join(cells, ","), lines[2], "normal transform is the input row verbatim")
}

func TestCompileMultiYearOrderAndTransforms(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)
	w := NewWriter(st, logx.Nop())
	period := window.Period{Start: 2017, End: 2019}
	for _, y := range period.Years() {
		cells := make([]string, 12)
		for m := range cells {
			cells[m] = fmt.Sprint((y-2017)*12 + m + 1)
		}
		require.NoError(t, w.WriteYearTable(ctx, yearOf(y, cells...), "friend", "bf"))
	}

	c := NewCompiler(st, DefaultRegistry(), logx.Nop())
	got, err := c.Compile(ctx, period, "friend", "bf", []string{"percentage", "normal"})
	require.NoError(t, err)

	require.Len(t, got.Values, 36)
	require.Len(t, got.Header, 36)
	assert.Equal(t, "Jan 17", got.Header[0])
	assert.Equal(t, "Dec 19", got.Header[35])
	for i, v := range got.Values {
		assert.Equal(t, Known(int64(i+1)), v)
	}

	require.Len(t, got.Rows, 2)
	assert.Equal(t, "percentage", got.Rows[0].Name)
	assert.Equal(t, Known(0), got.Rows[0].Values[0])
	assert.Equal(t, Known(100), got.Rows[0].Values[35])
	assert.Equal(t, "normal", got.Rows[1].Name)

	raw, err := st.ReadText(ctx, CompiledFileName("bf", 2017, 2019, "friend"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(raw, "\n"), 4)
}

func TestCompileMissingYearAborts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newStore(t)
	w := NewWriter(st, logx.Nop())
	require.NoError(t, w.WriteYearTable(ctx, yearOf(2017, "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12"), "gf", "rel"))

	c := NewCompiler(st, nil, logx.Nop())
	_, err := c.Compile(ctx, window.Period{Start: 2017, End: 2018}, "gf", "rel", []string{"normal"})
	require.ErrorIs(t, err, ErrMissingYearData)

	var mye *MissingYearError
	require.ErrorAs(t, err, &mye)
	assert.Equal(t, 2018, mye.Year)

	_, err = st.ReadText(ctx, CompiledFileName("rel", 2017, 2018, "gf"))
	assert.ErrorIs(t, err, storage.ErrNotFound, "nothing written on abort")
}

func TestCompileInvalidPeriod(t *testing.T) {
	t.Parallel()
	c := NewCompiler(newStore(t), nil, logx.Nop())
	_, err := c.Compile(context.Background(), window.Period{Start: 2021, End: 2020}, "all", "r", nil)
	assert.ErrorIs(t, err, window.ErrInvalidPeriod)
}

func TestColumnLabel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Jan 20", ColumnLabel(1, 2020))
	assert.Equal(t, "Sep 05", ColumnLabel(9, 2005))
	assert.Equal(t, "Dec 00", ColumnLabel(12, 2100))
}
